// Package dataset parses delimited text files that carry a short
// comment-style metadata header ahead of the column header row, and
// materializes them with per-column type inference.
package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxMetadataLines is the number of leading lines that may form the
// metadata header. The first line that does not start with '#' ends the
// header early and is treated as the start of tabular data.
const maxMetadataLines = 3

// ColumnType is the inferred storage type for a column.
type ColumnType string

const (
	TypeInteger ColumnType = "INTEGER"
	TypeReal    ColumnType = "REAL"
	TypeText    ColumnType = "TEXT"
)

// Column describes one column of a loaded dataset.
type Column struct {
	Name string
	Type ColumnType
}

// Dataset is the in-memory materialization of a source file: its
// metadata header, ordered columns with inferred types, and all rows as
// trimmed raw strings. Rows are coerced per column type at the point of
// use via Coerce. A Dataset is never mutated after Load returns.
type Dataset struct {
	Metadata map[string]string
	Columns  []Column
	Rows     []map[string]string
}

// ColumnNames returns the column names in declaration order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// LoadFile opens path, loads the dataset and closes the file before
// returning. Rows are fully materialized; no reader outlives the call.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	ds, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", path, err)
	}
	return ds, nil
}

// Load parses a dataset from r: up to three leading '#' metadata lines,
// a column header row, then comma-separated data rows. It fails when
// the stream is empty or has no parseable header row.
func Load(r io.Reader) (*Dataset, error) {
	br := bufio.NewReader(r)

	meta, firstDataLine, err := readMetadata(br)
	if err != nil {
		return nil, err
	}

	// Reassemble the body: the first non-metadata line (if one was
	// consumed while scanning the header) followed by the rest of the
	// stream.
	var body io.Reader = br
	if firstDataLine != "" {
		body = io.MultiReader(strings.NewReader(firstDataLine), br)
	}

	cr := csv.NewReader(body)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("dataset is empty or missing a header row")
	}
	if err != nil {
		return nil, fmt.Errorf("could not parse header row: %w", err)
	}

	columns := make([]Column, len(header))
	for i, name := range header {
		columns[i] = Column{Name: strings.TrimSpace(name)}
	}

	var rows []map[string]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not parse data row: %w", err)
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col.Name] = strings.TrimSpace(record[i])
			} else {
				row[col.Name] = ""
			}
		}
		rows = append(rows, row)
	}

	for i := range columns {
		columns[i].Type = inferColumnType(columns[i].Name, rows)
	}

	return &Dataset{Metadata: meta, Columns: columns, Rows: rows}, nil
}

// readMetadata consumes up to maxMetadataLines leading comment lines.
// It returns the parsed metadata and, when the header scan stopped at a
// non-comment line, that line verbatim so the caller can replay it.
func readMetadata(br *bufio.Reader) (map[string]string, string, error) {
	meta := make(map[string]string)
	n := 0

	for i := 0; i < maxMetadataLines; i++ {
		line, err := br.ReadString('\n')
		if line == "" && err != nil {
			break
		}
		if !strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") {
			return meta, line, nil
		}

		n++
		text := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if idx := strings.Index(text, ":"); idx >= 0 {
			key := strings.TrimSpace(text[:idx])
			val := strings.TrimSpace(text[idx+1:])
			meta[key] = val
		} else {
			meta[fmt.Sprintf("meta_line_%d", n)] = text
		}
		if err != nil {
			break
		}
	}

	return meta, "", nil
}
