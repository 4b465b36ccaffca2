package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rowstack-labs/hrmcp/internal/store"
)

func renderResult(w io.Writer, result *store.Result, format string) error {
	var cols []string
	if len(result.Rows) > 0 {
		cols = result.Rows[0].Columns
	}

	switch format {
	case "json":
		return renderJSON(w, result)
	case "csv":
		return renderCSV(w, cols, result.Rows)
	case "md", "markdown":
		return renderMarkdown(w, cols, result.Rows)
	default:
		return renderTable(w, cols, result.Rows)
	}
}

func renderTable(w io.Writer, cols []string, rows []store.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		out := make(table.Row, len(cols))
		for i, col := range cols {
			out[i] = formatValue(row.Get(col))
		}
		t.AppendRow(out)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func renderJSON(w io.Writer, result *store.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func renderCSV(w io.Writer, cols []string, rows []store.Row) error {
	_, _ = fmt.Fprintln(w, strings.Join(cols, ","))
	for _, row := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = escapeCSV(formatValue(row.Get(col)))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, cols []string, rows []store.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(cols, " | "))
	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = formatValue(row.Get(col))
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
