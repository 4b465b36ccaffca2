// Package store materializes a loaded dataset into an in-memory SQLite
// database and exposes read-only querying over it. The database is
// built once at startup and never written to afterward.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rowstack-labs/hrmcp/internal/dataset"

	// sqlite driver for the in-memory employee table.
	_ "modernc.org/sqlite"
)

// TableName is the single table every query runs against.
const TableName = "employees"

// indexColumns get a best-effort index when present in the dataset.
// Lookups stay correct without them.
var indexColumns = []string{"employee_id", "department", "location", "manager_id"}

// Store wraps the in-memory database built from a dataset.
type Store struct {
	db     *sql.DB
	ds     *dataset.Dataset
	logger *slog.Logger
}

// Open builds an in-memory SQLite database from ds: one table with the
// inferred column types, all rows inserted in a single transaction, and
// best-effort indexes on common filter columns.
func Open(ds *dataset.Dataset, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every pooled connection would get its own empty :memory:
	// database, so pin the pool to one connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, ds: ds, logger: logger}
	if err := s.build(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) build() error {
	cols := s.ds.Columns
	if len(cols) == 0 {
		return fmt.Errorf("dataset has no columns")
	}

	defs := make([]string, len(cols))
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c.Name) + " " + string(c.Type)
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", TableName, strings.Join(defs, ", "))
	if _, err := s.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin insert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		TableName, strings.Join(names, ", "), strings.Join(marks, ", "))
	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	kept := 0
	for _, row := range s.ds.Rows {
		args := make([]any, len(cols))
		for i, c := range cols {
			v, keptText := dataset.Coerce(row[c.Name], c.Type)
			if keptText {
				kept++
			}
			args[i] = v
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rows: %w", err)
	}
	if kept > 0 {
		s.logger.Debug("kept unparseable values as text", "count", kept)
	}

	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c.Name] = true
	}
	for _, col := range indexColumns {
		if !have[col] {
			continue
		}
		idxSQL := fmt.Sprintf("CREATE INDEX idx_%s_%s ON %s (%s)",
			TableName, col, TableName, quoteIdent(col))
		if _, err := s.db.Exec(idxSQL); err != nil {
			s.logger.Debug("skipping index", "column", col, "error", err)
		}
	}

	return nil
}

// SchemaColumn describes one column as reported by the database.
type SchemaColumn struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NotNull bool   `json:"notnull"`
}

// SchemaInfo is the introspection payload for the employee table.
type SchemaInfo struct {
	Table   string         `json:"table"`
	Columns []SchemaColumn `json:"columns"`
}

// Schema reports the table layout from PRAGMA table_info.
func (s *Store) Schema(ctx context.Context) (*SchemaInfo, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", TableName))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	info := &SchemaInfo{Table: TableName}
	for rows.Next() {
		var (
			cid      int
			name     string
			typ      string
			notnull  int
			dflt     sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan schema row: %w", err)
		}
		info.Columns = append(info.Columns, SchemaColumn{Name: name, Type: typ, NotNull: notnull != 0})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	return info, nil
}

// Query runs an arbitrary read query with bound parameters and collects
// the full result set.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return collectRows(rows)
}

func collectRows(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Result{Rows: []Row{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := Row{Columns: cols, Values: make(map[string]any, len(cols))}
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row.Values[col] = v
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// quoteIdent double-quotes an identifier for use in SQL text.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
