package store

import (
	"bytes"
	"encoding/json"
)

// Result is a fully collected query result.
type Result struct {
	RowCount int   `json:"rowCount"`
	Rows     []Row `json:"rows"`
}

// Row is a single result row. Values are keyed by column name; Columns
// preserves the projected output order, which plain Go maps lose.
type Row struct {
	Columns []string
	Values  map[string]any
}

// Get returns the value for a column.
func (r Row) Get(name string) any {
	return r.Values[name]
}

// MarshalJSON emits the row as an object with keys in projection order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.Values[col])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
