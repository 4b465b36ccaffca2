package dataset

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rowsOf(col string, values ...string) []map[string]string {
	rows := make([]map[string]string, len(values))
	for i, v := range values {
		rows[i] = map[string]string{col: v}
	}
	return rows
}

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   ColumnType
	}{
		{name: "all integers", values: []string{"1", "42", "-7"}, want: TypeInteger},
		{name: "integers with empties", values: []string{"1", "", "3"}, want: TypeInteger},
		{name: "mixed integer and float", values: []string{"1", "2.5"}, want: TypeReal},
		{name: "scientific notation", values: []string{"1e3", "2.5"}, want: TypeReal},
		{name: "one non-numeric value", values: []string{"1", "2", "n/a"}, want: TypeText},
		{name: "all empty", values: []string{"", "", ""}, want: TypeText},
		{name: "no rows", values: nil, want: TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := inferColumnType("v", rowsOf("v", tt.values...))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferColumnType_SampleIsBounded(t *testing.T) {
	// Row 101 is non-numeric but outside the sample, so the column
	// still types as Integer.
	values := make([]string, inferSampleSize+1)
	for i := range values {
		values[i] = strconv.Itoa(i)
	}
	values[inferSampleSize] = "not a number"

	got := inferColumnType("v", rowsOf("v", values...))
	assert.Equal(t, TypeInteger, got)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		raw      string
		typ      ColumnType
		want     any
		wantKept bool
	}{
		{raw: "42", typ: TypeInteger, want: int64(42)},
		{raw: "4.5", typ: TypeReal, want: 4.5},
		{raw: "42", typ: TypeReal, want: 42.0},
		{raw: "hello", typ: TypeText, want: "hello"},
		// Empty coerces to absent regardless of type.
		{raw: "", typ: TypeInteger, want: nil},
		{raw: "", typ: TypeText, want: nil},
		// Values outside the sample that fail to parse keep their text.
		{raw: "n/a", typ: TypeInteger, want: "n/a", wantKept: true},
		{raw: "n/a", typ: TypeReal, want: "n/a", wantKept: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.typ, tt.raw), func(t *testing.T) {
			got, kept := Coerce(tt.raw, tt.typ)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantKept, kept)
		})
	}
}
