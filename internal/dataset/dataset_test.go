package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MetadataHeader(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantMeta map[string]string
		wantRows int
	}{
		{
			name: "three metadata lines",
			input: "# dataset: HR People\n" +
				"# description: test fixture\n" +
				"# primary_key: employee_id\n" +
				"id,name\n1,Ada\n2,Bob\n",
			wantMeta: map[string]string{
				"dataset":     "HR People",
				"description": "test fixture",
				"primary_key": "employee_id",
			},
			wantRows: 2,
		},
		{
			name:     "no metadata",
			input:    "id,name\n1,Ada\n",
			wantMeta: map[string]string{},
			wantRows: 1,
		},
		{
			name:     "one metadata line then header",
			input:    "# dataset: Small\nid,name\n1,Ada\n",
			wantMeta: map[string]string{"dataset": "Small"},
			wantRows: 1,
		},
		{
			name:     "metadata line without colon",
			input:    "# just a note\nid,name\n1,Ada\n",
			wantMeta: map[string]string{"meta_line_1": "just a note"},
			wantRows: 1,
		},
		{
			name:     "indented comment marker",
			input:    "  # dataset: Indented\nid,name\n1,Ada\n",
			wantMeta: map[string]string{"dataset": "Indented"},
			wantRows: 1,
		},
		{
			name:     "value containing a colon",
			input:    "# note: a: b\nid,name\n1,Ada\n",
			wantMeta: map[string]string{"note": "a: b"},
			wantRows: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := Load(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.wantMeta, ds.Metadata)
			assert.Len(t, ds.Rows, tt.wantRows)
		})
	}
}

func TestLoad_CommentAfterHeaderIsData(t *testing.T) {
	// Only the leading lines can be metadata. A '#' line later in the
	// body is an ordinary record.
	input := "# dataset: X\nid,name\n1,Ada\n# not metadata,Bob\n"
	ds, err := Load(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"dataset": "X"}, ds.Metadata)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "# not metadata", ds.Rows[1]["id"])
	assert.Equal(t, "Bob", ds.Rows[1]["name"])
}

func TestLoad_FourthCommentLineIsData(t *testing.T) {
	// The metadata header is capped at three lines; a fourth '#' line
	// is the header row, comment marker and all.
	input := "# a: 1\n# b: 2\n# c: 3\n# d: 4\n"
	ds, err := Load(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, ds.Metadata)
	require.Len(t, ds.Columns, 1)
	assert.Equal(t, "# d: 4", ds.Columns[0].Name)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty stream", input: ""},
		{name: "metadata only", input: "# dataset: X\n"},
		{name: "three metadata lines only", input: "# a: 1\n# b: 2\n# c: 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoad_PadsAndTrimsFields(t *testing.T) {
	input := "id,name,city\n 1 , Ada ,Berlin\n2,Bob\n3,Cyd,Paris,extra\n"
	ds, err := Load(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, ds.Rows, 3)
	assert.Equal(t, "1", ds.Rows[0]["id"])
	assert.Equal(t, "Ada", ds.Rows[0]["name"])
	// Short records pad out to the declared columns.
	assert.Equal(t, "", ds.Rows[1]["city"])
	// Extra fields beyond the declared columns are dropped.
	assert.Equal(t, "Paris", ds.Rows[2]["city"])
}

func TestLoad_TrimsColumnNames(t *testing.T) {
	ds, err := Load(strings.NewReader(" id , name \n1,Ada\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, ds.ColumnNames())
}

func TestLoad_QuotedFields(t *testing.T) {
	input := "id,name\n1,\"Lovelace, Ada\"\n"
	ds, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "Lovelace, Ada", ds.Rows[0]["name"])
}

func TestLoad_NoTrailingNewline(t *testing.T) {
	ds, err := Load(strings.NewReader("# dataset: X\nid,name\n1,Ada"))
	require.NoError(t, err)
	assert.Equal(t, "X", ds.Metadata["dataset"])
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "Ada", ds.Rows[0]["name"])
}

func TestLoad_InferredTypes(t *testing.T) {
	input := "id,name,salary,code\n" +
		"1,Ada,98500.50,A1\n" +
		"2,Bob,61000,B2\n" +
		"3,Cyd,,C3\n"
	ds, err := Load(strings.NewReader(input))
	require.NoError(t, err)

	types := map[string]ColumnType{}
	for _, c := range ds.Columns {
		types[c.Name] = c.Type
	}
	assert.Equal(t, TypeInteger, types["id"])
	assert.Equal(t, TypeText, types["name"])
	assert.Equal(t, TypeReal, types["salary"])
	assert.Equal(t, TypeText, types["code"])
}
