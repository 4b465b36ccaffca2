package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rowstack-labs/hrmcp/internal/dataset"
	"github.com/rowstack-labs/hrmcp/internal/sandbox"
	"github.com/rowstack-labs/hrmcp/internal/store"
)

// Tool argument limits.
const (
	queryLimitMax    = 500
	findLimitMax     = 200
	findLimitDefault = 25
)

// handlerFunc executes one tool call. A returned error becomes an
// isError tool result carried in a successful response, never a
// transport fault.
type handlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

type registeredTool struct {
	Tool
	handler handlerFunc
}

// Registry is the static catalogue of tools. It is read-only after
// construction.
type Registry struct {
	tools  []registeredTool
	byName map[string]registeredTool
}

// NewRegistry builds the tool catalogue over a loaded dataset and its
// store.
func NewRegistry(st *store.Store, ds *dataset.Dataset) *Registry {
	r := &Registry{byName: make(map[string]registeredTool)}

	r.register(Tool{
		Name:         "metadata",
		Title:        "Dataset metadata",
		Description:  "Return the metadata header read from the source CSV file.",
		InputSchema:  map[string]any{"type": "object", "additionalProperties": false},
		OutputSchema: map[string]any{"type": "object"},
	}, func(_ context.Context, _ json.RawMessage) (any, error) {
		return ds.Metadata, nil
	})

	r.register(Tool{
		Name:         "schema",
		Title:        "Employee table schema",
		Description:  "Return SQLite schema information for the employees table.",
		InputSchema:  map[string]any{"type": "object", "additionalProperties": false},
		OutputSchema: map[string]any{"type": "object"},
	}, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return st.Schema(ctx)
	})

	r.register(Tool{
		Name:        "query",
		Title:       "Run a read-only SQL query",
		Description: "Execute a read-only SQL query (SELECT/WITH only) against the in-memory SQLite database.\n" +
			"Table name: employees\n" +
			"Example: SELECT department, COUNT(*) AS n FROM employees GROUP BY department",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text":  map[string]any{"type": "string", "description": "A SELECT/WITH SQL query to run."},
				"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": queryLimitMax, "description": "Optional row limit (wraps the query)."},
			},
			"required":             []string{"text"},
			"additionalProperties": false,
		},
		OutputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"rowCount": map[string]any{"type": "integer"},
				"rows":     map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
			},
			"required": []string{"rowCount", "rows"},
		},
	}, func(ctx context.Context, args json.RawMessage) (any, error) {
		return runQueryTool(ctx, st, args)
	})

	r.register(Tool{
		Name:        "findRecords",
		Title:       "Find employees (structured filters)",
		Description: "Find employees by common filters without writing SQL.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name_contains": map[string]any{"type": "string", "description": "Substring match against first or last name (case-insensitive)."},
				"department":    map[string]any{"type": "string"},
				"title":         map[string]any{"type": "string"},
				"location":      map[string]any{"type": "string"},
				"min_salary":    map[string]any{"type": "number"},
				"max_salary":    map[string]any{"type": "number"},
				"hired_after":   map[string]any{"type": "string", "description": "YYYY-MM-DD"},
				"hired_before":  map[string]any{"type": "string", "description": "YYYY-MM-DD"},
				"limit":         map[string]any{"type": "integer", "minimum": 1, "maximum": findLimitMax, "default": findLimitDefault},
			},
			"additionalProperties": false,
		},
		OutputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"rowCount":       map[string]any{"type": "integer"},
				"rows":           map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
				"appliedFilters": map[string]any{"type": "object"},
			},
			"required": []string{"rowCount", "rows", "appliedFilters"},
		},
	}, func(ctx context.Context, args json.RawMessage) (any, error) {
		return runFindRecordsTool(ctx, st, args)
	})

	return r
}

func (r *Registry) register(t Tool, h handlerFunc) {
	rt := registeredTool{Tool: t, handler: h}
	r.tools = append(r.tools, rt)
	r.byName[t.Name] = rt
}

// List returns the catalogue descriptors in registration order.
func (r *Registry) List() []Tool {
	tools := make([]Tool, len(r.tools))
	for i, t := range r.tools {
		tools[i] = t.Tool
	}
	return tools
}

// Call resolves name and invokes its handler. The ok return reports
// whether the tool exists; an unknown tool is the caller's transport
// error to raise.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (*ToolResult, bool) {
	t, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	payload, err := t.handler(ctx, args)
	if err != nil {
		return newToolResult(map[string]any{"error": err.Error()}, true), true
	}
	return newToolResult(payload, false), true
}

// --- query tool ---

type queryArgs struct {
	Text  *string `json:"text"`
	Limit *int    `json:"limit"`
}

func runQueryTool(ctx context.Context, st *store.Store, args json.RawMessage) (any, error) {
	var qa queryArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &qa); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}
	if qa.Text == nil || *qa.Text == "" {
		return nil, errors.New("Parameter 'text' is required.")
	}
	if qa.Limit != nil && (*qa.Limit < 1 || *qa.Limit > queryLimitMax) {
		return nil, fmt.Errorf("limit must be between 1 and %d", queryLimitMax)
	}
	return sandbox.Run(ctx, st, *qa.Text, qa.Limit)
}

// --- findRecords tool ---

type findRecordsArgs struct {
	NameContains *string  `json:"name_contains"`
	Department   *string  `json:"department"`
	Title        *string  `json:"title"`
	Location     *string  `json:"location"`
	MinSalary    *float64 `json:"min_salary"`
	MaxSalary    *float64 `json:"max_salary"`
	HiredAfter   *string  `json:"hired_after"`
	HiredBefore  *string  `json:"hired_before"`
	Limit        *int     `json:"limit"`
}

// appliedFilters echoes back every filter so callers can verify which
// constraints took effect. Unset filters serialize as null.
type appliedFilters struct {
	NameContains *string  `json:"name_contains"`
	Department   *string  `json:"department"`
	Title        *string  `json:"title"`
	Location     *string  `json:"location"`
	MinSalary    *float64 `json:"min_salary"`
	MaxSalary    *float64 `json:"max_salary"`
	HiredAfter   *string  `json:"hired_after"`
	HiredBefore  *string  `json:"hired_before"`
	Limit        int      `json:"limit"`
}

type findRecordsResult struct {
	RowCount       int            `json:"rowCount"`
	Rows           []store.Row    `json:"rows"`
	AppliedFilters appliedFilters `json:"appliedFilters"`
}

func runFindRecordsTool(ctx context.Context, st *store.Store, args json.RawMessage) (any, error) {
	var fa findRecordsArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &fa); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}

	limit := findLimitDefault
	if fa.Limit != nil {
		if *fa.Limit < 1 || *fa.Limit > findLimitMax {
			return nil, fmt.Errorf("limit must be between 1 and %d", findLimitMax)
		}
		limit = *fa.Limit
	}

	result, err := st.FindPeople(ctx, store.PeopleFilter{
		NameContains: fa.NameContains,
		Department:   fa.Department,
		Title:        fa.Title,
		Location:     fa.Location,
		MinSalary:    fa.MinSalary,
		MaxSalary:    fa.MaxSalary,
		HiredAfter:   fa.HiredAfter,
		HiredBefore:  fa.HiredBefore,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}

	return &findRecordsResult{
		RowCount: result.RowCount,
		Rows:     result.Rows,
		AppliedFilters: appliedFilters{
			NameContains: fa.NameContains,
			Department:   fa.Department,
			Title:        fa.Title,
			Location:     fa.Location,
			MinSalary:    fa.MinSalary,
			MaxSalary:    fa.MaxSalary,
			HiredAfter:   fa.HiredAfter,
			HiredBefore:  fa.HiredBefore,
			Limit:        limit,
		},
	}, nil
}
