// Package sandbox gates which caller-supplied SQL texts may execute.
//
// Validation is a syntactic denylist, not a parser-backed proof of
// safety: keywords are matched as whole words anywhere in the text, so
// a string literal containing 'insert here' is rejected even though it
// is harmless, while a column named dropped_date passes. This trades
// rigor for simplicity; the single-statement and SELECT/WITH checks
// carry the real weight.
package sandbox

import (
	"context"
	"regexp"
	"strings"

	"github.com/rowstack-labs/hrmcp/internal/store"
)

var (
	startPattern = regexp.MustCompile(`(?i)^(select|with)\b`)
	denyPattern  = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|create|alter|attach|detach|pragma|vacuum|reindex|replace)\b`)
)

// ValidationError reports a query rejected before reaching the engine.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validate applies the read-only checks in order to the trimmed text:
// SELECT/WITH prefix, no statement separator, no write/DDL keywords.
func Validate(text string) error {
	trimmed := strings.TrimSpace(text)
	if !startPattern.MatchString(trimmed) {
		return &ValidationError{Reason: "Only SELECT or WITH queries are allowed."}
	}
	if strings.Contains(trimmed, ";") {
		return &ValidationError{Reason: "Semicolons are not allowed (single statement only)."}
	}
	if denyPattern.MatchString(trimmed) {
		return &ValidationError{Reason: "Only read-only queries are allowed (no write/DDL keywords)."}
	}
	return nil
}

// Run validates text and executes it against the store. When limit is
// set the original text is wrapped as a subquery with the limit bound
// as a parameter, so a caller cannot smuggle a second LIMIT/OFFSET
// clause past validation. Engine errors come back as plain errors for
// the caller to report in-band.
func Run(ctx context.Context, st *store.Store, text string, limit *int) (*store.Result, error) {
	if err := Validate(text); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	if limit != nil {
		return st.Query(ctx, "SELECT * FROM ("+trimmed+") LIMIT ?", *limit)
	}
	return st.Query(ctx, trimmed)
}
