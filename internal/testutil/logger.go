// Package testutil provides shared helpers for tests.
package testutil

import (
	"log/slog"
	"testing"
)

// NewTestLogger returns a logger that routes records through t.Log, so
// output only surfaces on failure or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(logWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type logWriter struct {
	t testing.TB
}

func (w logWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
