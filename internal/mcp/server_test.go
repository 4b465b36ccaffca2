package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rowstack-labs/hrmcp/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "hrmcp",
		Title:       "HR MCP (CSV to SQLite)",
		Version:     "0.0.0-test",
		Description: "test instance",
	}
}

// runSession feeds lines to a fresh server and returns the decoded
// responses keyed by request id.
func runSession(t *testing.T, lines ...string) map[string]*Message {
	t.Helper()
	registry, _ := setupRegistry(t)

	input := strings.Join(lines, "\n") + "\n"
	var out bytes.Buffer
	srv := NewServerWithLogger(registry, testServerInfo(), strings.NewReader(input), &out, testutil.NewTestLogger(t))
	require.NoError(t, srv.Run())

	responses := make(map[string]*Message)
	for _, raw := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if raw == "" {
			continue
		}
		var msg Message
		require.NoError(t, json.Unmarshal([]byte(raw), &msg), "every output line is a JSON message: %q", raw)
		require.Equal(t, "2.0", msg.JSONRPC)
		require.NotNil(t, msg.ID, "responses always carry the request id")
		responses[string(*msg.ID)] = &msg
	}
	return responses
}

func decodeResult(t *testing.T, msg *Message, v any) {
	t.Helper()
	require.Nil(t, msg.Error)
	require.NoError(t, json.Unmarshal(msg.Result, v))
}

func TestNewServerDefaultLogger(t *testing.T) {
	registry, _ := setupRegistry(t)

	// The plain constructor falls back to a stderr logger so a nil
	// logger can never panic the dispatch loop.
	srv := NewServer(registry, testServerInfo(), strings.NewReader(""), &bytes.Buffer{})
	require.NotNil(t, srv.logger)
	require.NoError(t, srv.Run())
}

func TestServerHandshake(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc": "2.0", "id": 1, "method": "initialize", "params": {"protocolVersion": "2025-11-25", "clientInfo": {"name": "tester", "version": "1.0"}}}`,
		`{"jsonrpc": "2.0", "method": "notifications/initialized"}`,
		`{"jsonrpc": "2.0", "id": 2, "method": "tools/list"}`,
	)
	require.Len(t, responses, 2)

	var init InitializeResult
	decodeResult(t, responses["1"], &init)
	assert.Equal(t, ProtocolVersion, init.ProtocolVersion)
	assert.Equal(t, "hrmcp", init.ServerInfo.Name)
	assert.False(t, init.Capabilities.Tools.ListChanged)
	assert.NotEmpty(t, init.Instructions)

	var list ListToolsResult
	decodeResult(t, responses["2"], &list)
	require.Len(t, list.Tools, 4)
	assert.Equal(t, "metadata", list.Tools[0].Name)
}

func TestServerToolsCall(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc": "2.0", "id": 1, "method": "tools/call", "params": {"name": "query", "arguments": {"text": "SELECT COUNT(*) AS n FROM employees"}}}`,
	)

	var result ToolResult
	decodeResult(t, responses["1"], &result)
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].Text, `"n": 3`)
}

func TestServerToolErrorStaysInBand(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc": "2.0", "id": 1, "method": "tools/call", "params": {"name": "query", "arguments": {"text": "DROP TABLE employees"}}}`,
		`{"jsonrpc": "2.0", "id": 2, "method": "tools/call", "params": {"name": "query", "arguments": {"text": "SELECT COUNT(*) AS n FROM employees"}}}`,
	)

	// A rejected query is a successful response whose result is marked
	// isError; the transport error channel stays clean.
	var rejected ToolResult
	decodeResult(t, responses["1"], &rejected)
	assert.True(t, rejected.IsError)
	assert.Contains(t, rejected.Content[0].Text, "Only SELECT or WITH")

	var ok ToolResult
	decodeResult(t, responses["2"], &ok)
	assert.False(t, ok.IsError)
}

func TestServerUnknownTool(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc": "2.0", "id": 1, "method": "tools/call", "params": {"name": "bogus", "arguments": {}}}`,
	)

	msg := responses["1"]
	require.NotNil(t, msg.Error)
	assert.Equal(t, CodeInvalidParams, msg.Error.Code)
	assert.Contains(t, msg.Error.Message, "bogus")
}

func TestServerUnknownMethod(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc": "2.0", "id": 1, "method": "resources/list"}`,
		`{"jsonrpc": "2.0", "method": "resources/subscribe"}`,
	)

	// The request gets -32601; the notification gets nothing.
	require.Len(t, responses, 1)
	msg := responses["1"]
	require.NotNil(t, msg.Error)
	assert.Equal(t, CodeMethodNotFound, msg.Error.Code)
}

func TestServerPing(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc": "2.0", "id": 7, "method": "ping"}`,
		`{"jsonrpc": "2.0", "method": "ping"}`,
	)
	require.Len(t, responses, 1)

	var empty map[string]any
	decodeResult(t, responses["7"], &empty)
	assert.Empty(t, empty)
}

func TestServerContainsHandlerPanic(t *testing.T) {
	registry, _ := setupRegistry(t)
	registry.register(Tool{
		Name:        "unstable",
		InputSchema: map[string]any{"type": "object"},
	}, func(_ context.Context, _ json.RawMessage) (any, error) {
		panic("handler blew up")
	})

	input := strings.Join([]string{
		`{"jsonrpc": "2.0", "id": 1, "method": "tools/call", "params": {"name": "unstable", "arguments": {}}}`,
		`{"jsonrpc": "2.0", "id": 2, "method": "ping"}`,
	}, "\n") + "\n"
	var out bytes.Buffer
	srv := NewServerWithLogger(registry, testServerInfo(), strings.NewReader(input), &out, testutil.NewTestLogger(t))
	require.NoError(t, srv.Run())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	// The fault is answered as -32603 and the loop keeps serving.
	var fault Message
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &fault))
	require.NotNil(t, fault.Error)
	assert.Equal(t, CodeInternalError, fault.Error.Code)

	var pong Message
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &pong))
	assert.Nil(t, pong.Error)
}

func TestServerDropsRequestsWithoutID(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc": "2.0", "method": "initialize", "params": {"protocolVersion": "2025-11-25"}}`,
		`{"jsonrpc": "2.0", "method": "tools/list"}`,
		`{"jsonrpc": "2.0", "method": "tools/call", "params": {"name": "metadata", "arguments": {}}}`,
		`{"jsonrpc": "2.0", "id": 1, "method": "ping"}`,
	)

	// Only the ping carried an id; nothing else is answered.
	require.Len(t, responses, 1)
	assert.Nil(t, responses["1"].Error)
}

func TestServerSkipsGarbageLines(t *testing.T) {
	responses := runSession(t,
		`this is not json`,
		``,
		`{"jsonrpc": "2.0", "id": 1, "method": "ping"}`,
	)

	// Garbage and blank lines are skipped without tearing the loop down.
	require.Len(t, responses, 1)
	assert.Nil(t, responses["1"].Error)
}

func TestServerInvalidToolsCallParams(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc": "2.0", "id": 1, "method": "tools/call", "params": "not an object"}`,
	)

	msg := responses["1"]
	require.NotNil(t, msg.Error)
	assert.Equal(t, CodeInvalidParams, msg.Error.Code)
}

func TestServerNoTrailingNewlineOnLastLine(t *testing.T) {
	registry, _ := setupRegistry(t)

	var out bytes.Buffer
	srv := NewServerWithLogger(registry, testServerInfo(), strings.NewReader(`{"jsonrpc": "2.0", "id": 1, "method": "ping"}`), &out, testutil.NewTestLogger(t))
	require.NoError(t, srv.Run())

	var msg Message
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &msg))
	assert.Nil(t, msg.Error)
}
