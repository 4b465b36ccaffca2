// Package mcp implements a Model Context Protocol server over a
// newline-delimited JSON-RPC 2.0 byte stream. The outbound stream
// carries protocol messages exclusively; diagnostics go to the logger.
package mcp

import "encoding/json"

// ProtocolVersion is the protocol revision this server speaks. The
// initialize response always carries it regardless of what the client
// offered; an incompatible client is expected to disconnect.
const ProtocolVersion = "2025-11-25"

// JSON-RPC error codes used by the dispatcher.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Message is a JSON-RPC 2.0 envelope: request, notification or
// response. Presence of ID distinguishes a request (answered) from a
// notification (never answered).
type Message struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *Error           `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Initialization ---

// InitializeParams is what a client sends in its initialize request.
// Only the fields the server reads are declared.
type InitializeParams struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ClientInfo      ClientInfo `json:"clientInfo"`
}

// ClientInfo identifies the connecting client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the response to an initialize request.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Instructions    string       `json:"instructions"`
}

// Capabilities describes what the server supports.
type Capabilities struct {
	Tools ToolCapabilities `json:"tools"`
}

// ToolCapabilities describes the tool feature set.
type ToolCapabilities struct {
	ListChanged bool `json:"listChanged"`
}

// ServerInfo is the tool-independent server identity.
type ServerInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// --- Tools ---

// Tool is a declarative descriptor for one named operation. The
// schemas are self-description for callers; handlers enforce their own
// argument checks.
type Tool struct {
	Name         string         `json:"name"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"inputSchema"`
	OutputSchema map[string]any `json:"outputSchema"`
}

// ListToolsResult is the tools/list payload. The full catalogue is
// returned in one page; no pagination cursor is honored.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolParams are the tools/call parameters.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ContentBlock is one element of a tool result's content list.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult wraps a tool payload for the wire: a text rendering for
// display plus the raw value for programmatic use. IsError marks a
// handler-level failure carried in-band; it is never a transport fault.
type ToolResult struct {
	Content           []ContentBlock `json:"content"`
	StructuredContent any            `json:"structuredContent"`
	IsError           bool           `json:"isError"`
}

// newToolResult builds a ToolResult from a payload.
func newToolResult(payload any, isError bool) *ToolResult {
	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		text = []byte("(unrenderable payload)")
	}
	return &ToolResult{
		Content:           []ContentBlock{{Type: "text", Text: string(text)}},
		StructuredContent: payload,
		IsError:           isError,
	}
}
