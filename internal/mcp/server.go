package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Server frames JSON-RPC messages off an inbound byte stream, routes
// them by method and writes responses back, one JSON document per line.
//
// It moves through Uninitialized -> Initialized as the handshake
// completes, and processes exactly one message at a time: there is no
// overlap between requests, so the immutable store needs no locking.
type Server struct {
	registry *Registry
	info     ServerInfo

	reader *bufio.Reader
	writer io.Writer

	logger *slog.Logger

	initialized bool
}

// NewServer creates a server speaking the stdio transport on the given
// streams.
func NewServer(registry *Registry, info ServerInfo, reader io.Reader, writer io.Writer) *Server {
	return NewServerWithLogger(registry, info, reader, writer, nil)
}

// NewServerWithLogger creates a server with a custom logger. The logger
// must never share the writer: the protocol stream carries JSON-RPC
// messages only.
func NewServerWithLogger(registry *Registry, info ServerInfo, reader io.Reader, writer io.Writer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Server{
		registry: registry,
		info:     info,
		reader:   bufio.NewReader(reader),
		writer:   writer,
		logger:   logger,
	}
}

// Run processes inbound lines until the stream is closed. A line that
// is not a JSON object is skipped; a fault inside a handler answers
// -32603 when the message carried an id. Neither tears the loop down.
func (s *Server) Run() error {
	s.logger.Info("MCP server ready", "tools", len(s.registry.tools))

	for {
		line, err := s.reader.ReadString('\n')
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			var msg Message
			if jsonErr := json.Unmarshal([]byte(trimmed), &msg); jsonErr != nil {
				s.logger.Warn("skipping unparseable line", "error", jsonErr)
			} else {
				s.handleMessage(&msg)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("input stream closed")
				return nil
			}
			return err
		}
	}
}

// handleMessage dispatches one decoded envelope. Panics are contained
// here so a broken handler cannot take the dispatch loop down.
func (s *Server) handleMessage(msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("internal error while handling message", "method", msg.Method, "panic", r)
			if msg.ID != nil {
				s.sendError(msg.ID, CodeInternalError, "Internal error", nil)
			}
		}
	}()

	s.logger.Debug("received", "method", msg.Method)

	// Responses always carry the request id, so a request-shaped method
	// arriving as a notification is dropped rather than answered with a
	// null id.
	switch msg.Method {
	case "initialize", "tools/list", "tools/call":
		if msg.ID == nil {
			s.logger.Warn("ignoring request method sent without an id", "method", msg.Method)
			return
		}
	}

	switch msg.Method {
	case "initialize":
		s.handleInitialize(msg)
	case "notifications/initialized":
		s.initialized = true
		s.logger.Info("client initialized")
	case "tools/list":
		s.sendResponse(msg.ID, &ListToolsResult{Tools: s.registry.List()})
	case "tools/call":
		s.handleToolsCall(msg)
	case "ping":
		if msg.ID != nil {
			s.sendResponse(msg.ID, struct{}{})
		}
	default:
		if msg.ID != nil {
			s.sendError(msg.ID, CodeMethodNotFound, "Method not found: "+msg.Method, nil)
		}
	}
}

func (s *Server) handleInitialize(msg *Message) {
	var params InitializeParams
	if len(msg.Params) > 0 {
		// Client parameters are informational only; the server answers
		// with its own fixed protocol version either way.
		_ = json.Unmarshal(msg.Params, &params)
	}
	if params.ClientInfo.Name != "" {
		s.logger.Info("initialize", "client", params.ClientInfo.Name, "clientVersion", params.ClientInfo.Version, "offeredProtocol", params.ProtocolVersion)
	}

	s.sendResponse(msg.ID, &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    Capabilities{Tools: ToolCapabilities{ListChanged: false}},
		ServerInfo:      s.info,
		Instructions: "Ready. Use tools/list to discover tools, then tools/call to query.\n" +
			"This server is read-only: only SELECT/WITH queries are permitted.",
	})
}

func (s *Server) handleToolsCall(msg *Message) {
	var params CallToolParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendError(msg.ID, CodeInvalidParams, "Invalid tools/call params: "+err.Error(), nil)
		return
	}

	result, ok := s.registry.Call(context.Background(), params.Name, params.Arguments)
	if !ok {
		s.sendError(msg.ID, CodeInvalidParams, "Unknown tool: "+params.Name, nil)
		return
	}
	if result.IsError {
		s.logger.Debug("tool reported error", "tool", params.Name)
	}
	s.sendResponse(msg.ID, result)
}

// sendResponse writes a result response for id.
func (s *Server) sendResponse(id *json.RawMessage, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("failed to marshal result", "error", err)
		s.sendError(id, CodeInternalError, "Internal error", nil)
		return
	}
	s.writeMessage(&Message{JSONRPC: "2.0", ID: id, Result: raw})
}

// sendError writes an error response for id.
func (s *Server) sendError(id *json.RawMessage, code int, message string, data any) {
	s.writeMessage(&Message{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message, Data: data}})
}

// writeMessage emits one message as a single line. json.Marshal escapes
// any embedded newlines inside strings, which the framing relies on.
func (s *Server) writeMessage(msg *Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal message", "error", err)
		return
	}
	if _, err := s.writer.Write(append(body, '\n')); err != nil {
		s.logger.Error("failed to write message", "error", err)
	}
}
