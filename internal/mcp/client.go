package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
)

// Client drives an MCP server subprocess over the stdio transport. The
// server's stderr is drained on its own goroutine so diagnostics can
// never block the request/response exchange; that goroutine is the
// only concurrency in the whole system.
type Client struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	logger *slog.Logger
	nextID int64
}

// StartClient spawns the server command with piped stdio. Diagnostics
// from the server are copied to stderrSink as they arrive.
func StartClient(name string, args []string, stderrSink io.Writer, logger *slog.Logger) (*Client, error) {
	cmd := exec.Command(name, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open server stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open server stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open server stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start server %s: %w", name, err)
	}

	go func() {
		_, _ = io.Copy(stderrSink, stderr)
	}()

	return &Client{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		logger: logger,
		nextID: 1,
	}, nil
}

// Request sends a request and blocks until the response with the
// matching id arrives. Messages with other ids (or none) are skipped.
func (c *Client) Request(method string, params any) (*Message, error) {
	id := c.nextID
	c.nextID++

	if err := c.send(method, params, &id); err != nil {
		return nil, err
	}

	want := []byte(strconv.FormatInt(id, 10))
	for {
		line, err := c.stdout.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("server closed its output stream: %w", err)
		}

		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			c.logger.Warn("skipping unparseable server line", "error", err)
			continue
		}
		if msg.ID != nil && bytes.Equal(bytes.TrimSpace(*msg.ID), want) {
			return &msg, nil
		}
	}
}

// Notify sends a notification; no response is expected.
func (c *Client) Notify(method string, params any) error {
	return c.send(method, params, nil)
}

func (c *Client) send(method string, params any, id *int64) error {
	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	if id != nil {
		msg["id"] = *id
	}
	if params != nil {
		msg["params"] = params
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", method, err)
	}
	if _, err := c.stdin.Write(append(body, '\n')); err != nil {
		return fmt.Errorf("failed to write %s: %w", method, err)
	}
	return nil
}

// Close ends the session by closing the server's input stream, which
// terminates its dispatch loop, then waits for the process to exit.
func (c *Client) Close() error {
	_ = c.stdin.Close()
	return c.cmd.Wait()
}
