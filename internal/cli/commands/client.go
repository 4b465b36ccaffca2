package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rowstack-labs/hrmcp/internal/cli/config"
	"github.com/rowstack-labs/hrmcp/internal/mcp"
	"github.com/spf13/cobra"
)

// clientQueryLimit bounds interactive queries issued by the client.
const clientQueryLimit = 50

// ClientOptions holds options for the client command.
type ClientOptions struct {
	Server string
}

// NewClientCommand creates the client command.
func NewClientCommand() *cobra.Command {
	opts := &ClientOptions{}

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Interactively drive an hrmcp server subprocess",
		Long: `Spawn an hrmcp server as a subprocess and drive it over the MCP
stdio transport: initialize, list the tools, then enter an interactive
loop issuing read-only SQL through the query tool.

The server's stderr is drained on a separate goroutine so its
diagnostics appear without ever blocking the exchange.`,
		Example: `  hrmcp client
  hrmcp client --csv ./data/hr_people.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClient(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", "", "Server executable to spawn (default: this binary)")

	return cmd
}

func runClient(cmd *cobra.Command, opts *ClientOptions) error {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	logger := config.GetLogger(ctx)
	out := cmd.OutOrStdout()

	serverBin := opts.Server
	if serverBin == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("cannot locate server executable: %w", err)
		}
		serverBin = self
	}

	client, err := mcp.StartClient(serverBin, []string{"serve", "--csv", cfg.CSVPath}, cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	init, err := client.Request("initialize", map[string]any{
		"protocolVersion": mcp.ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "hrmcp-client", "version": "0.1.0"},
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, "Initialize response:")
	printMessage(out, init)

	if err := client.Notify("notifications/initialized", nil); err != nil {
		return err
	}

	tools, err := client.Request("tools/list", map[string]any{})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, "\nTools:")
	printMessage(out, tools)

	return runClientREPL(cmd, client)
}

func runClientREPL(cmd *cobra.Command, client *mcp.Client) error {
	out := cmd.OutOrStdout()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "SQL> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(out, "\nInteractive mode. Type SQL (SELECT ...) or 'exit'.")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if lower := strings.ToLower(line); lower == "exit" || lower == "quit" {
			break
		}

		resp, err := client.Request("tools/call", map[string]any{
			"name":      "query",
			"arguments": map[string]any{"text": line, "limit": clientQueryLimit},
		})
		if err != nil {
			return err
		}
		printMessage(out, resp)
	}

	return nil
}

// printMessage renders a server response: the error object for
// transport faults, the tool result's text block when present,
// otherwise the raw result.
func printMessage(w io.Writer, msg *mcp.Message) {
	if msg.Error != nil {
		_, _ = fmt.Fprintf(w, "JSON-RPC error %d: %s\n", msg.Error.Code, msg.Error.Message)
		return
	}

	var result struct {
		Content []mcp.ContentBlock `json:"content"`
		IsError bool               `json:"isError"`
	}
	if err := json.Unmarshal(msg.Result, &result); err == nil && len(result.Content) > 0 {
		if result.IsError {
			_, _ = fmt.Fprintln(w, "Tool error:")
		}
		for _, block := range result.Content {
			_, _ = fmt.Fprintln(w, block.Text)
		}
		return
	}

	var pretty map[string]any
	if err := json.Unmarshal(msg.Result, &pretty); err == nil {
		printJSON(w, pretty)
		return
	}
	_, _ = fmt.Fprintln(w, string(msg.Result))
}
