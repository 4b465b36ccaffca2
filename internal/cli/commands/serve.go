package commands

import (
	"fmt"
	"os"

	"github.com/rowstack-labs/hrmcp/internal/cli/config"
	"github.com/rowstack-labs/hrmcp/internal/dataset"
	"github.com/rowstack-labs/hrmcp/internal/mcp"
	"github.com/rowstack-labs/hrmcp/internal/store"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdin/stdout",
		Long: `Start the MCP server.

The server loads the configured CSV into an in-memory SQLite database,
then speaks newline-delimited JSON-RPC 2.0 on stdin/stdout until the
input stream is closed. Nothing but protocol messages is ever written
to stdout; all diagnostics go to stderr.`,
		Example: `  # Start the server (usually spawned by an MCP host)
  hrmcp serve --csv ./data/hr_people.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	logger := config.GetLogger(ctx)

	ds, err := dataset.LoadFile(cfg.CSVPath)
	if err != nil {
		// Load faults are fatal: no partial service.
		return err
	}

	st, err := store.Open(ds, logger)
	if err != nil {
		return fmt.Errorf("failed to build store: %w", err)
	}
	defer func() { _ = st.Close() }()

	registry := mcp.NewRegistry(st, ds)
	logger.Info("dataset loaded", "path", cfg.CSVPath, "rows", len(ds.Rows), "columns", len(ds.Columns))

	server := mcp.NewServerWithLogger(registry, serverInfo(), os.Stdin, os.Stdout, logger)
	return server.Run()
}

func serverInfo() mcp.ServerInfo {
	return mcp.ServerInfo{
		Name:        "hrmcp",
		Title:       "HR MCP (CSV to SQLite)",
		Version:     "0.1.0",
		Description: "MCP server exposing read-only tools over an HR employee CSV.",
	}
}
