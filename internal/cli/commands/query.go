package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rowstack-labs/hrmcp/internal/cli/config"
	"github.com/rowstack-labs/hrmcp/internal/dataset"
	"github.com/rowstack-labs/hrmcp/internal/sandbox"
	"github.com/rowstack-labs/hrmcp/internal/store"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
	Limit  int
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Query the dataset locally",
		Long: `Query the HR dataset directly, without going through the MCP
transport. The CSV is loaded into an in-memory SQLite database and the
query runs through the same read-only sandbox the server uses.

When invoked without arguments on a terminal, enters interactive REPL
mode.`,
		Example: `  # Execute SQL directly
  hrmcp query "SELECT department, COUNT(*) AS n FROM employees GROUP BY department"

  # Output as JSON
  hrmcp query "SELECT * FROM employees" --format json --limit 10

  # Interactive mode
  hrmcp query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md (default from config)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 0, "Row limit (0 for none)")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	logger := config.GetLogger(ctx)

	if opts.Format == "" {
		opts.Format = cfg.Output
	}

	ds, err := dataset.LoadFile(cfg.CSVPath)
	if err != nil {
		return err
	}
	st, err := store.Open(ds, logger)
	if err != nil {
		return fmt.Errorf("failed to build store: %w", err)
	}
	defer func() { _ = st.Close() }()

	// Determine SQL source
	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		return runQueryREPL(cmd, ds, st, opts)
	}

	return executeAndRender(cmd, st, ds, sqlQuery, opts)
}

func executeAndRender(cmd *cobra.Command, st *store.Store, ds *dataset.Dataset, sqlQuery string, opts *QueryOptions) error {
	sqlQuery = strings.TrimRight(strings.TrimSpace(sqlQuery), ";")

	var limit *int
	if opts.Limit > 0 {
		limit = &opts.Limit
	}

	result, err := sandbox.Run(cmd.Context(), st, sqlQuery, limit)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return renderResult(cmd.OutOrStdout(), result, opts.Format)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
