package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rowstack-labs/hrmcp/internal/dataset"
	"github.com/rowstack-labs/hrmcp/internal/store"
	"github.com/spf13/cobra"
)

func runQueryREPL(cmd *cobra.Command, ds *dataset.Dataset, st *store.Store, opts *QueryOptions) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "hrmcp> ",
		AutoComplete:    newQueryCompleter(ds),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "hrmcp query REPL (table: employees)")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

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

		if strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(cmd, ds, st, line, opts.Format); quit {
				break
			}
			continue
		}

		if err := executeAndRender(cmd, st, ds, line, opts); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

// handleDotCommand runs a REPL dot-command and reports whether the
// REPL should exit.
func handleDotCommand(cmd *cobra.Command, ds *dataset.Dataset, st *store.Store, line, format string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(cmd.OutOrStdout())

	case ".schema":
		info, err := st.Schema(cmd.Context())
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return false
		}
		printJSON(cmd.OutOrStdout(), info)

	case ".metadata":
		printJSON(cmd.OutOrStdout(), ds.Metadata)

	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .schema         Show the employees table schema
  .metadata       Show the dataset metadata header
  .quit / .exit   Exit the REPL

Tips:
  - Queries are single statements; a trailing semicolon is ignored
  - Only SELECT/WITH queries are permitted
  - Tab completion works for column names
`
	_, _ = fmt.Fprintln(w, help)
}

// newQueryCompleter creates a readline completer for the table and
// column names plus the dot-commands.
func newQueryCompleter(ds *dataset.Dataset) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	items = append(items, readline.PcItem(store.TableName))
	for _, name := range ds.ColumnNames() {
		items = append(items, readline.PcItem(name))
	}
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".schema"),
		readline.PcItem(".metadata"),
		readline.PcItem(".quit"),
	)
	return readline.NewPrefixCompleter(items...)
}
