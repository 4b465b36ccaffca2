// Package cli provides the command-line interface for hrmcp.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rowstack-labs/hrmcp/internal/cli/commands"
	"github.com/rowstack-labs/hrmcp/internal/cli/config"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version = "0.1.0"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "hrmcp",
		Short: "hrmcp - MCP server for an HR employee dataset",
		Long: `hrmcp loads an HR employee CSV (with a comment-style metadata header)
into an in-memory SQLite database and exposes read-only query tools
over the MCP stdio transport.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./hrmcp.yaml)")
	rootCmd.PersistentFlags().String("csv", "", "Path to the HR people CSV file")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (table|json|csv|md)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "csv", "md"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewClientCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
