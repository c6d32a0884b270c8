package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/scribe/am"
	"github.com/teranos/scribe/cmd/scribe/commands"
	"github.com/teranos/scribe/logger"
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "scribe - generate descriptions for database catalogs",
	Long: `scribe - generate descriptions for database catalogs.

scribe reads a catalog of tables and columns, schedules a description for
each one (tables before their columns), and stores the results in its
SQLite database.

Available commands:
  generate - Generate descriptions for a catalog file
  ls       - List stored descriptions
  cache    - Manage the persistent result cache
  am       - Show and validate configuration
  version  - Show build information

Examples:
  scribe generate catalog.yaml              # Describe every table and column
  scribe generate catalog.yaml --columns 4  # One table's column, plus its table
  scribe ls --item table_1                  # Latest description of a table
  scribe am show --format json              # Effective configuration`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 'am show' prints config to stdout and must stay clean
		if cmd.Name() == "show" {
			return nil
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLog, _ := cmd.Flags().GetBool("log-json")
		if cfg, err := am.Load(); err == nil {
			verbosity = max(verbosity, cfg.Log.Verbosity)
			jsonLog = jsonLog || cfg.Log.JSON
		}
		if err := logger.Initialize(jsonLog, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	rootCmd.PersistentFlags().String("db", "", "Database path (overrides database.path)")

	rootCmd.AddCommand(commands.GenerateCmd)
	rootCmd.AddCommand(commands.LsCmd)
	rootCmd.AddCommand(commands.CacheCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
