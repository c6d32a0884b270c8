package commands

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/teranos/scribe/am"
	"github.com/teranos/scribe/db"
	"github.com/teranos/scribe/logger"
)

// databasePath resolves --db over database.path
func databasePath(cmd *cobra.Command, cfg *am.Config) string {
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		return path
	}
	return cfg.Database.Path
}

// openDatabase opens and migrates the scribe database
func openDatabase(cmd *cobra.Command, cfg *am.Config) (*sql.DB, error) {
	return db.OpenWithMigrations(databasePath(cmd, cfg), logger.ComponentLogger("db"))
}
