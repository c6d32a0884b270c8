package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/scribe/am"
	"github.com/teranos/scribe/logger"
	"github.com/teranos/scribe/store"
	"github.com/teranos/scribe/sym"
)

// CacheCmd manages the persistent result cache
var CacheCmd = &cobra.Command{
	Use:   "cache",
	Short: sym.DB + " Manage the persistent result cache",
	Long: sym.DB + ` cache - Inspect or clear results kept by generation.persistent_cache

Examples:
  scribe cache stats   # Number of cached results
  scribe cache clear   # Forget every cached result`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of cached results",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, closeDB, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		n, err := cache.Len(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d cached results\n", n)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached result",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, closeDB, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		n, err := cache.Clear(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d cached results\n", n)
		return nil
	},
}

func init() {
	CacheCmd.AddCommand(cacheStatsCmd)
	CacheCmd.AddCommand(cacheClearCmd)
}

func openCache(cmd *cobra.Command) (*store.CacheStore, func(), error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	conn, err := openDatabase(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store.NewCacheStore(conn, logger.ComponentLogger("scribe")), func() { conn.Close() }, nil
}
