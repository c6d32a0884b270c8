package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/scribe/am"
	"github.com/teranos/scribe/catalog"
	"github.com/teranos/scribe/display"
	"github.com/teranos/scribe/errors"
	"github.com/teranos/scribe/logger"
	"github.com/teranos/scribe/pulse/generate"
	"github.com/teranos/scribe/store"
	"github.com/teranos/scribe/sym"
)

// GenerateCmd represents the generate command
var GenerateCmd = &cobra.Command{
	Use:   "generate <catalog-file>",
	Short: sym.Pulse + " Generate descriptions for a catalog",
	Long: sym.Pulse + ` generate - Describe every table and column of a catalog file

Tables are generated before their columns so column prompts can include the
table's description. Calls are bounded by generation.max_concurrent workers
and generation.rate_limit_per_minute; identical prompts are answered from
the cache.

Catalog files may be YAML (.yaml, .yml), JSON (.json) or TOML (.toml).

Examples:
  scribe generate catalog.yaml                    # Everything
  scribe generate catalog.yaml --columns 10,11    # Two columns and their tables
  scribe generate catalog.yaml --rate 30 -c 2     # Slower, two workers
  scribe generate catalog.yaml --json             # JSON progress events`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	addGenerateFlags(GenerateCmd)
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Slice("columns", nil, "Column IDs to generate (default: all)")
	cmd.Flags().Bool("no-cache", false, "Disable the result cache")
	cmd.Flags().IntP("concurrency", "c", 0, "Worker count (overrides generation.max_concurrent)")
	cmd.Flags().Int("rate", 0, "Calls per minute (overrides generation.rate_limit_per_minute)")
	cmd.Flags().Int("retries", -1, "Retries after the first attempt (overrides generation.max_retries)")
	cmd.Flags().String("on-failure", "", "What happens to columns of a failed table: skip, leave_pending")
	cmd.Flags().BoolP("json", "j", false, "Emit progress as JSON events")
}

// applyOverrides layers generate flags over a copy of cfg
func applyOverrides(cmd *cobra.Command, cfg *am.Config) (*am.Config, error) {
	out := *cfg
	flags := cmd.Flags()

	if flags.Changed("concurrency") {
		out.Generation.MaxConcurrent, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("rate") {
		out.Generation.RateLimitPerMinute, _ = flags.GetInt("rate")
	}
	if flags.Changed("retries") {
		out.Generation.MaxRetries, _ = flags.GetInt("retries")
	}
	if flags.Changed("on-failure") {
		out.Generation.FailedDependency, _ = flags.GetString("on-failure")
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		out.Generation.CacheEnabled = false
		out.Generation.PersistentCache = false
	}
	if path := databasePath(cmd, &out); path != "" {
		out.Database.Path = path
	}

	if err := out.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid generate options")
	}
	return &out, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	base, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := applyOverrides(cmd, base)
	if err != nil {
		return err
	}
	engineCfg, err := generate.ConfigFromAm(cfg)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(args[0])
	if err != nil {
		return err
	}
	columnIDs, _ := cmd.Flags().GetInt64Slice("columns")

	conn, err := openDatabase(cmd, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	log := logger.ComponentLogger("scribe")
	descriptions := store.NewDescriptionStore(conn, catalog.PromptVersion)

	verbosity, _ := cmd.Flags().GetCount("verbose")
	emitter := newEmitter(display.ShouldOutputJSON(cmd), cmd.OutOrStdout(), verbosity)

	opts := []generate.Option{
		generate.WithLogger(log),
		generate.WithObserver(generate.EmitterObserver(emitter)),
		// column prompts read their table's description once it is saved
		generate.WithDeferredContext(),
	}
	if cfg.Generation.PersistentCache {
		opts = append(opts, generate.WithCache(store.NewCacheStore(conn, log)))
	}

	engine, err := generate.NewEngine(engineCfg,
		catalog.ContextBuilder{Descriptions: descriptions},
		catalog.TemplateExecutor{},
		descriptions,
		opts...)
	if err != nil {
		return err
	}

	tables, columns := cat.Counts()
	emitter.EmitStage("generate", fmt.Sprintf("%s: %d tables, %d columns", cat.Source, tables, columns))

	summary, runErr := engine.Run(cmd.Context(), cat.Parents(), cat.Selection(columnIDs))
	if summary == nil {
		emitter.EmitError("generate", runErr)
		return runErr
	}

	for _, f := range summary.Failures {
		emitter.EmitError(f.ID, f.Err)
	}
	for _, s := range summary.Skips {
		emitter.EmitInfo(fmt.Sprintf("%s skipped: %s", s.ID, s.Reason))
	}
	emitter.EmitComplete(summaryFields(summary))

	if runErr != nil {
		return runErr
	}
	if summary.Failed > 0 {
		return errors.Newf("%d of %d items failed", summary.Failed, summary.Total)
	}
	return nil
}

// summaryFields flattens a run summary for emitters
func summaryFields(s *generate.Summary) map[string]interface{} {
	return map[string]interface{}{
		"run_id":     s.RunID,
		"total":      s.Total,
		"completed":  s.Completed,
		"failed":     s.Failed,
		"skipped":    s.Skipped,
		"pending":    s.Pending,
		"cancelled":  s.CancelledItems,
		"cache_hits": s.CacheHits,
		"executions": s.Executions,
		"elapsed":    s.Elapsed.Round(time.Millisecond).String(),
		"throughput": fmt.Sprintf("%.2f/s", s.Throughput),
	}
}
