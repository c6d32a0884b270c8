package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "scribe.db")

	// Generation defaults
	v.SetDefault("generation.max_concurrent", 5)
	v.SetDefault("generation.rate_limit_per_minute", 60)
	v.SetDefault("generation.max_retries", 3)
	v.SetDefault("generation.cache_enabled", true)
	v.SetDefault("generation.persistent_cache", false)
	v.SetDefault("generation.retry_backoff_ms", 0)
	v.SetDefault("generation.observer_timeout_ms", 2000)
	v.SetDefault("generation.failed_dependency_policy", PolicySkipDependents)

	// Log defaults
	v.SetDefault("log.json", false)
	v.SetDefault("log.verbosity", 0)
}
