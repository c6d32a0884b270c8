package am

// Config represents the scribe configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
	Generation GenerationConfig `mapstructure:"generation" toml:"generation" json:"generation" yaml:"generation"`
	Log        LogConfig        `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
}

// GenerationConfig configures the generation scheduler
type GenerationConfig struct {
	MaxConcurrent      int  `mapstructure:"max_concurrent" toml:"max_concurrent" json:"max_concurrent" yaml:"max_concurrent"`               // Worker count per run (>= 1)
	RateLimitPerMinute int  `mapstructure:"rate_limit_per_minute" toml:"rate_limit_per_minute" json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"` // Executions admitted per trailing 60s (>= 1)
	MaxRetries         int  `mapstructure:"max_retries" toml:"max_retries" json:"max_retries" yaml:"max_retries"`                     // Retries after the first attempt (>= 0)
	CacheEnabled       bool `mapstructure:"cache_enabled" toml:"cache_enabled" json:"cache_enabled" yaml:"cache_enabled"`
	PersistentCache    bool `mapstructure:"persistent_cache" toml:"persistent_cache" json:"persistent_cache" yaml:"persistent_cache"` // Keep cache entries in the database across runs

	RetryBackoffMS    int    `mapstructure:"retry_backoff_ms" toml:"retry_backoff_ms" json:"retry_backoff_ms" yaml:"retry_backoff_ms"`       // 0 = re-enqueue immediately
	ObserverTimeoutMS int    `mapstructure:"observer_timeout_ms" toml:"observer_timeout_ms" json:"observer_timeout_ms" yaml:"observer_timeout_ms"` // Max time a progress observer may block a worker
	FailedDependency  string `mapstructure:"failed_dependency_policy" toml:"failed_dependency_policy" json:"failed_dependency_policy" yaml:"failed_dependency_policy"`
}

// LogConfig configures logging output
type LogConfig struct {
	JSON      bool `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
	Verbosity int  `mapstructure:"verbosity" toml:"verbosity" json:"verbosity" yaml:"verbosity"`
}

// Failed dependency policy names
const (
	PolicySkipDependents = "skip"
	PolicyLeavePending   = "leave_pending"
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
