package generate

import (
	"time"

	"github.com/teranos/scribe/am"
	"github.com/teranos/scribe/errors"
)

// FailedDependencyPolicy decides the fate of items whose dependency failed
type FailedDependencyPolicy int

const (
	// SkipDependents marks every transitive dependent of a failed item as skipped
	SkipDependents FailedDependencyPolicy = iota
	// LeavePending leaves dependents pending; they are reported as unreachable
	LeavePending
)

func (p FailedDependencyPolicy) String() string {
	switch p {
	case SkipDependents:
		return am.PolicySkipDependents
	case LeavePending:
		return am.PolicyLeavePending
	default:
		return "unknown"
	}
}

// ParsePolicy maps a configuration name to a policy. Empty means SkipDependents.
func ParsePolicy(name string) (FailedDependencyPolicy, error) {
	switch name {
	case "", am.PolicySkipDependents:
		return SkipDependents, nil
	case am.PolicyLeavePending:
		return LeavePending, nil
	default:
		err := errors.NewInvalidRequestError("unknown failed dependency policy %q", name)
		return SkipDependents, errors.WithHintf(err, "use %q or %q", am.PolicySkipDependents, am.PolicyLeavePending)
	}
}

// Default engine settings
const (
	DefaultMaxConcurrent      = 5
	DefaultRateLimitPerMinute = 60
	DefaultMaxRetries         = 3
	DefaultObserverTimeout    = 2 * time.Second
)

// Config contains configuration for the engine
type Config struct {
	MaxConcurrent      int                    // Workers per run
	RateLimitPerMinute int                    // Executions admitted per trailing 60s
	MaxRetries         int                    // Retries after the first attempt
	CacheEnabled       bool                   // Consult the cache before executing
	RetryBackoff       time.Duration          // Delay before a retried item is re-enqueued
	ObserverTimeout    time.Duration          // Max time a progress observer may block a worker
	FailedDependency   FailedDependencyPolicy // What happens to dependents of a failed item
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:      DefaultMaxConcurrent,
		RateLimitPerMinute: DefaultRateLimitPerMinute,
		MaxRetries:         DefaultMaxRetries,
		CacheEnabled:       true,
		ObserverTimeout:    DefaultObserverTimeout,
		FailedDependency:   SkipDependents,
	}
}

// ConfigFromAm maps the generation section of the scribe configuration
func ConfigFromAm(cfg *am.Config) (Config, error) {
	if cfg == nil {
		return DefaultConfig(), nil
	}
	g := cfg.Generation
	policy, err := ParsePolicy(g.FailedDependency)
	if err != nil {
		return Config{}, err
	}
	c := Config{
		MaxConcurrent:      g.MaxConcurrent,
		RateLimitPerMinute: g.RateLimitPerMinute,
		MaxRetries:         g.MaxRetries,
		CacheEnabled:       g.CacheEnabled,
		RetryBackoff:       time.Duration(g.RetryBackoffMS) * time.Millisecond,
		ObserverTimeout:    time.Duration(g.ObserverTimeoutMS) * time.Millisecond,
		FailedDependency:   policy,
	}
	return c, c.Validate()
}

// Validate checks the configuration is usable
func (c Config) Validate() error {
	if c.MaxConcurrent < 1 {
		return errors.NewInvalidRequestError("max concurrent must be at least 1, got %d", c.MaxConcurrent)
	}
	if c.RateLimitPerMinute < 1 {
		return errors.NewInvalidRequestError("rate limit per minute must be at least 1, got %d", c.RateLimitPerMinute)
	}
	if c.MaxRetries < 0 {
		return errors.NewInvalidRequestError("max retries cannot be negative, got %d", c.MaxRetries)
	}
	if c.RetryBackoff < 0 {
		return errors.NewInvalidRequestError("retry backoff cannot be negative, got %s", c.RetryBackoff)
	}
	if c.ObserverTimeout < 0 {
		return errors.NewInvalidRequestError("observer timeout cannot be negative, got %s", c.ObserverTimeout)
	}
	if c.FailedDependency != SkipDependents && c.FailedDependency != LeavePending {
		return errors.NewInvalidRequestError("unknown failed dependency policy %d", int(c.FailedDependency))
	}
	return nil
}
