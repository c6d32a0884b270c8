package am

import "github.com/teranos/scribe/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	g := c.Generation

	if g.MaxConcurrent < 1 {
		return errors.NewInvalidRequestError("generation.max_concurrent must be >= 1, got %d", g.MaxConcurrent)
	}
	if g.RateLimitPerMinute < 1 {
		return errors.NewInvalidRequestError("generation.rate_limit_per_minute must be >= 1, got %d", g.RateLimitPerMinute)
	}
	if g.MaxRetries < 0 {
		return errors.NewInvalidRequestError("generation.max_retries must be >= 0, got %d", g.MaxRetries)
	}
	if g.RetryBackoffMS < 0 {
		return errors.NewInvalidRequestError("generation.retry_backoff_ms must be >= 0, got %d", g.RetryBackoffMS)
	}
	// 0 = default timeout
	if g.ObserverTimeoutMS < 0 {
		return errors.NewInvalidRequestError("generation.observer_timeout_ms must be >= 0, got %d", g.ObserverTimeoutMS)
	}

	switch g.FailedDependency {
	case "", PolicySkipDependents, PolicyLeavePending:
	default:
		err := errors.NewInvalidRequestError("generation.failed_dependency_policy %q is not recognised", g.FailedDependency)
		return errors.WithHintf(err, "use %q or %q", PolicySkipDependents, PolicyLeavePending)
	}

	if g.PersistentCache && c.Database.Path == "" {
		return errors.NewInvalidRequestError("generation.persistent_cache requires database.path")
	}

	if c.Log.Verbosity < 0 {
		return errors.NewInvalidRequestError("log.verbosity must be >= 0, got %d", c.Log.Verbosity)
	}

	return nil
}
