package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across scribe.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID  = "run_id"
	FieldItemID = "item_id"
	FieldKind   = "kind"

	// Components
	FieldComponent = "component"
	FieldWorkerID  = "worker_id"

	// Scheduling
	FieldAttempt     = "attempt"
	FieldMaxRetries  = "max_retries"
	FieldPriority    = "priority"
	FieldFingerprint = "fingerprint"
	FieldWait        = "wait"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldElapsed    = "elapsed"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount      = "count"
	FieldTotalCount = "total_count"
	FieldCompleted  = "completed"
	FieldFailed     = "failed"
	FieldSkipped    = "skipped"
	FieldPending    = "pending"
	FieldRunning    = "running"

	// Status
	FieldState = "state"

	// Files and paths
	FieldPath = "path"
)

// Context keys for propagating logging context
type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	componentKey contextKey = "logger_component"
)

// WithRunID adds a run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	engine, err := generate.NewEngine(cfg, builder, executor, sink,
//	    generate.WithLogger(logger.ComponentLogger("scribe")))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
