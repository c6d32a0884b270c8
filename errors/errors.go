// Package errors provides error handling for scribe.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Markers for classifying errors without string matching
//
// Usage:
//
//	// Wrap with context
//	if err := sink.Save(ctx, id, result); err != nil {
//	    return errors.Wrap(err, "failed to save result")
//	}
//
//	// Add details for operators
//	return errors.WithDetail(err, fmt.Sprintf("Item ID: %s", id))
//
//	// Classify precondition failures
//	if errors.IsInvalidRequestError(err) {
//	    // malformed input, nothing was scheduled
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Markers
var (
	Mark = crdb.Mark
)

// Common sentinel errors for use across scribe.
// Use these with errors.Is() for type-safe error checking.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates malformed input that was rejected before any work started
	ErrInvalidRequest = New("invalid request")

	// ErrCancelled indicates a run that was stopped by its caller before all work finished
	ErrCancelled = New("cancelled")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsCancelledError checks if an error is or wraps ErrCancelled
func IsCancelledError(err error) bool {
	return err != nil && Is(err, ErrCancelled)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrNotFound)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrInvalidRequest)
}

// WrapCancelled marks cause (usually ctx.Err()) as a cancellation
func WrapCancelled(cause error, context string) error {
	return Mark(Wrap(cause, context), ErrCancelled)
}
