package core

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing parameters for a remote
// operation. It is never retried; the caller gets it back immediately.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError constructs a ValidationError for a named parameter.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UpstreamError wraps a remote service failure (timeout, 5xx, malformed
// provider response). It is retryable within the calling operation's bounded
// backoff policy.
type UpstreamError struct {
	Op  string // remote operation name, e.g. "complete", "vector_search"
	Err error
}

// Error implements the error interface for UpstreamError.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error in %s: %v", e.Op, e.Err)
}

// Unwrap exposes the wrapped provider error.
func (e *UpstreamError) Unwrap() error { return e.Err }

// NewUpstreamError wraps err as a retryable upstream failure of op.
func NewUpstreamError(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Err: err}
}

// PersistenceError reports a failure to durably save transcript or summary
// rows. Retried with its own bounded policy; after exhaustion the in-memory
// transcript stays authoritative and the session continues.
type PersistenceError struct {
	Err error
}

// Error implements the error interface for PersistenceError.
func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence error: %v", e.Err) }

// Unwrap exposes the underlying store error.
func (e *PersistenceError) Unwrap() error { return e.Err }

// IsRetryable reports whether err may be re-attempted under a retry policy.
// Validation failures are deterministic and never retried; everything else
// (upstream, persistence, unknown) is assumed transient.
func IsRetryable(err error) bool {
	var ve *ValidationError
	return !errors.As(err, &ve)
}
