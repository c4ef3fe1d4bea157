// Package errors defines custom error types for the PGW simulator.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the PGW simulator.
var (
	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")

	// Subscriber errors
	ErrInvalidIMSI = errors.New("invalid IMSI")

	// Setup errors
	ErrSocketSetup    = errors.New("socket setup failed")
	ErrPollerSetup    = errors.New("poller setup failed")
	ErrListenerSetup  = errors.New("control listener setup failed")
	ErrCDRUnavailable = errors.New("CDR file unavailable")

	// Lifecycle errors
	ErrServerRunning = errors.New("server already running")
	ErrServerStopped = errors.New("server stopped")
	ErrQueueStopped  = errors.New("task queue stopped")

	// Client errors
	ErrSendFailed      = errors.New("send failed")
	ErrResponseTimeout = errors.New("response timeout")
	ErrMaxRetries      = errors.New("maximum retry attempts exceeded")
)

// PGWError represents an error with additional context.
type PGWError struct {
	Op      string // Operation that failed
	Kind    error  // Category of error
	Err     error  // Underlying error
	Details string // Additional details
}

// Error returns the error message.
func (e *PGWError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %v (%s)", e.Op, e.Kind, e.Err, e.Details)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap returns the underlying error.
func (e *PGWError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target error.
func (e *PGWError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// NewPGWError creates a new PGWError.
func NewPGWError(op string, kind error, err error, details string) *PGWError {
	return &PGWError{
		Op:      op,
		Kind:    kind,
		Err:     err,
		Details: details,
	}
}

// Wrap wraps an error with operation context.
func Wrap(op string, kind error, err error) *PGWError {
	return &PGWError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsRetryable returns true if the error is retryable.
// Only a missing response is worth another attempt; everything else
// indicates a local failure that a retry will not fix.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrResponseTimeout)
}

// IsFatal returns true if the error must abort server startup.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrSocketSetup) ||
		errors.Is(err, ErrPollerSetup) ||
		errors.Is(err, ErrListenerSetup) ||
		errors.Is(err, ErrCDRUnavailable)
}
