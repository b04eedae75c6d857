package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is().
// Outbound clients (ai, maps) classify their failures into these so the
// retry executor can decide whether another attempt is worth making.
var (
	// Transient failures - retried per policy
	ErrTimeout          = errors.New("operation timeout")
	ErrConnectionFailed = errors.New("connection failed")
	ErrRateLimited      = errors.New("rate limited")
	ErrServerError      = errors.New("server error")

	// Non-retryable failures - terminate the attempt loop immediately
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")

	// Terminal worker failures
	ErrMaxAttemptsExceeded = errors.New("maximum attempts exceeded")
	ErrUnparsable          = errors.New("response unparsable")

	// Run precondition failure - the only error the orchestrator itself
	// returns instead of degrading
	ErrInvalidTripRequest = errors.New("invalid trip request")
)

// PlannerError provides structured error information with context.
// It implements the error interface and supports error wrapping.
type PlannerError struct {
	Op      string // Operation that failed (e.g., "maps.SearchPlaces")
	Kind    string // Error kind (e.g., "worker", "parse", "config")
	ID      string // Optional ID of the entity involved (worker, correlation)
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *PlannerError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *PlannerError) Unwrap() error {
	return e.Err
}

// NewPlannerError creates a new PlannerError
func NewPlannerError(op, kind string, err error) *PlannerError {
	return &PlannerError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsTransient checks if an error is worth retrying.
// Transient errors are network or availability issues expected to clear.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServerError)
}

// IsNonRetryable checks if an error must not be retried
func IsNonRetryable(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrUnauthorized)
}

// IsTerminal checks if a worker invocation has failed for good
func IsTerminal(err error) bool {
	return errors.Is(err, ErrMaxAttemptsExceeded) ||
		errors.Is(err, ErrUnparsable)
}
