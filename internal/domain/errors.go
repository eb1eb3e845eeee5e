package domain

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. All of these surface to the caller as typed results;
// only ProviderError is retryable without changing input.
var (
	ErrNotFound              = errors.New("not found")
	ErrJobAlreadyAssigned    = errors.New("job is already assigned to a stop")
	ErrJobNotAssignable      = errors.New("job is not assignable")
	ErrRouteNotEmpty         = errors.New("route still has stops")
	ErrInsufficientStops     = errors.New("route needs at least two geocoded stops")
	ErrRouteBusy             = errors.New("route is being optimized")
	ErrRouteChanged          = errors.New("route stops changed during optimization")
	ErrRouteAlreadyCompleted = errors.New("route is already completed")
)

// ProviderError wraps a failure (error response, timeout, empty result) from
// the external optimization provider. The wrapped call produced no writes, so
// the operation is safe to retry as-is.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("optimization provider: %v", e.Err) }

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable marks the error for callers that distinguish retryable failures.
func (e *ProviderError) Retryable() bool { return true }
