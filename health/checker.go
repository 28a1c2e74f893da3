package health

import (
	"context"
	"errors"
	"time"
)

// Status represents the health status of a component.
type Status int

const (
	// StatusHealthy indicates the component answers normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the component answers but drafts may not
	// be saved, e.g. a breaker probing a recovering server.
	StatusDegraded
	// StatusUnhealthy indicates the component is unreachable.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result contains the outcome of a health check.
type Result struct {
	Status  Status
	Message string

	// Details contains component specific metadata.
	Details map[string]any

	Duration  time.Duration
	Timestamp time.Time

	// Error is the error if the check failed.
	Error error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, Timestamp: time.Now()}
}

// Unhealthy creates an unhealthy result. The error is wrapped so that
// errors.Is(result.Error, ErrCheckFailed) holds.
func Unhealthy(message string, err error) Result {
	if err == nil {
		err = ErrCheckFailed
	} else if !errors.Is(err, ErrCheckFailed) {
		err = errors.Join(ErrCheckFailed, err)
	}
	return Result{Status: StatusUnhealthy, Message: message, Error: err, Timestamp: time.Now()}
}

// FromError is Healthy(ok) for a nil err and Unhealthy otherwise.
func FromError(ok string, err error) Result {
	if err != nil {
		return Unhealthy(err.Error(), err)
	}
	return Healthy(ok)
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker is the interface for health checks.
//
// Contract:
//   - Context: Check must return promptly once ctx is done.
//   - Errors: failures are reported in the Result, never by panicking.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to a named Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string {
	return f.name
}

// Check performs the health check.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	return f.fn(ctx)
}
