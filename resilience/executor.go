package resilience

import (
	"context"
	"time"
)

// Executor composes the resilience patterns.
type Executor struct {
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithTimeout bounds every attempt.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// Config is the flat configuration of a standard executor.
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BreakerFailures int
	BreakerTimeout  time.Duration
	Timeout         time.Duration
}

// New builds an executor with breaker, retry, and timeout from cfg.
// permanent classifies errors that are neither retried nor counted as
// breaker failures; nil treats every error as transient.
func New(name string, cfg Config, permanent func(error) bool) *Executor {
	transient := func(err error) bool {
		return err != nil && (permanent == nil || !permanent(err))
	}
	opts := []ExecutorOption{
		WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{
			Name:         name,
			MaxFailures:  cfg.BreakerFailures,
			ResetTimeout: cfg.BreakerTimeout,
			IsFailure:    transient,
		})),
		WithRetry(NewRetry(RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.InitialDelay,
			MaxDelay:     cfg.MaxDelay,
			Jitter:       true,
			RetryIf:      transient,
		})),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	return NewExecutor(opts...)
}

// CircuitBreaker returns the configured breaker, if any.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.circuitBreaker
}

// Execute runs the operation through all configured resilience patterns.
//
// The execution order is:
// 1. Circuit Breaker (if configured) - rejects calls while the server is down
// 2. Retry (if configured) - retries transient failures
// 3. Timeout (if configured) - bounds each attempt
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	return e.execute(ctx, op, e.retry)
}

// ExecuteOnce is Execute without retries, for operations that are unsafe
// to repeat. The breaker and the timeout still apply.
func (e *Executor) ExecuteOnce(ctx context.Context, op func(context.Context) error) error {
	return e.execute(ctx, op, nil)
}

func (e *Executor) execute(ctx context.Context, op func(context.Context) error, retry *Retry) error {
	execute := op

	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}

	if retry != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return retry.Execute(ctx, inner)
		}
	}

	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, inner)
		}
	}

	return execute(ctx)
}
