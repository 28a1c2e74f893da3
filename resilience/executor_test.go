package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewExecutor(t *testing.T) {
	e := NewExecutor()

	if e.circuitBreaker != nil {
		t.Error("Default executor should not have circuit breaker")
	}
	if e.retry != nil {
		t.Error("Default executor should not have retry")
	}
	if e.timeout != nil {
		t.Error("Default executor should not have timeout")
	}
	if err := e.Execute(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestExecutor_WithOptions(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	retry := NewRetry(RetryConfig{})

	e := NewExecutor(WithCircuitBreaker(cb), WithRetry(retry), WithTimeout(time.Second))

	if e.CircuitBreaker() != cb {
		t.Error("CircuitBreaker not set")
	}
	if e.retry != retry {
		t.Error("Retry not set")
	}
	if e.timeout == nil {
		t.Error("Timeout not set")
	}
}

func TestExecutor_RetriesInsideBreaker(t *testing.T) {
	e := NewExecutor(
		WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)

	attempts := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if e.CircuitBreaker().State() != StateClosed {
		t.Errorf("retried success must not trip the breaker, state = %v", e.CircuitBreaker().State())
	}
}

func TestExecutor_ExecuteOnceSkipsRetry(t *testing.T) {
	e := NewExecutor(
		WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)

	attempts := 0
	err := e.ExecuteOnce(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("unavailable")
	})
	if err == nil {
		t.Fatal("ExecuteOnce() should return the operation error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if e.CircuitBreaker().State() != StateOpen {
		t.Errorf("failure should still count toward the breaker, state = %v", e.CircuitBreaker().State())
	}
}

func TestNew_PermanentErrors(t *testing.T) {
	notFound := errors.New("not found")
	e := New("requests", Config{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BreakerFailures: 1,
		BreakerTimeout:  time.Minute,
		Timeout:         time.Second,
	}, func(err error) bool { return errors.Is(err, notFound) })

	attempts := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return notFound
	})
	if err != notFound {
		t.Errorf("Execute() error = %v, want %v", err, notFound)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if e.CircuitBreaker().State() != StateClosed {
		t.Errorf("State = %v, want closed", e.CircuitBreaker().State())
	}

	_ = e.Execute(context.Background(), func(ctx context.Context) error { return errors.New("503") })
	if e.CircuitBreaker().State() != StateOpen {
		t.Errorf("State = %v, want open after transient failure", e.CircuitBreaker().State())
	}
	if err := e.Execute(context.Background(), func(ctx context.Context) error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
}
