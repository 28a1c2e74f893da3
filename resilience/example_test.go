package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/draftops/resilience"
)

func ExampleNewCircuitBreaker() {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "requests",
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	})

	ctx := context.Background()
	fmt.Println("Initial state:", cb.State())

	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return errors.New("service unavailable")
		})
	}
	fmt.Println("After failures:", cb.State())

	err := cb.Execute(ctx, func(ctx context.Context) error { return nil })
	fmt.Println("Rejected:", errors.Is(err, resilience.ErrCircuitOpen))
	// Output:
	// Initial state: closed
	// After failures: open
	// Rejected: true
}

func ExampleNewRetry() {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("connection reset")
		}
		return nil
	})

	fmt.Println("Error:", err)
	fmt.Println("Attempts:", attempts)
	// Output:
	// Error: <nil>
	// Attempts: 2
}

func ExampleNew() {
	errNotFound := errors.New("not found")
	executor := resilience.New("requests", resilience.Config{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		BreakerFailures: 5,
		Timeout:         time.Second,
	}, func(err error) bool { return errors.Is(err, errNotFound) })

	calls := 0
	err := executor.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errNotFound
	})

	fmt.Println("Error:", err)
	fmt.Println("Calls:", calls)
	// Output:
	// Error: not found
	// Calls: 1
}
