// Package resilience protects calls to the entity server.
//
// # Patterns
//
//   - Retry: retries transient failures with exponential, linear, or
//     constant backoff (github.com/cenkalti/backoff/v5).
//
//   - Circuit Breaker: stops calling a failing server after consecutive
//     failures and tries it again after a cool-down
//     (github.com/sony/gobreaker).
//
//   - Timeout: bounds a single attempt.
//
// # Usage
//
//	executor := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        Name:         "requests",
//	        MaxFailures:  5,
//	        ResetTimeout: 30 * time.Second,
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts:  3,
//	        InitialDelay: 100 * time.Millisecond,
//	    })),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return client.Do(ctx)
//	})
//
// Errors classified as permanent (see RetryConfig.RetryIf and
// CircuitBreakerConfig.IsFailure) are returned unchanged and never trip the
// breaker; a missing entity is an answer, not an outage.
package resilience
