// Package resilience wraps outbound network operations with admission
// control, failure isolation, retry and observability.
//
// This package includes:
//   - RateLimiter: token bucket admission control
//   - CircuitBreaker: closed/open/half-open failure isolation
//   - CalculateBackoff, IsRetryableError, Retry: exponential backoff with jitter
//   - Bulkhead: optional concurrency limit
//   - MetricsCollector: bounded sliding window of per-call outcomes
//   - Manager: composes all of the above around a single call
//
// A Manager is built from a Config, usually one of the presets:
//
//	m := resilience.NewManager(resilience.DefaultConfig())
//
//	customer, err := resilience.Execute(ctx, m, "GET", "/customers/42",
//	    func(ctx context.Context) (*Customer, error) {
//	        return client.GetCustomer(ctx, "42")
//	    })
//
// Each call passes the rate limiter, then the circuit breaker, then the
// optional bulkhead, and finally an attempt loop that retries retryable
// failures with exponential backoff. The terminal outcome is counted once
// by the breaker and recorded once by the metrics collector.
//
// All state is in-memory and local to a Manager.
package resilience
