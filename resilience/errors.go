package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors matched with errors.Is.
var (
	ErrRateLimitTimeout = errors.New("rate limiter timeout")
	ErrCircuitOpen      = errors.New("circuit breaker is open")
	ErrRetryExhausted   = errors.New("retry attempts exhausted")
	ErrBulkheadFull     = errors.New("bulkhead is full")
	ErrBulkheadTimeout  = errors.New("bulkhead wait timeout")
)

// RateLimitTimeoutError is returned when no token was acquired before the
// admission deadline. The operation was not attempted.
type RateLimitTimeoutError struct {
	Timeout time.Duration
}

func (e *RateLimitTimeoutError) Error() string {
	return fmt.Sprintf("rate limiter timeout: no token acquired within %s", e.Timeout)
}

// Is reports whether target is ErrRateLimitTimeout.
func (e *RateLimitTimeoutError) Is(target error) bool { return target == ErrRateLimitTimeout }

// StatusCode maps the rejection to 429.
func (e *RateLimitTimeoutError) StatusCode() int { return http.StatusTooManyRequests }

// CircuitBreakerOpenError is returned when the circuit rejects a call.
// The operation was not attempted.
type CircuitBreakerOpenError struct {
	// Name is the circuit name.
	Name string
	// RetryAfter is the time left until the circuit becomes half-open.
	RetryAfter time.Duration
}

func (e *CircuitBreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open, retry in %s", e.Name, e.RetryAfter)
}

// Is reports whether target is ErrCircuitOpen.
func (e *CircuitBreakerOpenError) Is(target error) bool { return target == ErrCircuitOpen }

// StatusCode maps the rejection to 503.
func (e *CircuitBreakerOpenError) StatusCode() int { return http.StatusServiceUnavailable }

// RetryExhaustedError signals that the attempt loop ended without a terminal
// result. The loop always returns from inside, so this only guards the invariant.
type RetryExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	if e.LastErr == nil {
		return fmt.Sprintf("retry exhausted after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}

// Unwrap returns the last attempt's error.
func (e *RetryExhaustedError) Unwrap() error { return e.LastErr }

// Is reports whether target is ErrRetryExhausted.
func (e *RetryExhaustedError) Is(target error) bool { return target == ErrRetryExhausted }
