package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"slices"
	"strings"
	"time"

	goerrors "github.com/kbukum/callguard/errors"
)

// networkErrorTokens are message fragments that identify transport failures.
var networkErrorTokens = []string{
	"network",
	"econnrefused",
	"econnreset",
	"etimedout",
	"enotfound",
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"socket hang up",
	"fetch failed",
}

// CalculateBackoff returns the delay before the retry that follows attempt
// (zero-based): BaseDelay * ExponentialBase^attempt capped at MaxDelay, then
// spread by a uniform jitter of ±Jitter of the delay. Never negative.
func CalculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.ExponentialBase, float64(attempt))

	limit := float64(math.MaxInt64)
	if cfg.MaxDelay > 0 {
		limit = float64(cfg.MaxDelay)
	}
	if delay > limit || math.IsNaN(delay) {
		delay = limit
	}

	if cfg.Jitter > 0 {
		spread := delay * cfg.Jitter
		delay += (rand.Float64()*2 - 1) * spread
	}

	if delay < 0 {
		return 0
	}
	if delay >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// IsRetryableError reports whether err is worth another attempt: a transport
// failure, or an error carrying one of the configured retryable status codes.
func IsRetryableError(err error, cfg RetryConfig) bool {
	if err == nil {
		return false
	}

	// context.DeadlineExceeded satisfies net.Error; a bare deadline is not a
	// transport failure.
	var netErr net.Error
	if errors.As(err, &netErr) && error(netErr) != context.DeadlineExceeded {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, token := range networkErrorTokens {
		if strings.Contains(msg, token) {
			return true
		}
	}

	if code, ok := goerrors.StatusCode(err); ok {
		return slices.Contains(cfg.RetryableStatusCodes, code)
	}
	return false
}

// Retry runs fn in the attempt loop described by cfg and returns its result,
// or the error of the attempt that ended the loop.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	result, _, err := runAttempts(ctx, cfg, fn, nil)
	return result, err
}

// retryHook is called before sleeping ahead of a retry.
type retryHook func(attempt int, err error, backoff time.Duration)

// runAttempts calls fn up to MaxRetries+1 times. A failure is retried only
// when retries are enabled, the error is retryable, and attempts remain.
// It returns the number of retries performed alongside the outcome.
func runAttempts[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error), onRetry retryHook) (T, int, error) {
	var zero T
	var lastErr error
	calls, retries := 0, 0

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		calls++
		result, err := fn(ctx)
		if err == nil {
			return result, retries, nil
		}
		lastErr = err

		retryable := cfg.Enabled && IsRetryableError(err, cfg)
		if !retryable || attempt >= cfg.MaxRetries {
			return zero, retries, err
		}

		backoff := CalculateBackoff(attempt, cfg)
		if onRetry != nil {
			onRetry(attempt, err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, retries, ctx.Err()
		case <-timer.C:
		}
		retries++
	}

	return zero, retries, &RetryExhaustedError{Attempts: calls, LastErr: lastErr}
}
