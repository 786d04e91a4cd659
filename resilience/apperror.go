package resilience

import (
	"context"
	"errors"

	goerrors "github.com/kbukum/callguard/errors"
)

// ToAppError converts resilience rejections and context errors to
// AppErrors for HTTP-facing callers. Other errors are returned unchanged.
func ToAppError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := goerrors.AsAppError(err); ok {
		return err
	}

	var open *CircuitBreakerOpenError
	switch {
	case errors.As(err, &open):
		return goerrors.CircuitOpen(open.Name, open.RetryAfter).WithCause(err)
	case errors.Is(err, ErrRateLimitTimeout):
		return goerrors.RateLimited().WithCause(err)
	case errors.Is(err, ErrBulkheadFull), errors.Is(err, ErrBulkheadTimeout):
		return goerrors.ServiceUnavailable("upstream").
			WithCause(err).
			WithDetail("reason", "concurrency limit reached")
	case errors.Is(err, context.Canceled):
		return goerrors.Timeout("request canceled").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return goerrors.Timeout("deadline exceeded").WithCause(err)
	default:
		return err
	}
}
