package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/kbukum/callguard/errors"
)

func TestToAppError(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		name   string
		err    error
		code   goerrors.ErrorCode
		status int
	}{
		{"circuit open", &CircuitBreakerOpenError{Name: "api", RetryAfter: time.Second}, goerrors.ErrCodeCircuitOpen, 503},
		{"rate limited", &RateLimitTimeoutError{Timeout: time.Second}, goerrors.ErrCodeRateLimited, 429},
		{"bulkhead full", ErrBulkheadFull, goerrors.ErrCodeServiceUnavailable, 503},
		{"canceled", context.Canceled, goerrors.ErrCodeTimeout, 504},
		{"deadline", context.DeadlineExceeded, goerrors.ErrCodeTimeout, 504},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr, ok := goerrors.AsAppError(ToAppError(tt.err))
			if !ok {
				t.Fatalf("expected AppError, got %v", ToAppError(tt.err))
			}
			if appErr.Code != tt.code || appErr.HTTPStatus != tt.status {
				t.Errorf("expected %s/%d, got %s/%d", tt.code, tt.status, appErr.Code, appErr.HTTPStatus)
			}
			if !errors.Is(appErr, tt.err) {
				t.Error("expected original error as cause")
			}
		})
	}

	if ToAppError(nil) != nil {
		t.Error("nil should stay nil")
	}
	if ToAppError(plain) != plain {
		t.Error("unrelated errors should pass through")
	}
}
