package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	goerrors "github.com/kbukum/callguard/errors"
)

func noJitterRetry() RetryConfig {
	return RetryConfig{
		Enabled:              true,
		MaxRetries:           3,
		BaseDelay:            100 * time.Millisecond,
		MaxDelay:             10 * time.Second,
		ExponentialBase:      2,
		RetryableStatusCodes: DefaultRetryableStatusCodes,
	}
}

func fastRetry(maxRetries int) RetryConfig {
	cfg := noJitterRetry()
	cfg.MaxRetries = maxRetries
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func TestCalculateBackoff_Exponential(t *testing.T) {
	cfg := noJitterRetry()

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}
	for attempt, expected := range want {
		if got := CalculateBackoff(attempt, cfg); got != expected {
			t.Errorf("attempt %d: expected %v, got %v", attempt, expected, got)
		}
	}
}

func TestCalculateBackoff_CappedAtMaxDelay(t *testing.T) {
	cfg := noJitterRetry()

	if got := CalculateBackoff(10, cfg); got != 10*time.Second {
		t.Errorf("expected 10s cap, got %v", got)
	}
	if got := CalculateBackoff(5000, cfg); got != 10*time.Second {
		t.Errorf("expected 10s cap on overflow, got %v", got)
	}
}

func TestCalculateBackoff_JitterBounds(t *testing.T) {
	cfg := noJitterRetry()
	cfg.Jitter = 0.1

	for i := 0; i < 200; i++ {
		got := CalculateBackoff(0, cfg)
		if got < 90*time.Millisecond || got > 110*time.Millisecond {
			t.Fatalf("backoff %v outside [90ms, 110ms]", got)
		}
	}
}

func TestCalculateBackoff_NeverNegative(t *testing.T) {
	cfg := noJitterRetry()
	cfg.Jitter = 1

	for i := 0; i < 200; i++ {
		if got := CalculateBackoff(i%5, cfg); got < 0 {
			t.Fatalf("negative backoff %v", got)
		}
	}
}

func TestCalculateBackoff_ZeroMaxDelayIsUncapped(t *testing.T) {
	cfg := noJitterRetry()
	cfg.MaxDelay = 0
	if got := CalculateBackoff(3, cfg); got != 800*time.Millisecond {
		t.Errorf("expected 800ms, got %v", got)
	}
}

func TestIsRetryableError(t *testing.T) {
	cfg := noJitterRetry()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"econnrefused token", errors.New("dial tcp: ECONNREFUSED"), true},
		{"network token", errors.New("Network unreachable"), true},
		{"net.Error", &net.DNSError{Err: "lookup failed", Name: "example.invalid"}, true},
		{"status 500", goerrors.FromStatus(500, "internal"), true},
		{"status 503 wrapped", fmt.Errorf("call: %w", goerrors.FromStatus(503, "down")), true},
		{"status 404", goerrors.FromStatus(404, "missing"), false},
		{"status 400", goerrors.FromStatus(400, "bad"), false},
		{"rate limit rejection", &RateLimitTimeoutError{Timeout: time.Second}, true},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"wrapped deadline exceeded", fmt.Errorf("waiting: %w", context.DeadlineExceeded), false},
		{"dial timeout", &net.OpError{Op: "dial", Net: "tcp", Err: context.DeadlineExceeded}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err, cfg); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestIsRetryableError_CustomStatusCodes(t *testing.T) {
	cfg := noJitterRetry()
	cfg.RetryableStatusCodes = []int{404}

	if !IsRetryableError(goerrors.FromStatus(404, "missing"), cfg) {
		t.Error("expected 404 retryable with custom codes")
	}
	if IsRetryableError(goerrors.FromStatus(500, "internal"), cfg) {
		t.Error("expected 500 not retryable with custom codes")
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastRetry(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", goerrors.FromStatus(503, "unavailable")
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result != "ok" {
		t.Errorf("expected ok, got %q", result)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	notFound := goerrors.FromStatus(404, "missing")
	_, err := Retry(context.Background(), fastRetry(3), func(ctx context.Context) (int, error) {
		calls++
		return 0, notFound
	})

	if err != notFound {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_ExhaustedReturnsLastError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetry(2), func(ctx context.Context) (int, error) {
		calls++
		return 0, goerrors.FromStatus(500, fmt.Sprintf("attempt %d", calls))
	})

	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	appErr, ok := goerrors.AsAppError(err)
	if !ok || appErr.Message != "attempt 3" {
		t.Errorf("expected last attempt error, got %v", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("operation error should be returned unwrapped")
	}
}

func TestRetry_Disabled(t *testing.T) {
	cfg := fastRetry(3)
	cfg.Enabled = false

	calls := 0
	_, err := Retry(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, goerrors.FromStatus(503, "unavailable")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_ContextCanceledDuringBackoff(t *testing.T) {
	cfg := noJitterRetry()
	cfg.BaseDelay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Retry(ctx, cfg, func(ctx context.Context) (int, error) {
		return 0, goerrors.FromStatus(502, "bad gateway")
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("backoff not interrupted, took %v", elapsed)
	}
}

func TestRunAttempts_CountsRetriesAndCallsHook(t *testing.T) {
	var hooked []int
	calls := 0
	_, retries, err := runAttempts(context.Background(), fastRetry(3), func(ctx context.Context) (int, error) {
		calls++
		if calls <= 2 {
			return 0, errors.New("connection reset by peer")
		}
		return calls, nil
	}, func(attempt int, err error, backoff time.Duration) {
		hooked = append(hooked, attempt)
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if retries != 2 {
		t.Errorf("expected 2 retries, got %d", retries)
	}
	if len(hooked) != 2 || hooked[0] != 0 || hooked[1] != 1 {
		t.Errorf("unexpected hook attempts %v", hooked)
	}
}
