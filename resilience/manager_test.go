package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	goerrors "github.com/kbukum/callguard/errors"
	"github.com/kbukum/callguard/logger"
)

type recordingObserver struct {
	mu          sync.Mutex
	requests    []RequestMetrics
	retries     []int
	rejections  []RejectReason
	transitions []State
}

func (o *recordingObserver) OnRequest(_ context.Context, m RequestMetrics) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, m)
}

func (o *recordingObserver) OnRetry(_ context.Context, _, _ string, attempt int, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries = append(o.retries, attempt)
}

func (o *recordingObserver) OnRejected(_ context.Context, _, _ string, reason RejectReason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejections = append(o.rejections, reason)
}

func (o *recordingObserver) OnStateChange(_ string, _, to State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, to)
}

func testManagerConfig() Config {
	cfg := DefaultConfig()
	cfg.Name = "test"
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Millisecond
	cfg.Retry.Jitter = 0
	return cfg
}

func newTestManager(cfg Config, opts ...Option) *Manager {
	return NewManager(cfg, append([]Option{WithLogger(logger.Nop())}, opts...)...)
}

func TestManager_RetriesThenSucceeds(t *testing.T) {
	obs := &recordingObserver{}
	m := newTestManager(testManagerConfig(), WithObserver(obs))

	calls := 0
	result, err := Execute(context.Background(), m, "GET", "/items", func(ctx context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", goerrors.FromStatus(503, "unavailable")
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result != "ok" || calls != 3 {
		t.Errorf("expected ok after 3 calls, got %q after %d", result, calls)
	}

	entries := m.Collector().Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one recorded request, got %d", len(entries))
	}
	rec := entries[0]
	if !rec.Success || rec.RetryCount != 2 || rec.Method != "GET" || rec.Endpoint != "/items" {
		t.Errorf("unexpected metric %+v", rec)
	}
	if rec.RequestID == "" {
		t.Error("expected request id")
	}
	if m.CircuitBreaker().State() != StateClosed || m.CircuitBreaker().Failures() != 0 {
		t.Errorf("expected healthy breaker, got %s with %d failures", m.CircuitBreaker().State(), m.CircuitBreaker().Failures())
	}
	if len(obs.retries) != 2 || len(obs.requests) != 1 {
		t.Errorf("expected 2 retries and 1 request observed, got %d and %d", len(obs.retries), len(obs.requests))
	}
}

func TestManager_OpenCircuitRejectsWithoutCalling(t *testing.T) {
	cfg := testManagerConfig()
	cfg.CircuitBreaker.FailureThreshold = 1
	cfg.Retry.Enabled = false
	obs := &recordingObserver{}
	m := newTestManager(cfg, WithObserver(obs))

	upstream := goerrors.FromStatus(500, "internal")
	err := m.Do(context.Background(), "POST", "/orders", func(ctx context.Context) error {
		return upstream
	})
	if err != upstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if m.CircuitBreaker().State() != StateOpen {
		t.Fatalf("expected open circuit, got %s", m.CircuitBreaker().State())
	}

	err = m.Do(context.Background(), "POST", "/orders", func(ctx context.Context) error {
		t.Error("operation should not be attempted")
		return nil
	})
	var openErr *CircuitBreakerOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected CircuitBreakerOpenError, got %v", err)
	}
	if openErr.Name != "test" || openErr.RetryAfter <= 0 {
		t.Errorf("unexpected open error %+v", openErr)
	}

	summary := m.Metrics()
	if summary.TotalRequests != 1 || summary.TotalFailures != 1 {
		t.Errorf("rejection should not be recorded, got %+v", summary)
	}
	rec := m.Collector().Entries()[0]
	if rec.StatusCode != 500 || rec.Error != string(goerrors.ErrCodeExternalService) {
		t.Errorf("unexpected failure metric %+v", rec)
	}
	if len(obs.rejections) != 1 || obs.rejections[0] != RejectCircuitOpen {
		t.Errorf("expected circuit_open rejection, got %v", obs.rejections)
	}
	if len(obs.transitions) != 1 || obs.transitions[0] != StateOpen {
		t.Errorf("expected transition to open, got %v", obs.transitions)
	}
}

func TestManager_UserStateChangeHook(t *testing.T) {
	cfg := testManagerConfig()
	cfg.CircuitBreaker.FailureThreshold = 1
	cfg.Retry.Enabled = false

	var called atomic.Int32
	cfg.CircuitBreaker.OnStateChange = func(name string, from, to State) {
		called.Add(1)
	}
	m := newTestManager(cfg)

	_ = m.Do(context.Background(), "GET", "/", func(ctx context.Context) error {
		return errors.New("boom")
	})
	if called.Load() != 1 {
		t.Errorf("expected user hook to run once, ran %d", called.Load())
	}
}

func TestManager_DisabledPassesThrough(t *testing.T) {
	m := newTestManager(DisabledConfig())

	calls := 0
	upstream := goerrors.FromStatus(503, "down")
	for i := 0; i < 10; i++ {
		err := m.Do(context.Background(), "GET", "/", func(ctx context.Context) error {
			calls++
			return upstream
		})
		if err != upstream {
			t.Fatalf("expected upstream error, got %v", err)
		}
	}

	if calls != 10 {
		t.Errorf("expected one call per Do, got %d", calls)
	}
	if m.Metrics() != nil {
		t.Error("expected nil metrics when collection is off")
	}
	if m.CircuitBreaker().State() != StateClosed {
		t.Errorf("disabled breaker opened: %s", m.CircuitBreaker().State())
	}
}

func TestManager_RateLimitTimeout(t *testing.T) {
	cfg := testManagerConfig()
	cfg.RateLimiter = RateLimiterConfig{Enabled: true, RequestsPerSecond: 1, BurstSize: 1}
	cfg.AcquireTimeout = 20 * time.Millisecond
	obs := &recordingObserver{}
	m := newTestManager(cfg, WithObserver(obs))

	ok := func(ctx context.Context) error { return nil }
	if err := m.Do(context.Background(), "GET", "/", ok); err != nil {
		t.Fatalf("first call should pass, got %v", err)
	}

	err := m.Do(context.Background(), "GET", "/", func(ctx context.Context) error {
		t.Error("operation should not be attempted")
		return nil
	})
	if !errors.Is(err, ErrRateLimitTimeout) {
		t.Fatalf("expected rate limit timeout, got %v", err)
	}
	if code, _ := goerrors.StatusCode(err); code != 429 {
		t.Errorf("expected status 429, got %d", code)
	}
	if m.Metrics().TotalRequests != 1 {
		t.Errorf("rejection should not be recorded")
	}
	if len(obs.rejections) != 1 || obs.rejections[0] != RejectRateLimited {
		t.Errorf("expected rate_limited rejection, got %v", obs.rejections)
	}
}

func TestManager_CanceledContextNotAttempted(t *testing.T) {
	m := newTestManager(testManagerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Do(ctx, "GET", "/", func(ctx context.Context) error {
		t.Error("operation should not be attempted")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if m.Metrics().TotalRequests != 0 {
		t.Error("canceled admission should not be recorded")
	}
}

func TestManager_CanceledDuringBackoff(t *testing.T) {
	cfg := testManagerConfig()
	cfg.Retry.BaseDelay = time.Second
	cfg.Retry.MaxDelay = time.Second
	m := newTestManager(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	err := m.Do(ctx, "GET", "/slow", func(ctx context.Context) error {
		calls++
		return goerrors.FromStatus(502, "bad gateway")
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	summary := m.Metrics()
	if summary.TotalRequests != 1 || summary.TotalFailures != 1 {
		t.Errorf("expected one failure recorded, got %+v", summary)
	}
	if m.CircuitBreaker().Failures() != 1 {
		t.Errorf("expected one breaker failure, got %d", m.CircuitBreaker().Failures())
	}
}

func TestManager_NonRetryableFailsImmediately(t *testing.T) {
	m := newTestManager(testManagerConfig())

	calls := 0
	notFound := goerrors.FromStatus(404, "missing")
	_, err := Execute(context.Background(), m, "GET", "/users/1", func(ctx context.Context) (int, error) {
		calls++
		return 0, notFound
	})

	if err != notFound || calls != 1 {
		t.Fatalf("expected single attempt returning original error, got %v after %d", err, calls)
	}
	rec := m.Collector().Entries()[0]
	if rec.StatusCode != 404 || rec.RetryCount != 0 || rec.Success {
		t.Errorf("unexpected metric %+v", rec)
	}
	if m.CircuitBreaker().Failures() != 1 {
		t.Errorf("expected one breaker failure, got %d", m.CircuitBreaker().Failures())
	}
}

func TestManager_BulkheadRejects(t *testing.T) {
	cfg := testManagerConfig()
	cfg.Bulkhead = BulkheadConfig{Enabled: true, MaxConcurrent: 1}
	obs := &recordingObserver{}
	m := newTestManager(cfg, WithObserver(obs))

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Do(context.Background(), "GET", "/", func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := m.Do(context.Background(), "GET", "/", func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if h := m.Health(); h.Bulkhead == nil || h.Bulkhead.InUse != 1 {
		t.Errorf("expected one slot in use, got %+v", h.Bulkhead)
	}

	close(release)
	<-done

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.rejections) != 1 || obs.rejections[0] != RejectBulkheadFull {
		t.Errorf("expected bulkhead_full rejection, got %v", obs.rejections)
	}
}

func TestManager_ConcurrentOutcomesRecordedOnce(t *testing.T) {
	cfg := testManagerConfig()
	cfg.CircuitBreaker.FailureThreshold = 1000
	obs := &recordingObserver{}
	m := newTestManager(cfg, WithObserver(obs))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = m.Do(context.Background(), "GET", "/", func(ctx context.Context) error {
				if n%2 == 0 {
					return goerrors.FromStatus(400, "bad request")
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	summary := m.Metrics()
	if summary.TotalRequests != 50 || summary.TotalSuccesses != 25 || summary.TotalFailures != 25 {
		t.Errorf("unexpected totals %+v", summary)
	}
	if len(obs.requests) != 50 {
		t.Errorf("expected 50 observed requests, got %d", len(obs.requests))
	}
}

func TestManager_HealthAndResets(t *testing.T) {
	cfg := testManagerConfig()
	cfg.CircuitBreaker.FailureThreshold = 1
	cfg.Retry.Enabled = false
	m := newTestManager(cfg)

	h := m.Health()
	if h.CircuitBreaker.State != StateClosed || h.CircuitBreaker.Name != "test" {
		t.Errorf("unexpected breaker health %+v", h.CircuitBreaker)
	}
	if h.RateLimiter.RequestsPerSecond != 100 || h.RateLimiter.BurstSize != 200 {
		t.Errorf("unexpected limiter health %+v", h.RateLimiter)
	}
	if h.Metrics == nil || h.Bulkhead != nil {
		t.Errorf("expected metrics and no bulkhead, got %+v", h)
	}

	_ = m.Do(context.Background(), "GET", "/", func(ctx context.Context) error { return errors.New("boom") })

	h = m.Health()
	if h.CircuitBreaker.State != StateOpen || h.CircuitBreaker.TimeUntilRetryMs <= 0 {
		t.Errorf("expected open breaker with retry delay, got %+v", h.CircuitBreaker)
	}
	if h.Metrics.TotalFailures != 1 {
		t.Errorf("expected one failure, got %d", h.Metrics.TotalFailures)
	}

	m.ResetCircuitBreaker()
	m.ResetMetrics()
	if m.CircuitBreaker().State() != StateClosed {
		t.Error("expected closed after reset")
	}
	if m.Metrics().TotalRequests != 0 {
		t.Error("expected metrics cleared")
	}
}

func TestManager_Defaults(t *testing.T) {
	m := newTestManager(Config{})

	if m.Name() != "default" {
		t.Errorf("expected default name, got %q", m.Name())
	}
	if m.Config().AcquireTimeout != 30*time.Second {
		t.Errorf("expected 30s acquire timeout, got %v", m.Config().AcquireTimeout)
	}
	if m.Metrics() != nil {
		t.Error("zero config does not collect metrics")
	}
}

func TestManager_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	m := newTestManager(testManagerConfig(), WithTracerProvider(tp))

	calls := 0
	_ = m.Do(context.Background(), "GET", "/traced", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("connection refused")
		}
		return nil
	})

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != SpanExecute {
		t.Errorf("unexpected span name %q", span.Name())
	}
	attrs := map[string]any{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs[AttrEndpoint] != "/traced" || attrs[AttrRetries] != int64(1) || attrs[AttrSuccess] != true {
		t.Errorf("unexpected span attributes %v", attrs)
	}
}
