package resilience

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	goerrors "github.com/kbukum/callguard/errors"
	"github.com/kbukum/callguard/logger"
)

const instrumentationName = "github.com/kbukum/callguard/resilience"

// Span name and attribute keys set on every Execute span.
const (
	SpanExecute = "callguard.execute"

	AttrMethod     = "callguard.method"
	AttrEndpoint   = "callguard.endpoint"
	AttrCircuit    = "callguard.circuit"
	AttrRetries    = "callguard.retries"
	AttrSuccess    = "callguard.success"
	AttrStatusCode = "callguard.status_code"
	AttrRejected   = "callguard.rejected"
)

// Manager composes a rate limiter, circuit breaker, optional bulkhead,
// retry loop and metrics collector around outbound calls.
// It is safe for concurrent use.
type Manager struct {
	config   Config
	limiter  *RateLimiter
	breaker  *CircuitBreaker
	bulkhead *Bulkhead
	metrics  *MetricsCollector

	log      *logger.Logger
	observer Observer
	tracer   trace.Tracer
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for retries, rejections and transitions.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithObserver registers an Observer for call outcomes and transitions.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithTracer sets the tracer Execute spans are created from.
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) {
		if t != nil {
			m.tracer = t
		}
	}
}

// WithTracerProvider sets the provider Execute spans are created from.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *Manager) {
		if tp != nil {
			m.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// NewManager builds a Manager from cfg. Unset fields take the default
// preset values.
func NewManager(cfg Config, opts ...Option) *Manager {
	cfg.ApplyDefaults()

	m := &Manager{
		config:   cfg,
		log:      logger.Get("resilience"),
		observer: NopObserver{},
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(m)
	}

	breakerCfg := cfg.CircuitBreaker
	userHook := breakerCfg.OnStateChange
	breakerCfg.OnStateChange = func(name string, from, to State) {
		m.onStateChange(name, from, to)
		if userHook != nil {
			userHook(name, from, to)
		}
	}

	m.limiter = NewRateLimiter(cfg.RateLimiter)
	m.breaker = NewCircuitBreaker(cfg.Name, breakerCfg)
	if cfg.Bulkhead.Enabled {
		m.bulkhead = NewBulkhead(cfg.Bulkhead)
	}
	if cfg.CollectMetrics {
		m.metrics = NewMetricsCollector(cfg.MetricsWindowSize)
	}
	return m
}

// Execute runs fn through the manager and returns its result.
//
// The call first waits up to AcquireTimeout for a rate limiter token, then
// asks the circuit breaker and the bulkhead for admission; a refusal at any
// of these stages returns without calling fn. Admitted calls run in the
// retry loop. The operation's own error is returned unwrapped once it is
// classified non-retryable or retries are exhausted.
func Execute[T any](ctx context.Context, m *Manager, method, endpoint string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	ctx, span := m.tracer.Start(ctx, SpanExecute,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrMethod, method),
			attribute.String(AttrEndpoint, endpoint),
			attribute.String(AttrCircuit, m.config.Name),
		),
	)
	defer span.End()

	if reason, err := m.admit(ctx); err != nil {
		m.reject(ctx, span, method, endpoint, reason, err)
		return zero, err
	}
	if m.bulkhead != nil {
		defer m.bulkhead.Release()
	}

	requestID := uuid.NewString()
	result, retries, err := runAttempts(ctx, m.config.Retry, fn, func(attempt int, err error, backoff time.Duration) {
		m.log.Debug("retrying request", logger.Fields(
			logger.FieldRequestID, requestID,
			logger.FieldMethod, method,
			logger.FieldEndpoint, endpoint,
			logger.FieldAttempt, attempt+1,
			logger.FieldBackoff, backoff.Milliseconds(),
			logger.FieldError, err.Error(),
		))
		m.observer.OnRetry(ctx, method, endpoint, attempt, backoff, err)
	})

	rm := RequestMetrics{
		RequestID:  requestID,
		Method:     method,
		Endpoint:   endpoint,
		Duration:   time.Since(start),
		Success:    err == nil,
		Timestamp:  time.Now(),
		RetryCount: retries,
	}
	if err == nil {
		m.breaker.RecordSuccess()
	} else {
		m.breaker.RecordFailure()
		rm.StatusCode, _ = goerrors.StatusCode(err)
		rm.Error = goerrors.TypeName(err)
	}
	m.record(ctx, rm)

	span.SetAttributes(
		attribute.Int(AttrRetries, retries),
		attribute.Bool(AttrSuccess, rm.Success),
	)
	if rm.StatusCode > 0 {
		span.SetAttributes(attribute.Int(AttrStatusCode, rm.StatusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

// Do runs an operation that only returns an error.
func (m *Manager) Do(ctx context.Context, method, endpoint string, fn func(ctx context.Context) error) error {
	_, err := Execute(ctx, m, method, endpoint, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Metrics returns the current metrics summary, or nil when metrics
// collection is disabled.
func (m *Manager) Metrics() *MetricsSummary {
	if m.metrics == nil {
		return nil
	}
	summary := m.metrics.Summary()
	return &summary
}

// Health returns a snapshot of every component's state.
func (m *Manager) Health() Health {
	h := Health{
		CircuitBreaker: CircuitHealth{
			Name:     m.breaker.Name(),
			Enabled:  m.breaker.Enabled(),
			State:    m.breaker.State(),
			Failures: m.breaker.Failures(),
		},
		RateLimiter: LimiterHealth{
			Enabled:           m.limiter.Enabled(),
			AvailableTokens:   m.limiter.AvailableTokens(),
			RequestsPerSecond: m.limiter.RequestsPerSecond(),
			BurstSize:         m.limiter.BurstSize(),
		},
		Metrics: m.Metrics(),
	}
	retryIn := m.breaker.TimeUntilRetry()
	h.CircuitBreaker.TimeUntilRetry = retryIn
	h.CircuitBreaker.TimeUntilRetryMs = retryIn.Milliseconds()

	if m.bulkhead != nil {
		h.Bulkhead = &BulkheadHealth{
			InUse:         m.bulkhead.InUse(),
			Available:     m.bulkhead.Available(),
			MaxConcurrent: m.bulkhead.MaxConcurrent(),
			Rejected:      m.bulkhead.Rejected(),
		}
	}
	return h
}

// Name returns the manager name.
func (m *Manager) Name() string {
	return m.config.Name
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.config
}

// RateLimiter returns the manager's rate limiter.
func (m *Manager) RateLimiter() *RateLimiter {
	return m.limiter
}

// CircuitBreaker returns the manager's circuit breaker.
func (m *Manager) CircuitBreaker() *CircuitBreaker {
	return m.breaker
}

// Collector returns the metrics collector, or nil when disabled.
func (m *Manager) Collector() *MetricsCollector {
	return m.metrics
}

// ResetMetrics clears the metrics window and lifetime totals.
func (m *Manager) ResetMetrics() {
	if m.metrics != nil {
		m.metrics.Reset()
	}
}

// ResetCircuitBreaker forces the circuit closed.
func (m *Manager) ResetCircuitBreaker() {
	m.breaker.Reset()
}

// admit runs the pre-attempt stages. On refusal it returns the reason and
// the error handed back to the caller.
func (m *Manager) admit(ctx context.Context) (RejectReason, error) {
	if err := ctx.Err(); err != nil {
		return RejectCanceled, err
	}

	if !m.limiter.Acquire(ctx, m.config.AcquireTimeout) {
		if err := ctx.Err(); err != nil {
			return RejectCanceled, err
		}
		return RejectRateLimited, &RateLimitTimeoutError{Timeout: m.config.AcquireTimeout}
	}

	if !m.breaker.AllowRequest() {
		return RejectCircuitOpen, &CircuitBreakerOpenError{
			Name:       m.config.Name,
			RetryAfter: m.breaker.TimeUntilRetry(),
		}
	}

	if m.bulkhead != nil {
		if err := m.bulkhead.Acquire(ctx); err != nil {
			if ctx.Err() != nil {
				return RejectCanceled, err
			}
			return RejectBulkheadFull, err
		}
	}
	return "", nil
}

func (m *Manager) reject(ctx context.Context, span trace.Span, method, endpoint string, reason RejectReason, err error) {
	m.log.Warn("request rejected", logger.Fields(
		logger.FieldMethod, method,
		logger.FieldEndpoint, endpoint,
		logger.FieldStatus, string(reason),
		logger.FieldError, err.Error(),
	))
	m.observer.OnRejected(ctx, method, endpoint, reason)

	span.SetAttributes(attribute.String(AttrRejected, string(reason)))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (m *Manager) record(ctx context.Context, rm RequestMetrics) {
	if m.metrics != nil {
		m.metrics.Record(rm)
	}
	m.observer.OnRequest(ctx, rm)
}

func (m *Manager) onStateChange(name string, from, to State) {
	m.log.Warn("circuit breaker state changed", logger.Fields(
		logger.FieldCircuit, name,
		logger.FieldFromState, from.String(),
		logger.FieldToState, to.String(),
	))
	m.observer.OnStateChange(name, from, to)
}
