package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/callguard/resilience"
)

// Instrument names recorded by ResilienceMetrics.
const (
	MetricRequests     = "callguard.requests"
	MetricDuration     = "callguard.request.duration"
	MetricRetries      = "callguard.retries"
	MetricRejections   = "callguard.rejections"
	MetricTransitions  = "callguard.breaker.transitions"
	MetricBreakerState = "callguard.breaker.state"
)

var _ resilience.Observer = (*ResilienceMetrics)(nil)

// ResilienceMetrics records Manager events as OpenTelemetry instruments.
type ResilienceMetrics struct {
	requests     metric.Int64Counter
	duration     metric.Float64Histogram
	retries      metric.Int64Counter
	rejections   metric.Int64Counter
	transitions  metric.Int64Counter
	breakerState metric.Int64Gauge
}

// NewResilienceMetrics creates the instruments on meter.
func NewResilienceMetrics(meter metric.Meter) (*ResilienceMetrics, error) {
	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("Completed calls by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRequests, err)
	}

	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Call duration including retries and admission waits"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricDuration, err)
	}

	retries, err := meter.Int64Counter(MetricRetries,
		metric.WithDescription("Scheduled retries"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRetries, err)
	}

	rejections, err := meter.Int64Counter(MetricRejections,
		metric.WithDescription("Calls refused before being attempted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRejections, err)
	}

	transitions, err := meter.Int64Counter(MetricTransitions,
		metric.WithDescription("Circuit breaker state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricTransitions, err)
	}

	breakerState, err := meter.Int64Gauge(MetricBreakerState,
		metric.WithDescription("Circuit state: 0 closed, 1 open, 2 half-open"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricBreakerState, err)
	}

	return &ResilienceMetrics{
		requests:     requests,
		duration:     duration,
		retries:      retries,
		rejections:   rejections,
		transitions:  transitions,
		breakerState: breakerState,
	}, nil
}

// OnRequest records a completed call.
func (m *ResilienceMetrics) OnRequest(ctx context.Context, rm resilience.RequestMetrics) {
	outcome := "success"
	if !rm.Success {
		outcome = "failure"
	}
	attrs := []attribute.KeyValue{
		attribute.String("method", rm.Method),
		attribute.String("endpoint", rm.Endpoint),
		attribute.String("outcome", outcome),
	}
	if rm.StatusCode > 0 {
		attrs = append(attrs, attribute.String("status_code", strconv.Itoa(rm.StatusCode)))
	}
	if rm.Error != "" {
		attrs = append(attrs, attribute.String("error_type", rm.Error))
	}

	m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.duration.Record(ctx, float64(rm.Duration)/float64(time.Millisecond), metric.WithAttributes(
		attribute.String("method", rm.Method),
		attribute.String("endpoint", rm.Endpoint),
		attribute.String("outcome", outcome),
	))
}

// OnRetry records a scheduled retry.
func (m *ResilienceMetrics) OnRetry(ctx context.Context, method, endpoint string, attempt int, _ time.Duration, _ error) {
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("endpoint", endpoint),
		attribute.Int("attempt", attempt+1),
	))
}

// OnRejected records an admission rejection.
func (m *ResilienceMetrics) OnRejected(ctx context.Context, method, endpoint string, reason resilience.RejectReason) {
	m.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("endpoint", endpoint),
		attribute.String("reason", string(reason)),
	))
}

// OnStateChange records a circuit transition and the new state.
func (m *ResilienceMetrics) OnStateChange(name string, from, to resilience.State) {
	ctx := context.Background()
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("circuit", name),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
	m.breakerState.Record(ctx, int64(to), metric.WithAttributes(
		attribute.String("circuit", name),
	))
}
