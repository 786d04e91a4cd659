package resilience

import (
	"context"
	"time"
)

// RejectReason names the stage that refused a call before it was attempted.
type RejectReason string

const (
	RejectRateLimited  RejectReason = "rate_limited"
	RejectCircuitOpen  RejectReason = "circuit_open"
	RejectBulkheadFull RejectReason = "bulkhead_full"
	RejectCanceled     RejectReason = "canceled"
)

// Observer receives Manager events. Implementations must be safe for
// concurrent use; callbacks run on the calling goroutine.
type Observer interface {
	// OnRequest is called once per completed call with its recorded outcome.
	OnRequest(ctx context.Context, m RequestMetrics)
	// OnRetry is called before each backoff sleep.
	OnRetry(ctx context.Context, method, endpoint string, attempt int, backoff time.Duration, err error)
	// OnRejected is called when a call is refused before being attempted.
	OnRejected(ctx context.Context, method, endpoint string, reason RejectReason)
	// OnStateChange is called after each circuit transition.
	OnStateChange(name string, from, to State)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnRequest(context.Context, RequestMetrics)                          {}
func (NopObserver) OnRetry(context.Context, string, string, int, time.Duration, error) {}
func (NopObserver) OnRejected(context.Context, string, string, RejectReason)           {}
func (NopObserver) OnStateChange(string, State, State)                                 {}
