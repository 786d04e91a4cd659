package component

import (
	"context"
	"fmt"

	"github.com/kbukum/callguard/resilience"
)

// ManagerComponent adapts a resilience.Manager to the Component lifecycle.
// The manager holds only in-memory state, so Start and Stop do not block.
type ManagerComponent struct {
	manager *resilience.Manager
}

var (
	_ Component   = (*ManagerComponent)(nil)
	_ Describable = (*ManagerComponent)(nil)
)

// NewManagerComponent wraps m.
func NewManagerComponent(m *resilience.Manager) *ManagerComponent {
	return &ManagerComponent{manager: m}
}

// Manager returns the wrapped manager.
func (c *ManagerComponent) Manager() *resilience.Manager {
	return c.manager
}

// Name returns "resilience:<manager name>".
func (c *ManagerComponent) Name() string {
	return "resilience:" + c.manager.Name()
}

// Start is a no-op.
func (c *ManagerComponent) Start(_ context.Context) error {
	return nil
}

// Stop is a no-op.
func (c *ManagerComponent) Stop(_ context.Context) error {
	return nil
}

// Health maps the breaker state onto component health: closed is healthy,
// half-open degraded and open unhealthy.
func (c *ManagerComponent) Health(_ context.Context) Health {
	h := c.manager.Health()
	cb := h.CircuitBreaker
	out := Health{Name: c.Name(), Status: StatusHealthy}

	switch cb.State {
	case resilience.StateOpen:
		out.Status = StatusUnhealthy
		out.Message = fmt.Sprintf("circuit open, retry in %dms", cb.TimeUntilRetryMs)
	case resilience.StateHalfOpen:
		out.Status = StatusDegraded
		out.Message = "circuit half-open, probing recovery"
	default:
		if cb.Failures > 0 {
			out.Message = fmt.Sprintf("%d recent failures", cb.Failures)
		}
	}
	return out
}

// Describe reports the limiter and breaker settings.
func (c *ManagerComponent) Describe() Description {
	cfg := c.manager.Config()
	details := "rate_limit=off"
	if cfg.RateLimiter.Enabled {
		details = fmt.Sprintf("rps=%g burst=%d", cfg.RateLimiter.RequestsPerSecond, cfg.RateLimiter.BurstSize)
	}
	if cfg.CircuitBreaker.Enabled {
		details += fmt.Sprintf(" breaker=%d/%d timeout=%s",
			cfg.CircuitBreaker.FailureThreshold, cfg.CircuitBreaker.SuccessThreshold, cfg.CircuitBreaker.Timeout)
	} else {
		details += " breaker=off"
	}
	if cfg.Retry.Enabled {
		details += fmt.Sprintf(" retries=%d", cfg.Retry.MaxRetries)
	}
	return Description{
		Name:    "Resilience " + cfg.Name,
		Type:    "resilience",
		Details: details,
	}
}
