package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/callguard/component"
	goerrors "github.com/kbukum/callguard/errors"
	"github.com/kbukum/callguard/resilience"
	"github.com/kbukum/callguard/version"
)

// Route paths.
const (
	PathHealth     = "/health"
	PathMetrics    = "/metrics/summary"
	PathComponents = "/health/components"
	PathInfo       = "/info"
)

// Response is the body of GET /health.
type Response struct {
	Status         component.HealthStatus     `json:"status"`
	Name           string                     `json:"name"`
	Version        string                     `json:"version"`
	Timestamp      string                     `json:"timestamp"`
	CircuitBreaker resilience.CircuitHealth   `json:"circuit_breaker"`
	RateLimiter    resilience.LimiterHealth   `json:"rate_limiter"`
	Bulkhead       *resilience.BulkheadHealth `json:"bulkhead,omitempty"`
}

// Checker returns health status for registered components.
type Checker func(ctx context.Context) []component.Health

// Register mounts GET /health and GET /metrics/summary for m.
func Register(router gin.IRouter, m *resilience.Manager) {
	router.GET(PathHealth, Handler(m))
	router.GET(PathMetrics, MetricsHandler(m))
}

// Handler reports the manager's health. It responds 503 while the circuit
// is open and 200 otherwise.
func Handler(m *resilience.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := m.Health()
		status := StatusOf(h.CircuitBreaker.State)

		httpStatus := http.StatusOK
		if status == component.StatusUnhealthy {
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, Response{
			Status:         status,
			Name:           m.Name(),
			Version:        version.Version,
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
			CircuitBreaker: h.CircuitBreaker,
			RateLimiter:    h.RateLimiter,
			Bulkhead:       h.Bulkhead,
		})
	}
}

// MetricsHandler returns the manager's metrics summary, or 404 when
// metrics collection is disabled.
func MetricsHandler(m *resilience.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary := m.Metrics()
		if summary == nil {
			status, body := goerrors.Response(goerrors.New(goerrors.ErrCodeNotFound, "metrics collection is disabled", 0).
				WithDetail("manager", m.Name()))
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// ComponentsHandler aggregates component health: unhealthy anywhere is 503.
func ComponentsHandler(serviceName string, checker Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var components []component.Health
		if checker != nil {
			components = checker(c.Request.Context())
		}
		status := component.Worst(components)

		httpStatus := http.StatusOK
		if status == component.StatusUnhealthy {
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":     status,
			"service":    serviceName,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": components,
		})
	}
}

// InfoHandler reports build information.
func InfoHandler(serviceName string) gin.HandlerFunc {
	started := time.Now()
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": serviceName,
			"build":   version.Get(),
			"uptime":  time.Since(started).Round(time.Second).String(),
		})
	}
}

// StatusOf maps a circuit state onto a health status.
func StatusOf(s resilience.State) component.HealthStatus {
	switch s {
	case resilience.StateOpen:
		return component.StatusUnhealthy
	case resilience.StateHalfOpen:
		return component.StatusDegraded
	default:
		return component.StatusHealthy
	}
}
