package resilience

import (
	"slices"
	"sync"
	"time"
)

// RequestMetrics is the outcome of one completed call.
type RequestMetrics struct {
	RequestID  string        `json:"request_id"`
	Method     string        `json:"method"`
	Endpoint   string        `json:"endpoint"`
	StatusCode int           `json:"status_code,omitempty"`
	Duration   time.Duration `json:"duration"`
	Success    bool          `json:"success"`
	Timestamp  time.Time     `json:"timestamp"`
	Error      string        `json:"error,omitempty"`
	RetryCount int           `json:"retry_count"`
}

// MetricsSummary aggregates the metrics window. Latencies are in milliseconds.
// Totals are lifetime counters; every other field describes the window only.
type MetricsSummary struct {
	TotalRequests      int64          `json:"total_requests"`
	TotalSuccesses     int64          `json:"total_successes"`
	TotalFailures      int64          `json:"total_failures"`
	WindowSize         int            `json:"window_size"`
	SuccessRate        float64        `json:"success_rate"`
	AvgLatency         float64        `json:"avg_latency_ms"`
	MinLatency         float64        `json:"min_latency_ms"`
	MaxLatency         float64        `json:"max_latency_ms"`
	P50Latency         float64        `json:"p50_latency_ms"`
	P95Latency         float64        `json:"p95_latency_ms"`
	P99Latency         float64        `json:"p99_latency_ms"`
	RequestsByEndpoint map[string]int `json:"requests_by_endpoint"`
	ErrorsByType       map[string]int `json:"errors_by_type"`
}

// MetricsCollector keeps the most recent call outcomes in a fixed-capacity
// ring and lifetime totals that eviction never decrements.
type MetricsCollector struct {
	mu       sync.Mutex
	window   []RequestMetrics
	head     int
	size     int
	requests int64
	success  int64
	failures int64
}

// NewMetricsCollector creates a collector holding at most windowSize entries.
func NewMetricsCollector(windowSize int) *MetricsCollector {
	if windowSize <= 0 {
		windowSize = defaultMetricsWindowSize
	}
	return &MetricsCollector{
		window: make([]RequestMetrics, windowSize),
	}
}

// Record appends m, evicting the oldest entry once the window is full.
func (c *MetricsCollector) Record(m RequestMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	capacity := len(c.window)
	if c.size < capacity {
		c.window[(c.head+c.size)%capacity] = m
		c.size++
	} else {
		c.window[c.head] = m
		c.head = (c.head + 1) % capacity
	}

	c.requests++
	if m.Success {
		c.success++
	} else {
		c.failures++
	}
}

// Summary computes aggregates over the current window.
func (c *MetricsCollector) Summary() MetricsSummary {
	c.mu.Lock()
	entries := c.snapshot()
	summary := MetricsSummary{
		TotalRequests:  c.requests,
		TotalSuccesses: c.success,
		TotalFailures:  c.failures,
	}
	c.mu.Unlock()

	summary.RequestsByEndpoint = map[string]int{}
	summary.ErrorsByType = map[string]int{}
	n := len(entries)
	if n == 0 {
		return summary
	}
	summary.WindowSize = n

	latencies := make([]float64, n)
	var successes int
	var sum float64
	for i, m := range entries {
		latencies[i] = durationMs(m.Duration)
		sum += latencies[i]
		if m.Success {
			successes++
		}
		summary.RequestsByEndpoint[m.Endpoint]++
		if m.Error != "" {
			summary.ErrorsByType[m.Error]++
		}
	}
	slices.Sort(latencies)

	summary.SuccessRate = float64(successes) / float64(n) * 100
	summary.AvgLatency = sum / float64(n)
	summary.MinLatency = latencies[0]
	summary.MaxLatency = latencies[n-1]
	summary.P50Latency = percentile(latencies, 0.50)
	summary.P95Latency = percentile(latencies, 0.95)
	summary.P99Latency = percentile(latencies, 0.99)
	return summary
}

// Entries returns the window contents, oldest first.
func (c *MetricsCollector) Entries() []RequestMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Len returns the number of entries in the window.
func (c *MetricsCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Capacity returns the window capacity.
func (c *MetricsCollector) Capacity() int {
	return len(c.window)
}

// Totals returns the lifetime request, success and failure counts.
func (c *MetricsCollector) Totals() (requests, successes, failures int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests, c.success, c.failures
}

// Reset clears the window and every counter.
func (c *MetricsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.window)
	c.head, c.size = 0, 0
	c.requests, c.success, c.failures = 0, 0, 0
}

// snapshot copies the ring in insertion order. Callers hold mu.
func (c *MetricsCollector) snapshot() []RequestMetrics {
	out := make([]RequestMetrics, c.size)
	for i := range c.size {
		out[i] = c.window[(c.head+i)%len(c.window)]
	}
	return out
}

// percentile indexes a sorted slice at floor(n*p).
func percentile(sorted []float64, p float64) float64 {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
