// Package health exposes resilience Manager state over HTTP.
//
// Register mounts the handlers on any gin router:
//
//	GET /health           overall status, circuit breaker and rate limiter
//	GET /metrics/summary  windowed MetricsSummary
//
// Server hosts a router on its own listener and implements
// component.Component so it can be started alongside the rest of a process.
package health
