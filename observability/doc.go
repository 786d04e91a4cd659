// Package observability wires OpenTelemetry tracing and metrics for callguard.
//
// Providers export over OTLP HTTP:
//
//	tel, err := observability.Setup(ctx, cfg)
//	defer tel.Shutdown(ctx)
//
// ResilienceMetrics turns every resilience.Manager outcome into OTel
// instruments:
//
//	rm, err := observability.NewResilienceMetrics(tel.Meter())
//	m := resilience.NewManager(cfg, resilience.WithObserver(rm),
//	    resilience.WithTracerProvider(tel.TracerProvider()))
package observability
