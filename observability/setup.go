package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kbukum/callguard"

// Telemetry holds the installed providers. The zero value falls back to
// the global providers.
type Telemetry struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Setup installs the tracer and meter providers described by cfg. With
// export disabled it returns an empty Telemetry.
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	if !cfg.Enabled {
		return &Telemetry{}, nil
	}
	cfg.ApplyDefaults()

	tp, err := InitTracer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mp, err := InitMeter(ctx, cfg)
	if err != nil {
		return nil, errors.Join(err, tp.Shutdown(ctx))
	}
	return &Telemetry{tp: tp, mp: mp}, nil
}

// TracerProvider returns the installed provider or the global one.
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	if t.tp == nil {
		return otel.GetTracerProvider()
	}
	return t.tp
}

// Meter returns the callguard meter.
func (t *Telemetry) Meter() metric.Meter {
	if t.mp == nil {
		return Meter(instrumentationName)
	}
	return t.mp.Meter(instrumentationName)
}

// Shutdown flushes and stops the installed providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.tp != nil {
		errs = append(errs, t.tp.Shutdown(ctx))
	}
	if t.mp != nil {
		errs = append(errs, t.mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
