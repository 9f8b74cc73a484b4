// Package observability wires OpenTelemetry tracing and metrics for the
// relay and publisher, grounded on the pre-existing observability_test.go/
// metrics_test.go contract this package implements.
package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config controls which observability features Setup enables. The zero
// value disables everything: Start still returns a usable (no-op) span
// and Recorder methods are safe to call, just not exported anywhere.
type Config struct {
	// Service names this process in exported spans/metrics.
	Service string
	// TraceAddr, if set, enables the tracer provider. Export wiring (an
	// OTLP exporter dialing this address) is a documented extension
	// point, not implemented here — see DESIGN.md.
	TraceAddr string
	// LogAddr, if set, is reserved for a future log-exporter wiring.
	LogAddr string
	// Metrics enables the meter provider and Recorder instruments.
	Metrics bool
}

var (
	mu             sync.Mutex
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	enabled        bool
	metricsEnabled bool
)

// Setup initializes tracing/metrics per cfg. Safe to call with a zero
// Config; every later call in this package degrades to a no-op.
func Setup(ctx context.Context, cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	service := cfg.Service
	if service == "" {
		service = "moq"
	}

	if cfg.TraceAddr != "" {
		tracerProvider = sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tracerProvider)
		tracer = tracerProvider.Tracer(service)
		enabled = true
	} else {
		tracer = otel.Tracer(service)
		enabled = false
	}

	if cfg.Metrics {
		meterProvider = sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(meterProvider)
		if err := initInstruments(meterProvider.Meter(service)); err != nil {
			return err
		}
		metricsEnabled = true
	} else {
		metricsEnabled = false
		clearInstruments()
	}

	return nil
}

// Shutdown flushes and releases any providers Setup created.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp, mp := tracerProvider, meterProvider
	tracerProvider, meterProvider, tracer = nil, nil, nil
	enabled, metricsEnabled = false, false
	clearInstruments()
	mu.Unlock()

	var err error
	if tp != nil {
		if e := tp.Shutdown(ctx); e != nil {
			err = e
		}
	}
	if mp != nil {
		if e := mp.Shutdown(ctx); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// Enabled reports whether Setup installed an SDK tracer provider
// (Config.TraceAddr was set). No span exporter is wired to it.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// MetricsEnabled reports whether metric instruments are active.
func MetricsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return metricsEnabled
}

func currentTracer() trace.Tracer {
	mu.Lock()
	defer mu.Unlock()
	if tracer != nil {
		return tracer
	}
	return otel.Tracer("moq")
}
