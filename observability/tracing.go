package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span wraps an OpenTelemetry span with the moq-specific helpers callers
// use at its call sites (Error/Event/Set), plus an OnEnd hook run before
// the underlying span closes.
type Span struct {
	raw   trace.Span
	onEnd []func()
}

// End runs any OnEnd hooks, then ends the underlying span.
func (s *Span) End() {
	if s == nil {
		return
	}
	for _, fn := range s.onEnd {
		fn()
	}
	if s.raw != nil {
		s.raw.End()
	}
}

// Error records err on the span, if non-nil, and adds msg as an event
// regardless, so call sites can log an attempt outcome unconditionally.
func (s *Span) Error(err error, msg string) {
	if s == nil || s.raw == nil {
		return
	}
	if err != nil {
		s.raw.RecordError(err)
		s.raw.SetStatus(codes.Error, msg)
	}
	s.raw.AddEvent(msg)
}

// Event adds a named event with optional attributes to the span.
func (s *Span) Event(name string, attrs ...attribute.KeyValue) {
	if s == nil || s.raw == nil {
		return
	}
	s.raw.AddEvent(name, trace.WithAttributes(attrs...))
}

// Set adds attributes to the span.
func (s *Span) Set(attrs ...attribute.KeyValue) {
	if s == nil || s.raw == nil {
		return
	}
	s.raw.SetAttributes(attrs...)
}

// Option configures a span started via StartWith.
type Option func(*spanConfig)

type spanConfig struct {
	attrs   []attribute.KeyValue
	onStart func()
	onEnd   func()
}

// Attrs sets the span's starting attributes.
func Attrs(attrs ...attribute.KeyValue) Option {
	return func(c *spanConfig) { c.attrs = append(c.attrs, attrs...) }
}

// OnStart registers a callback run immediately after the span starts.
func OnStart(fn func()) Option {
	return func(c *spanConfig) { c.onStart = fn }
}

// OnEnd registers a callback run immediately before the span ends.
func OnEnd(fn func()) Option {
	return func(c *spanConfig) { c.onEnd = fn }
}

// Start begins a span named name with no options. Safe to call whether or
// not tracing is enabled; a disabled tracer still returns a usable Span.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	return StartWith(ctx, name)
}

// StartWith begins a span named name with the given options applied.
func StartWith(ctx context.Context, name string, opts ...Option) (context.Context, *Span) {
	var cfg spanConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, raw := currentTracer().Start(ctx, name, trace.WithAttributes(cfg.attrs...))
	span := &Span{raw: raw}
	if cfg.onEnd != nil {
		span.onEnd = append(span.onEnd, cfg.onEnd)
	}
	if cfg.onStart != nil {
		cfg.onStart()
	}
	return ctx, span
}
