// Package instrument holds the span, log and counter plumbing shared by the
// observability decorators of each domain.
package instrument

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// Scope is the tracer and logger of one decorator. The zero value is unusable;
// build it with NewScope.
type Scope struct {
	tracer trace.Tracer
	logger *slog.Logger
	// quiet errors are returned without being logged or marked on the span.
	quiet func(error) bool
}

// NewScope starts with a no-op tracer and a discarding logger.
func NewScope(tracerName string) *Scope {
	return &Scope{
		tracer: nooptrace.NewTracerProvider().Tracer(tracerName),
		logger: slog.New(slog.DiscardHandler),
	}
}

// SetTracer ignores nil.
func (s *Scope) SetTracer(tr trace.Tracer) {
	if tr != nil {
		s.tracer = tr
	}
}

// SetLogger ignores nil.
func (s *Scope) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Quiet marks errors that are expected outcomes rather than failures.
func (s *Scope) Quiet(match func(error) bool) {
	s.quiet = match
}

func (s *Scope) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Scope) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Scope) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	s.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}

// Fail records err on span, logs it at error level and returns it unchanged.
func (s *Scope) Fail(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if s.quiet != nil && s.quiet(err) {
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	return err
}

// Counter creates an Int64 counter, or returns nil when m is nil or refuses.
func Counter(m metric.Meter, name, description string) metric.Int64Counter {
	if m == nil {
		return nil
	}
	c, err := m.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return nil
	}
	return c
}

// Add increments counter by one; nil counters are skipped.
func Add(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
