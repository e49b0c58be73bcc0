// Package o11y is the tracing and metrics facade used across the service.
//
// A Provider travels in the context. Code reaches it through the package functions,
// which fall back to a provider that records nothing, so tests and tools can run
// without one.
package o11y

import (
	"context"
	"net/http"
)

type Provider interface {
	// AddGlobalField sets a field on every event the provider sends, eg. version or mode.
	AddGlobalField(key string, val any)

	// StartSpan opens a child of the span in ctx, or a new trace when ctx has none.
	// The caller ends it, normally with:
	//
	//	ctx, span := o11y.StartSpan(ctx, "session: save")
	//	defer o11y.End(span, &err)
	StartSpan(ctx context.Context, name string) (context.Context, Span)

	// ContinueTrace opens the root span of an inbound request, joining the caller's
	// trace when the request headers carry one.
	ContinueTrace(ctx context.Context, name string, h http.Header) (context.Context, Span)

	// GetSpan returns the span in ctx, or nil.
	GetSpan(ctx context.Context) Span

	// AddField sets an application field, prefixed "app.", on the span in ctx.
	AddField(ctx context.Context, key string, val any)

	// Log sends a zero duration event.
	Log(ctx context.Context, name string, fields ...Pair)

	// MetricsProvider is where span metrics and system gauges are sent.
	MetricsProvider() MetricsProvider

	Close(ctx context.Context)
}

type Span interface {
	// AddField sets an application field, prefixed "app.".
	AddField(key string, val any)
	// AddRawField sets a field as named, for plumbing such as result or http.status_code.
	AddRawField(key string, val any)
	// RecordMetric emits metric from the span's fields when the span ends.
	RecordMetric(metric Metric)
	End()
}

// Pair is a field attached to a logged event.
type Pair struct {
	Key   string
	Value any
}

func Field(key string, value any) Pair {
	return Pair{Key: key, Value: value}
}

type providerKey struct{}

// WithProvider returns a child of ctx carrying p.
func WithProvider(ctx context.Context, p Provider) context.Context {
	return context.WithValue(ctx, providerKey{}, p)
}

// FromContext returns the provider in ctx, or a no-op provider.
func FromContext(ctx context.Context) Provider {
	if p, ok := ctx.Value(providerKey{}).(Provider); ok {
		return p
	}
	return noop{}
}

func StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return FromContext(ctx).StartSpan(ctx, name)
}

func AddField(ctx context.Context, key string, val any) {
	FromContext(ctx).AddField(ctx, key, val)
}

func Log(ctx context.Context, name string, fields ...Pair) {
	FromContext(ctx).Log(ctx, name, fields...)
}

// LogError sends a zero duration event carrying err as its result. A warning is
// logged as a successful event with a warning field.
func LogError(ctx context.Context, name string, err error, fields ...Pair) {
	_, span := StartSpan(ctx, name)
	for _, f := range fields {
		span.AddField(f.Key, f.Value)
	}
	End(span, &err)
}

type noop struct{}

func (noop) AddGlobalField(string, any)            {}
func (noop) AddField(context.Context, string, any) {}
func (noop) Log(context.Context, string, ...Pair)  {}
func (noop) Close(context.Context)                 {}
func (noop) GetSpan(context.Context) Span          { return noopSpan{} }
func (noop) MetricsProvider() MetricsProvider      { return noopMetrics{} }

func (noop) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noop) ContinueTrace(ctx context.Context, _ string, _ http.Header) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) AddField(string, any)    {}
func (noopSpan) AddRawField(string, any) {}
func (noopSpan) RecordMetric(Metric)     {}
func (noopSpan) End()                    {}
