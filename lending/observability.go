package lending

import (
	"context"
	"time"
)

// Logger is the basic logging contract used by stores, the guard and the lifecycle manager.
// Args are slog-style key/value pairs, so *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger is the context-aware logging contract, used for trace correlation.
// *slog.Logger satisfies it as well.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector records durations, counters and values with string labels.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// ContextualMetricsCollector is an optional extension of MetricsCollector.
// When a collector implements it, the context-aware methods are preferred.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, metric string, labels map[string]string)
	RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector starts and finishes spans. It keeps this module free of a hard tracing dependency;
// the oteladapters package provides the OpenTelemetry implementation.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// IncrementCounter increments a counter on the collector, preferring the context-aware method.
// A nil collector is a no-op.
func IncrementCounter(ctx context.Context, collector MetricsCollector, metric string, labels map[string]string) {
	if collector == nil {
		return
	}

	if contextual, ok := collector.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	collector.IncrementCounter(metric, labels)
}

// RecordDuration records a duration on the collector, preferring the context-aware method.
// A nil collector is a no-op.
func RecordDuration(ctx context.Context, collector MetricsCollector, metric string, d time.Duration, labels map[string]string) {
	if collector == nil {
		return
	}

	if contextual, ok := collector.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, d, labels)
		return
	}

	collector.RecordDuration(metric, d, labels)
}

// RecordValue records a value on the collector, preferring the context-aware method.
// A nil collector is a no-op.
func RecordValue(ctx context.Context, collector MetricsCollector, metric string, value float64, labels map[string]string) {
	if collector == nil {
		return
	}

	if contextual, ok := collector.(ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	collector.RecordValue(metric, value, labels)
}
