package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

// TracingCollector implements lending.TracingCollector with an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a TracingCollector on the given tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span carrying attrs and returns the context holding it.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, lending.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan adds attrs, sets the status and ends the span. Foreign SpanContext values are ignored.
func (t *TracingCollector) FinishSpan(spanCtx lending.SpanContext, status string, attrs map[string]string) {
	otelSpan, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpan.span.SetAttributes(attributes(attrs)...)
	otelSpan.SetStatus(status)
	otelSpan.span.End()
}

var _ lending.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext wraps an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus maps the status strings used across this module to span status codes.
// "rejected" is a business outcome, it leaves the code unset and is recorded as attribute only.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case "success", "ok":
		s.span.SetStatus(codes.Ok, "")
	case "error":
		s.span.SetStatus(codes.Error, "operation failed")
	case "canceled", "cancelled":
		s.span.SetStatus(codes.Error, "operation canceled")
	case "timeout":
		s.span.SetStatus(codes.Error, "operation timed out")
	case "conflict":
		s.span.SetStatus(codes.Error, "concurrency conflict")
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ lending.SpanContext = (*OTelSpanContext)(nil)
