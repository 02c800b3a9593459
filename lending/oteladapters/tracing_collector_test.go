package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/library-lending-go/lending/oteladapters"
)

func newTracedCollector() (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("test")), exporter
}

func spanAttribute(span tracetest.SpanStub, key string) (string, bool) {
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			return attr.Value.AsString(), true
		}
	}

	return "", false
}

func Test_TracingCollector_StartAndFinishSpan(t *testing.T) {
	// setup
	collector, exporter := newTracedCollector()

	// act
	ctx, spanCtx := collector.StartSpan(context.Background(), "lending.lifecycle", map[string]string{"operation": "borrow"})
	spanCtx.AddAttribute("book_id", "b-1")
	collector.FinishSpan(spanCtx, "success", map[string]string{"duration_ms": "1.00"})

	// assert
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid(), "context must carry the span")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "lending.lifecycle", span.Name)
	assert.Equal(t, codes.Ok, span.Status.Code)

	for key, want := range map[string]string{"operation": "borrow", "book_id": "b-1", "duration_ms": "1.00"} {
		got, found := spanAttribute(span, key)
		assert.True(t, found, "missing attribute %s", key)
		assert.Equal(t, want, got)
	}
}

func Test_TracingCollector_StatusMapping(t *testing.T) {
	testCases := []struct {
		status   string
		expected codes.Code
	}{
		{status: "success", expected: codes.Ok},
		{status: "error", expected: codes.Error},
		{status: "canceled", expected: codes.Error},
		{status: "timeout", expected: codes.Error},
		{status: "conflict", expected: codes.Error},
		{status: "rejected", expected: codes.Unset},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			collector, exporter := newTracedCollector()

			_, spanCtx := collector.StartSpan(context.Background(), "op", nil)
			collector.FinishSpan(spanCtx, tc.status, nil)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.expected, spans[0].Status.Code)
		})
	}
}

func Test_TracingCollector_RecordsUnknownStatusAsAttribute(t *testing.T) {
	collector, exporter := newTracedCollector()

	_, spanCtx := collector.StartSpan(context.Background(), "op", nil)
	collector.FinishSpan(spanCtx, "rejected", nil)

	status, found := spanAttribute(exporter.GetSpans()[0], "status")
	assert.True(t, found)
	assert.Equal(t, "rejected", status)
}

func Test_TracingCollector_NestsSpansThroughContext(t *testing.T) {
	collector, exporter := newTracedCollector()

	ctx, parent := collector.StartSpan(context.Background(), "lending.lifecycle", nil)
	_, child := collector.StartSpan(ctx, "lending.store.unit_of_work", nil)
	collector.FinishSpan(child, "success", nil)
	collector.FinishSpan(parent, "success", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
}

type foreignSpan struct{}

func (foreignSpan) SetStatus(string)            {}
func (foreignSpan) AddAttribute(string, string) {}

func Test_TracingCollector_IgnoresForeignSpanContexts(t *testing.T) {
	collector, exporter := newTracedCollector()

	assert.NotPanics(t, func() {
		collector.FinishSpan(foreignSpan{}, "success", map[string]string{"k": "v"})
	})
	assert.Empty(t, exporter.GetSpans())
}

