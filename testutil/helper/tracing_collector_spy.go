package helper

import (
	"context"
	"maps"
	"sync"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

// SpySpanContext implements lending.SpanContext for testing.
type SpySpanContext struct {
	name       string
	status     string
	attributes map[string]string
	mu         sync.Mutex
}

// SetStatus implements lending.SpanContext.
func (c *SpySpanContext) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// AddAttribute implements lending.SpanContext.
func (c *SpySpanContext) AddAttribute(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attributes[key] = value
}

// SpySpanRecord represents a finished span.
type SpySpanRecord struct {
	Name       string
	Status     string
	Attributes map[string]string
}

// TracingCollectorSpy is a lending.TracingCollector that captures spans for testing.
type TracingCollectorSpy struct {
	started  int
	finished []SpySpanRecord
	mu       sync.Mutex
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{finished: make([]SpySpanRecord, 0)}
}

// StartSpan implements lending.TracingCollector.
func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, lending.SpanContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started++
	span := &SpySpanContext{name: name, attributes: maps.Clone(attrs)}
	if span.attributes == nil {
		span.attributes = make(map[string]string)
	}

	return ctx, span
}

// FinishSpan implements lending.TracingCollector.
func (s *TracingCollectorSpy) FinishSpan(spanCtx lending.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpySpanContext)
	if !ok {
		return
	}

	span.mu.Lock()
	merged := maps.Clone(span.attributes)
	name := span.name
	span.mu.Unlock()

	maps.Copy(merged, attrs)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.finished = append(s.finished, SpySpanRecord{Name: name, Status: status, Attributes: merged})
}

// StartedCount returns how many spans were started.
func (s *TracingCollectorSpy) StartedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.started
}

// FinishedSpans returns a copy of all finished spans.
func (s *TracingCollectorSpy) FinishedSpans() []SpySpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	spans := make([]SpySpanRecord, len(s.finished))
	copy(spans, s.finished)

	return spans
}

// HasSpan reports whether a finished span with the given name and status exists.
func (s *TracingCollectorSpy) HasSpan(name, status string) bool {
	for _, span := range s.FinishedSpans() {
		if span.Name == name && span.Status == status {
			return true
		}
	}

	return false
}
