package oteladapters

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

// MetricsCollector implements lending.ContextualMetricsCollector with OpenTelemetry instruments:
// durations become float64 histograms in seconds, counters int64 counters and values float64 gauges.
// Instruments are created on first use and cached by name. It is safe for concurrent use.
type MetricsCollector struct {
	meter      metric.Meter
	mu         sync.Mutex
	histograms map[string]metric.Float64Histogram
	counters   map[string]metric.Int64Counter
	gauges     map[string]metric.Float64Gauge
}

// NewMetricsCollector creates a MetricsCollector on the given meter.
func NewMetricsCollector(meter metric.Meter) *MetricsCollector {
	return &MetricsCollector{
		meter:      meter,
		histograms: make(map[string]metric.Float64Histogram),
		counters:   make(map[string]metric.Int64Counter),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

func (m *MetricsCollector) RecordDuration(name string, duration time.Duration, labels map[string]string) {
	m.RecordDurationContext(context.Background(), name, duration, labels)
}

func (m *MetricsCollector) RecordDurationContext(ctx context.Context, name string, duration time.Duration, labels map[string]string) {
	if histogram := m.histogram(name); histogram != nil {
		histogram.Record(ctx, duration.Seconds(), metric.WithAttributes(attributes(labels)...))
	}
}

func (m *MetricsCollector) IncrementCounter(name string, labels map[string]string) {
	m.IncrementCounterContext(context.Background(), name, labels)
}

func (m *MetricsCollector) IncrementCounterContext(ctx context.Context, name string, labels map[string]string) {
	if counter := m.counter(name); counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attributes(labels)...))
	}
}

func (m *MetricsCollector) RecordValue(name string, value float64, labels map[string]string) {
	m.RecordValueContext(context.Background(), name, value, labels)
}

func (m *MetricsCollector) RecordValueContext(ctx context.Context, name string, value float64, labels map[string]string) {
	if gauge := m.gauge(name); gauge != nil {
		gauge.Record(ctx, value, metric.WithAttributes(attributes(labels)...))
	}
}

// A nil instrument means the meter rejected the name; the measurement is dropped.
func (m *MetricsCollector) histogram(name string) metric.Float64Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, ok := m.histograms[name]; ok {
		return histogram
	}

	histogram, err := m.meter.Float64Histogram(name, metric.WithDescription(describe(name)), metric.WithUnit("s"))
	if err != nil {
		return nil
	}

	m.histograms[name] = histogram

	return histogram
}

func (m *MetricsCollector) counter(name string) metric.Int64Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, ok := m.counters[name]; ok {
		return counter
	}

	counter, err := m.meter.Int64Counter(name, metric.WithDescription(describe(name)))
	if err != nil {
		return nil
	}

	m.counters[name] = counter

	return counter
}

func (m *MetricsCollector) gauge(name string) metric.Float64Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gauge, ok := m.gauges[name]; ok {
		return gauge
	}

	gauge, err := m.meter.Float64Gauge(name, metric.WithDescription(describe(name)))
	if err != nil {
		return nil
	}

	m.gauges[name] = gauge

	return gauge
}

// describe derives a readable description from a metric name like "lending_retries_total".
func describe(name string) string {
	name = strings.TrimSuffix(name, "_total")
	name = strings.TrimSuffix(name, "_seconds")

	return strings.ReplaceAll(name, "_", " ")
}

func attributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for key, value := range labels {
		attrs = append(attrs, attribute.String(key, value))
	}

	return attrs
}

var _ lending.ContextualMetricsCollector = (*MetricsCollector)(nil)
