package helper

import (
	"context"
	"maps"
	"sync"
	"time"
)

// SpyMetricKind tells which collector method produced a SpyMetricRecord.
type SpyMetricKind string

const (
	SpyDuration SpyMetricKind = "duration"
	SpyCounter  SpyMetricKind = "counter"
	SpyValue    SpyMetricKind = "value"
)

// SpyMetricRecord represents one recorded metric call.
type SpyMetricRecord struct {
	Kind        SpyMetricKind
	Metric      string
	Duration    time.Duration
	Value       float64
	Labels      map[string]string
	WithContext bool
}

// MetricsCollectorSpy captures metric calls for testing.
// It implements lending.ContextualMetricsCollector.
type MetricsCollectorSpy struct {
	records []SpyMetricRecord
	mu      sync.Mutex
}

// NewMetricsCollectorSpy creates a new MetricsCollectorSpy.
func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{records: make([]SpyMetricRecord, 0)}
}

func (s *MetricsCollectorSpy) add(record SpyMetricRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.Labels = maps.Clone(record.Labels)
	s.records = append(s.records, record)
}

// RecordDuration implements lending.MetricsCollector.
func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.add(SpyMetricRecord{Kind: SpyDuration, Metric: metric, Duration: duration, Labels: labels})
}

// IncrementCounter implements lending.MetricsCollector.
func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.add(SpyMetricRecord{Kind: SpyCounter, Metric: metric, Labels: labels})
}

// RecordValue implements lending.MetricsCollector.
func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.add(SpyMetricRecord{Kind: SpyValue, Metric: metric, Value: value, Labels: labels})
}

// RecordDurationContext implements lending.ContextualMetricsCollector.
func (s *MetricsCollectorSpy) RecordDurationContext(_ context.Context, metric string, duration time.Duration, labels map[string]string) {
	s.add(SpyMetricRecord{Kind: SpyDuration, Metric: metric, Duration: duration, Labels: labels, WithContext: true})
}

// IncrementCounterContext implements lending.ContextualMetricsCollector.
func (s *MetricsCollectorSpy) IncrementCounterContext(_ context.Context, metric string, labels map[string]string) {
	s.add(SpyMetricRecord{Kind: SpyCounter, Metric: metric, Labels: labels, WithContext: true})
}

// RecordValueContext implements lending.ContextualMetricsCollector.
func (s *MetricsCollectorSpy) RecordValueContext(_ context.Context, metric string, value float64, labels map[string]string) {
	s.add(SpyMetricRecord{Kind: SpyValue, Metric: metric, Value: value, Labels: labels, WithContext: true})
}

// Records returns a copy of all captured records.
func (s *MetricsCollectorSpy) Records() []SpyMetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]SpyMetricRecord, len(s.records))
	copy(records, s.records)

	return records
}

// Reset clears all captured records.
func (s *MetricsCollectorSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = s.records[:0]
}

// Count counts the records of the given kind and metric whose labels contain all of the given labels.
func (s *MetricsCollectorSpy) Count(kind SpyMetricKind, metric string, labels map[string]string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, record := range s.records {
		if record.Kind == kind && record.Metric == metric && containsLabels(record.Labels, labels) {
			count++
		}
	}

	return count
}

// Has reports whether at least one matching record exists. See Count.
func (s *MetricsCollectorSpy) Has(kind SpyMetricKind, metric string, labels map[string]string) bool {
	return s.Count(kind, metric, labels) > 0
}

func containsLabels(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}

	return true
}
