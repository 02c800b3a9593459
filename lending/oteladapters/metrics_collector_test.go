package oteladapters_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lending/oteladapters"
)

func newMeteredCollector() (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return oteladapters.NewMetricsCollector(provider.Meter("test")), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics), "failed to collect metrics")

	return resourceMetrics
}

func findMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Metrics {
	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name == name {
				return m
			}
		}
	}

	require.Failf(t, "metric not found", "metric %q was not recorded", name)

	return metricdata.Metrics{}
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	// setup
	collector, reader := newMeteredCollector()

	// act
	collector.RecordDuration("lending_operation_duration_seconds", 150*time.Millisecond, map[string]string{
		"operation": "borrow",
		"status":    "success",
	})

	// assert
	m := findMetric(t, collect(t, reader), "lending_operation_duration_seconds")
	assert.Equal(t, "s", m.Unit)
	histogram, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected a float64 histogram")
	require.Len(t, histogram.DataPoints, 1)
	assert.Equal(t, uint64(1), histogram.DataPoints[0].Count)
	assert.InDelta(t, 0.15, histogram.DataPoints[0].Sum, 0.001)

	expected := attribute.NewSet(attribute.String("operation", "borrow"), attribute.String("status", "success"))
	assert.True(t, histogram.DataPoints[0].Attributes.Equals(&expected))
}

func Test_MetricsCollector_IncrementCounter_ViaContextHelper(t *testing.T) {
	// setup
	collector, reader := newMeteredCollector()
	labels := map[string]string{"outcome": "claimed"}

	// act
	for range 3 {
		lending.IncrementCounter(context.Background(), collector, "inventory_claims_total", labels)
	}

	// assert
	sum, ok := findMetric(t, collect(t, reader), "inventory_claims_total").Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum")
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
	assert.True(t, sum.IsMonotonic)
}

func Test_MetricsCollector_RecordValue(t *testing.T) {
	// setup
	collector, reader := newMeteredCollector()

	// act
	collector.RecordValue("librarysim_books_on_loan", 12, nil)
	collector.RecordValueContext(context.Background(), "librarysim_books_on_loan", 7, nil)

	// assert
	gauge, ok := findMetric(t, collect(t, reader), "librarysim_books_on_loan").Data.(metricdata.Gauge[float64])
	require.True(t, ok, "expected a float64 gauge")
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 7.0, gauge.DataPoints[0].Value, 0.0001)
}

func Test_MetricsCollector_SeparatesDataPointsByLabels(t *testing.T) {
	collector, reader := newMeteredCollector()

	collector.IncrementCounter("lending_operation_calls_total", map[string]string{"status": "success"})
	collector.IncrementCounter("lending_operation_calls_total", map[string]string{"status": "rejected"})
	collector.IncrementCounter("lending_operation_calls_total", map[string]string{"status": "rejected"})

	sum, ok := findMetric(t, collect(t, reader), "lending_operation_calls_total").Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2)
}

func Test_MetricsCollector_IsSafeForConcurrentUse(t *testing.T) {
	// setup
	collector, reader := newMeteredCollector()

	// act
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementCounterContext(context.Background(), "lending_retries_total", nil)
			collector.RecordDurationContext(context.Background(), "lending_retry_delay_seconds", time.Millisecond, nil)
		}()
	}
	wg.Wait()

	// assert
	sum, ok := findMetric(t, collect(t, reader), "lending_retries_total").Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(20), sum.DataPoints[0].Value)
}
