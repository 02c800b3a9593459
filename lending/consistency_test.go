package lending_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

func Test_GetConsistencyLevel(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, lending.StrongConsistency, lending.GetConsistencyLevel(ctx), "strong is the default")
	assert.Equal(t, lending.EventualConsistency, lending.GetConsistencyLevel(lending.WithEventualConsistency(ctx)))
	assert.Equal(t, lending.StrongConsistency,
		lending.GetConsistencyLevel(lending.WithStrongConsistency(lending.WithEventualConsistency(ctx))))

	assert.Equal(t, "strong", lending.StrongConsistency.String())
	assert.Equal(t, "eventual", lending.EventualConsistency.String())
	assert.Equal(t, "unknown", lending.ConsistencyLevel(42).String())
}

type plainCollector struct {
	calls []string
}

func (c *plainCollector) RecordDuration(metric string, _ time.Duration, _ map[string]string) {
	c.calls = append(c.calls, "duration:"+metric)
}

func (c *plainCollector) IncrementCounter(metric string, _ map[string]string) {
	c.calls = append(c.calls, "counter:"+metric)
}

func (c *plainCollector) RecordValue(metric string, _ float64, _ map[string]string) {
	c.calls = append(c.calls, "value:"+metric)
}

type contextualCollector struct {
	plainCollector
}

func (c *contextualCollector) RecordDurationContext(_ context.Context, metric string, _ time.Duration, _ map[string]string) {
	c.calls = append(c.calls, "ctx-duration:"+metric)
}

func (c *contextualCollector) IncrementCounterContext(_ context.Context, metric string, _ map[string]string) {
	c.calls = append(c.calls, "ctx-counter:"+metric)
}

func (c *contextualCollector) RecordValueContext(_ context.Context, metric string, _ float64, _ map[string]string) {
	c.calls = append(c.calls, "ctx-value:"+metric)
}

func Test_MetricHelpers_PreferContextualCollectors(t *testing.T) {
	ctx := context.Background()
	plain := &plainCollector{}
	contextual := &contextualCollector{}

	for _, collector := range []lending.MetricsCollector{plain, contextual} {
		lending.IncrementCounter(ctx, collector, "c", nil)
		lending.RecordDuration(ctx, collector, "d", time.Second, nil)
		lending.RecordValue(ctx, collector, "v", 1, nil)
	}

	assert.Equal(t, []string{"counter:c", "duration:d", "value:v"}, plain.calls)
	assert.Equal(t, []string{"ctx-counter:c", "ctx-duration:d", "ctx-value:v"}, contextual.calls)
}

func Test_MetricHelpers_IgnoreNilCollector(t *testing.T) {
	assert.NotPanics(t, func() {
		lending.IncrementCounter(context.Background(), nil, "c", nil)
		lending.RecordDuration(context.Background(), nil, "d", time.Second, nil)
		lending.RecordValue(context.Background(), nil, "v", 1, nil)
	})
}
