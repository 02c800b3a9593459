package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

func Test_RetryWithExponentialBackoff_Success_NoRetries(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		return nil
	}

	meta, err := RetryWithExponentialBackoff(ctx, fn)

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, 1, meta.Attempts)
	assert.Equal(t, time.Duration(0), meta.TotalDelay)
	assert.Equal(t, "none", meta.LastErrorType)
	assert.False(t, meta.RetriesExhausted)
}

func Test_RetryWithExponentialBackoff_RetryOnConcurrencyConflict(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		if callCount < 3 {
			return lending.ErrConcurrencyConflict // fail twice
		}
		return nil
	}

	meta, err := RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(time.Millisecond))

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
	assert.Equal(t, 3, meta.Attempts)
	assert.Greater(t, meta.TotalDelay, time.Duration(0))
	assert.Equal(t, "none", meta.LastErrorType)
}

func Test_RetryWithExponentialBackoff_DoesNotRetryBusinessErrors(t *testing.T) {
	for _, businessErr := range []error{
		lending.ErrBookUnavailable,
		lending.ErrBookNotFound,
		lending.ErrLoanNotFound,
		lending.ErrLoanAlreadyReturned,
	} {
		t.Run(businessErr.Error(), func(t *testing.T) {
			callCount := 0

			fn := func(_ context.Context) error {
				callCount++
				return businessErr
			}

			meta, err := RetryWithExponentialBackoff(context.Background(), fn)

			assert.ErrorIs(t, err, businessErr)
			assert.Equal(t, 1, callCount)
			assert.Equal(t, 1, meta.Attempts)
			assert.Equal(t, "business", meta.LastErrorType)
		})
	}
}

func Test_RetryWithExponentialBackoff_DoesNotRetryTechnicalErrors(t *testing.T) {
	callCount := 0
	dbErr := errors.Join(lending.ErrQueryingFailed, errors.New("connection refused"))

	fn := func(_ context.Context) error {
		callCount++
		return dbErr
	}

	meta, err := RetryWithExponentialBackoff(context.Background(), fn)

	assert.ErrorIs(t, err, lending.ErrQueryingFailed)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, "other", meta.LastErrorType)
}

func Test_RetryWithExponentialBackoff_ExhaustsAttempts(t *testing.T) {
	// setup
	callCount := 0
	metrics := &countingCollector{}

	fn := func(_ context.Context) error {
		callCount++
		return lending.ErrConcurrencyConflict
	}

	// act
	meta, err := RetryWithExponentialBackoff(context.Background(), fn,
		WithMaxAttempts(3),
		WithBaseDelay(time.Millisecond),
		WithJitterFactor(0),
		withRetryMetrics(metrics, OperationReturn),
	)

	// assert
	assert.ErrorIs(t, err, lending.ErrConcurrencyConflict)
	assert.Equal(t, 3, callCount)
	assert.Equal(t, 3, meta.Attempts)
	assert.True(t, meta.RetriesExhausted)
	assert.Equal(t, "concurrency_conflict", meta.LastErrorType)
	assert.Equal(t, 3*time.Millisecond, meta.TotalDelay) // 1ms + 2ms
	assert.Equal(t, 2, metrics.counters[metricRetries])
	assert.Equal(t, 1, metrics.counters[metricMaxRetriesReached])
	assert.Equal(t, 2, metrics.durations[metricRetryDelay])
}

func Test_RetryWithExponentialBackoff_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		cancel()
		return lending.ErrConcurrencyConflict
	}

	meta, err := RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(time.Second))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, "context_canceled", meta.LastErrorType)
	assert.False(t, meta.RetriesExhausted)
}

func Test_RetryWithExponentialBackoff_InvalidOptions(t *testing.T) {
	ctx := context.Background()
	fn := func(_ context.Context) error { return nil }

	_, err := RetryWithExponentialBackoff(ctx, fn, WithMaxAttempts(0))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	_, err = RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(-1*time.Second))
	assert.ErrorIs(t, err, ErrNegativeBaseDelay)

	_, err = RetryWithExponentialBackoff(ctx, fn, WithJitterFactor(1.5))
	assert.ErrorIs(t, err, ErrInvalidJitterFactor)
}

type countingCollector struct {
	counters  map[string]int
	durations map[string]int
	values    map[string]int
}

func (c *countingCollector) init() {
	if c.counters == nil {
		c.counters = make(map[string]int)
		c.durations = make(map[string]int)
		c.values = make(map[string]int)
	}
}

func (c *countingCollector) RecordDuration(metric string, _ time.Duration, _ map[string]string) {
	c.init()
	c.durations[metric]++
}

func (c *countingCollector) IncrementCounter(metric string, _ map[string]string) {
	c.init()
	c.counters[metric]++
}

func (c *countingCollector) RecordValue(metric string, _ float64, _ map[string]string) {
	c.init()
	c.values[metric]++
}
