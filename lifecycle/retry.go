package lifecycle

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

var (
	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// Values of RetryMetrics.LastErrorType.
const (
	errorTypeNone             = "none"
	errorTypeConflict         = "concurrency_conflict"
	errorTypeCanceled         = "context_canceled"
	errorTypeDeadlineExceeded = "context_deadline_exceeded"
	errorTypeBusiness         = "business"
	errorTypeOther            = "other"
)

// RetryableFunc represents a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// RetryMetrics describes how a retried call went.
type RetryMetrics struct {
	Attempts         int
	TotalDelay       time.Duration
	LastErrorType    string
	RetriesExhausted bool
}

type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	metrics      lending.MetricsCollector
	operation    string
}

// RetryOption configures retry behavior.
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the maximum number of attempts, the first one included.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, baseDelay*8, etc.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter added as a fraction of each backoff delay, 0.0 to 1.0.
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// withRetryMetrics labels the retry metrics with the lifecycle operation.
func withRetryMetrics(collector lending.MetricsCollector, operation string) RetryOption {
	return func(config *retryConfig) error {
		config.metrics = collector
		config.operation = operation

		return nil
	}
}

// RetryWithExponentialBackoff runs fn and retries it while it fails with lending.ErrConcurrencyConflict.
//
// Retry schedule (default): 0 ms, 10 ms, 20 ms, 40 ms, 80 ms, 160 ms, each with up to 30% jitter.
// Every other error, lending.ErrBookUnavailable included, is returned at once.
// Context cancellation during a backoff wait returns the context error.
func RetryWithExponentialBackoff(ctx context.Context, fn RetryableFunc, options ...RetryOption) (RetryMetrics, error) {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return RetryMetrics{LastErrorType: errorTypeOther}, err
		}
	}

	var (
		lastErr    error
		totalDelay time.Duration
	)

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := config.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * config.jitterFactor //nolint:gosec // jitter needs no crypto randomness
			backoffDelay := delay + time.Duration(jitter)

			config.recordDelay(ctx, attempt, backoffDelay)

			timer := time.NewTimer(backoffDelay)
			select {
			case <-timer.C:
				totalDelay += backoffDelay
			case <-ctx.Done():
				timer.Stop()
				return RetryMetrics{
					Attempts:      attempt,
					TotalDelay:    totalDelay,
					LastErrorType: errorType(ctx.Err()),
				}, ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return RetryMetrics{Attempts: attempt + 1, TotalDelay: totalDelay, LastErrorType: errorTypeNone}, nil
		}

		if !isRetryableError(lastErr) {
			return RetryMetrics{Attempts: attempt + 1, TotalDelay: totalDelay, LastErrorType: errorType(lastErr)}, lastErr
		}

		if attempt < config.maxAttempts-1 {
			config.recordRetry(ctx, attempt+1, lastErr)
		}
	}

	config.recordExhausted(ctx, lastErr)

	return RetryMetrics{
		Attempts:         config.maxAttempts,
		TotalDelay:       totalDelay,
		LastErrorType:    errorType(lastErr),
		RetriesExhausted: true,
	}, lastErr
}

func (c *retryConfig) recordDelay(ctx context.Context, attempt int, delay time.Duration) {
	lending.RecordDuration(ctx, c.metrics, metricRetryDelay, delay, map[string]string{
		labelOperation:     c.operation,
		labelAttemptNumber: strconv.Itoa(attempt),
	})
}

func (c *retryConfig) recordRetry(ctx context.Context, attempt int, err error) {
	lending.IncrementCounter(ctx, c.metrics, metricRetries, map[string]string{
		labelOperation:     c.operation,
		labelAttemptNumber: strconv.Itoa(attempt),
		labelErrorType:     errorType(err),
	})
}

func (c *retryConfig) recordExhausted(ctx context.Context, err error) {
	lending.IncrementCounter(ctx, c.metrics, metricMaxRetriesReached, map[string]string{
		labelOperation:      c.operation,
		labelFinalErrorType: errorType(err),
	})
}

// isRetryableError reports whether err is worth another attempt. Only optimistic concurrency conflicts are.
// Timeouts are not retried, they signal overload.
func isRetryableError(err error) bool {
	return errors.Is(err, lending.ErrConcurrencyConflict)
}

func errorType(err error) string {
	switch {
	case err == nil:
		return errorTypeNone
	case errors.Is(err, lending.ErrConcurrencyConflict):
		return errorTypeConflict
	case errors.Is(err, context.Canceled):
		return errorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeDeadlineExceeded
	case lending.IsNotFound(err), lending.IsConflict(err):
		return errorTypeBusiness
	default:
		return errorTypeOther
	}
}
