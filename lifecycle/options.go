package lifecycle

import (
	"errors"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

// DefaultLoanPeriodDays is the loan period used when none is configured.
const DefaultLoanPeriodDays = 14

var (
	// ErrNilEngine is returned when NewManager gets no engine.
	ErrNilEngine = errors.New("engine must not be nil")

	// ErrInvalidLoanPeriod is returned when the loan period is not positive.
	ErrInvalidLoanPeriod = errors.New("loan period must be positive")

	// ErrNilClock is returned when a nil clock is provided to WithClock.
	ErrNilClock = errors.New("clock must not be nil")
)

// Option defines a functional option for configuring Manager.
type Option func(*Manager) error

// WithLoanPeriod sets the number of days between borrow date and return deadline.
// The period is fixed per manager; it never varies per call.
func WithLoanPeriod(days int) Option {
	return func(m *Manager) error {
		if days <= 0 {
			return ErrInvalidLoanPeriod
		}

		m.loanPeriodDays = days

		return nil
	}
}

// WithClock sets the clock that supplies today's date. Defaults to lending.SystemClock in UTC.
func WithClock(clock lending.Clock) Option {
	return func(m *Manager) error {
		if clock == nil {
			return ErrNilClock
		}

		m.clock = clock

		return nil
	}
}

// WithRetryOptions configures the retry of optimistic concurrency conflicts.
// The options are validated once during NewManager.
func WithRetryOptions(options ...RetryOption) Option {
	return func(m *Manager) error {
		probe := &retryConfig{}
		for _, option := range options {
			if err := option(probe); err != nil {
				return err
			}
		}

		m.retryOptions = append(m.retryOptions, options...)

		return nil
	}
}

// WithLogger sets the logger for the Manager.
//
// Debug level: operation starts
// Info level: completed and rejected operations, loans marked overdue
// Warn level: sweep entries skipped because they changed in between
// Error level: technical failures.
func WithLogger(logger lending.Logger) Option {
	return func(m *Manager) error {
		m.logger = logger
		return nil
	}
}

// WithContextualLogger sets the context-aware logger, preferred over the plain logger.
func WithContextualLogger(logger lending.ContextualLogger) Option {
	return func(m *Manager) error {
		m.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for operations, retries and the inventory guard.
func WithMetrics(collector lending.MetricsCollector) Option {
	return func(m *Manager) error {
		m.metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector. Every operation gets one span.
func WithTracing(collector lending.TracingCollector) Option {
	return func(m *Manager) error {
		m.tracing = collector
		return nil
	}
}
