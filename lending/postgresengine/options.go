package postgresengine

import (
	"github.com/AntonStoeckl/library-lending-go/lending"
)

// Option defines a functional option for configuring Engine.
type Option func(*Engine) error

// WithCatalogTableName sets the table name for book entries. Defaults to "books".
func WithCatalogTableName(tableName string) Option {
	return func(e *Engine) error {
		if tableName == "" {
			return lending.ErrEmptyTableName
		}

		e.catalogTableName = tableName

		return nil
	}
}

// WithLoanTableName sets the table name for loan records. Defaults to "loans".
func WithLoanTableName(tableName string) Option {
	return func(e *Engine) error {
		if tableName == "" {
			return lending.ErrEmptyTableName
		}

		e.loanTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the Engine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: unit of work outcomes, concurrency conflicts (production-safe)
// Warn level: non-critical issues like cleanup failures
// Error level: failures that cause an operation to fail.
func WithLogger(logger lending.Logger) Option {
	return func(e *Engine) error {
		e.observer.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, used instead of the plain logger for trace correlation.
func WithContextualLogger(logger lending.ContextualLogger) Option {
	return func(e *Engine) error {
		e.observer.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
// It receives statement durations, concurrency conflicts and database errors.
func WithMetrics(collector lending.MetricsCollector) Option {
	return func(e *Engine) error {
		e.observer.metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine.
// Every unit of work gets its own span.
func WithTracing(collector lending.TracingCollector) Option {
	return func(e *Engine) error {
		e.observer.tracing = collector
		return nil
	}
}
