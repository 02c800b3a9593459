package postgresengine

import (
	"context"
	"math"
	"time"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

const (
	metricQueryDuration        = "store_query_duration_seconds"
	metricConcurrencyConflicts = "store_concurrency_conflicts_total"
	metricDatabaseErrors       = "store_database_errors_total"
	metricUnitOfWorkDuration   = "store_unit_of_work_duration_seconds"

	spanNameUnitOfWork = "lending.store.unit_of_work"

	labelOperation  = "operation"
	labelStatus     = "status"
	labelErrorType  = "error_type"
	labelTable      = "table"
	labelConflictOn = "conflict_type"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeBuildQuery   = "build_query"
	errorTypeDatabase     = "database_query"
	errorTypeScan         = "row_scan"
	errorTypeRowsAffected = "rows_affected"
	errorTypeConflict     = "concurrency_conflict"
	errorTypeBegin        = "begin"
	errorTypeCommit       = "commit"
	errorTypeAborted      = "aborted"
)

// observer bundles the optional logging, metrics and tracing sinks. All methods are nil-safe.
type observer struct {
	logger           lending.Logger
	contextualLogger lending.ContextualLogger
	metrics          lending.MetricsCollector
	tracing          lending.TracingCollector
}

func (o observer) logDebug(ctx context.Context, msg string, args ...any) {
	if o.contextualLogger != nil {
		o.contextualLogger.DebugContext(ctx, msg, args...)
		return
	}

	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}

func (o observer) logInfo(ctx context.Context, msg string, args ...any) {
	if o.contextualLogger != nil {
		o.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}

	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}

func (o observer) logWarn(ctx context.Context, msg string, args ...any) {
	if o.contextualLogger != nil {
		o.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}

	if o.logger != nil {
		o.logger.Warn(msg, args...)
	}
}

func (o observer) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if o.contextualLogger != nil {
		o.contextualLogger.ErrorContext(ctx, msg, allArgs...)
		return
	}

	if o.logger != nil {
		o.logger.Error(msg, allArgs...)
	}
}

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (o observer) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	o.logDebug(ctx, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
}

func (o observer) recordQuery(ctx context.Context, table, operation, status string, duration time.Duration) {
	lending.RecordDuration(ctx, o.metrics, metricQueryDuration, duration, map[string]string{
		labelTable:     table,
		labelOperation: operation,
		labelStatus:    status,
	})
}

func (o observer) recordDatabaseError(ctx context.Context, table, operation, errorType string) {
	lending.IncrementCounter(ctx, o.metrics, metricDatabaseErrors, map[string]string{
		labelTable:     table,
		labelOperation: operation,
		labelStatus:    statusError,
		labelErrorType: errorType,
	})
}

func (o observer) recordConcurrencyConflict(ctx context.Context, table, operation string) {
	lending.IncrementCounter(ctx, o.metrics, metricConcurrencyConflicts, map[string]string{
		labelTable:      table,
		labelOperation:  operation,
		labelConflictOn: "version",
	})
}

func (o observer) recordUnitOfWork(ctx context.Context, status string, duration time.Duration) {
	lending.RecordDuration(ctx, o.metrics, metricUnitOfWorkDuration, duration, map[string]string{
		labelOperation: operationUnitOfWork,
		labelStatus:    status,
	})
}

func (o observer) startSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, lending.SpanContext) {
	if o.tracing != nil {
		return o.tracing.StartSpan(ctx, name, attrs)
	}

	return ctx, nil
}

func (o observer) finishSpan(span lending.SpanContext, status string, attrs map[string]string) {
	if o.tracing != nil && span != nil {
		o.tracing.FinishSpan(span, status, attrs)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
