package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

const (
	// MetricOperationDuration tracks lifecycle operation duration.
	MetricOperationDuration = "lending_operation_duration_seconds"
	// MetricOperationCalls tracks lifecycle operation calls by outcome.
	MetricOperationCalls = "lending_operation_calls_total"
	// MetricLoansMarkedOverdue counts the loans moved to OVERDUE by sweeps.
	MetricLoansMarkedOverdue = "lending_loans_marked_overdue_total"

	metricRetries           = "lending_retries_total"
	metricRetryDelay        = "lending_retry_delay_seconds"
	metricMaxRetriesReached = "lending_max_retries_reached_total"

	// StatusSuccess marks a completed operation.
	StatusSuccess = "success"
	// StatusRejected marks an operation refused for a business reason (not found, unavailable, already returned).
	StatusRejected = "rejected"
	// StatusError marks a technical failure.
	StatusError = "error"

	// Operation names, used as metric label and span attribute.
	OperationBorrow      = "borrow"
	OperationReturn      = "return"
	OperationSweep       = "sweep_overdue"
	OperationHistory     = "get_history"
	OperationActive      = "get_active"
	OperationAll         = "get_all"
	OperationAvailable   = "get_available_books"
	OperationSearchBooks = "search_books"

	spanNameOperation = "lending.lifecycle"

	labelOperation      = "operation"
	labelStatus         = "status"
	labelErrorType      = "error_type"
	labelAttemptNumber  = "attempt_number"
	labelFinalErrorType = "final_error_type"

	logMsgOperationStarted     = "lifecycle operation started"
	logMsgOperationCompleted   = "lifecycle operation completed"
	logMsgOperationRejected    = "lifecycle operation rejected"
	logMsgOperationFailed      = "lifecycle operation failed"
	logMsgLoanMarkedOverdue    = "loan marked overdue"
	logMsgSweepSkippedLoan     = "sweep skipped loan, it changed in between"
	logMsgSweepCompleted       = "overdue sweep completed"
	logMsgReleaseOfMissingBook = "returned loan references a book missing from the catalog"

	logAttrOperation     = "operation"
	logAttrStatus        = "status"
	logAttrDurationMS    = "duration_ms"
	logAttrError         = "error"
	logAttrRetryAttempts = "retry_attempts"
	logAttrLoanID        = "loan_id"
	logAttrBookID        = "book_id"
	logAttrBorrowerID    = "borrower_id"
	logAttrDeadline      = "return_deadline"
	logAttrMarked        = "marked"
	logAttrExamined      = "examined"
)

// operationStatus classifies an operation error for metrics and logs.
func operationStatus(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case lending.IsNotFound(err), lending.IsConflict(err):
		return StatusRejected
	default:
		return StatusError
	}
}

type observation struct {
	ctx       context.Context
	operation string
	span      lending.SpanContext
	start     time.Time
}

// observe starts the span and the start log for an operation.
// The returned context carries the span and must be used for the operation itself.
func (m *Manager) observe(ctx context.Context, operation string, args ...any) (context.Context, *observation) {
	var span lending.SpanContext
	if m.tracing != nil {
		ctx, span = m.tracing.StartSpan(ctx, spanNameOperation, map[string]string{labelOperation: operation})
	}

	m.logDebug(ctx, logMsgOperationStarted, append([]any{logAttrOperation, operation}, args...)...)

	return ctx, &observation{ctx: ctx, operation: operation, span: span, start: time.Now()}
}

// finish records metrics, logs and closes the span according to err.
func (o *observation) finish(m *Manager, retryAttempts int, err error) {
	duration := time.Since(o.start)
	status := operationStatus(err)
	labels := map[string]string{labelOperation: o.operation, labelStatus: status}

	lending.RecordDuration(o.ctx, m.metrics, MetricOperationDuration, duration, labels)
	lending.IncrementCounter(o.ctx, m.metrics, MetricOperationCalls, labels)

	args := []any{
		logAttrOperation, o.operation,
		logAttrStatus, status,
		logAttrDurationMS, toMilliseconds(duration),
	}
	if retryAttempts > 0 {
		args = append(args, logAttrRetryAttempts, retryAttempts)
	}

	switch status {
	case StatusSuccess:
		m.logInfo(o.ctx, logMsgOperationCompleted, args...)
	case StatusRejected:
		m.logInfo(o.ctx, logMsgOperationRejected, append(args, logAttrError, err.Error())...)
	default:
		m.logError(o.ctx, logMsgOperationFailed, append(args, logAttrError, err.Error())...)
	}

	if m.tracing == nil || o.span == nil {
		return
	}

	attrs := map[string]string{
		labelStatus:       status,
		logAttrDurationMS: fmt.Sprintf("%.2f", toMilliseconds(duration)),
	}
	if err != nil {
		attrs[logAttrError] = err.Error()
		attrs[labelErrorType] = errorType(err)
	}

	m.tracing.FinishSpan(o.span, status, attrs)
}

func (m *Manager) logDebug(ctx context.Context, msg string, args ...any) {
	if m.contextualLogger != nil {
		m.contextualLogger.DebugContext(ctx, msg, args...)
	} else if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *Manager) logInfo(ctx context.Context, msg string, args ...any) {
	if m.contextualLogger != nil {
		m.contextualLogger.InfoContext(ctx, msg, args...)
	} else if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}

func (m *Manager) logWarn(ctx context.Context, msg string, args ...any) {
	if m.contextualLogger != nil {
		m.contextualLogger.WarnContext(ctx, msg, args...)
	} else if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}

func (m *Manager) logError(ctx context.Context, msg string, args ...any) {
	if m.contextualLogger != nil {
		m.contextualLogger.ErrorContext(ctx, msg, args...)
	} else if m.logger != nil {
		m.logger.Error(msg, args...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds.
func toMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
