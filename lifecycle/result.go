package lifecycle

import (
	"time"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

// Result is the outcome of a lifecycle operation together with its retry metadata.
type Result[T any] struct {
	Value T

	// RetryAttempts is the total number of attempts made (1 for no retries).
	RetryAttempts int

	// TotalRetryDelay is the time spent waiting between attempts.
	TotalRetryDelay time.Duration

	// LastErrorType is "none" on success, otherwise the category of the final error.
	LastErrorType string

	// RetriesExhausted is true when every attempt failed with a concurrency conflict.
	RetriesExhausted bool
}

func newResult[T any](value T, retryMetrics RetryMetrics) Result[T] {
	return Result[T]{
		Value:            value,
		RetryAttempts:    retryMetrics.Attempts,
		TotalRetryDelay:  retryMetrics.TotalDelay,
		LastErrorType:    retryMetrics.LastErrorType,
		RetriesExhausted: retryMetrics.RetriesExhausted,
	}
}

// SweepResult summarizes one overdue sweep.
type SweepResult struct {
	// Date is the day the sweep evaluated.
	Date lending.Date

	// Examined is the number of BORROWED loans listed at the start of the sweep.
	Examined int

	// Marked holds the loans this sweep moved to OVERDUE.
	Marked []lending.LoanRecord

	// Skipped counts past-deadline loans that were returned or marked by someone else in between.
	Skipped int
}
