package lending

import (
	"errors"
)

// Business errors surfaced by the lifecycle operations. All of them are recoverable.
var (
	ErrBookNotFound        = errors.New("book not found")
	ErrBookUnavailable     = errors.New("book is not available")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrLoanAlreadyReturned = errors.New("loan is already returned")
)

// ErrConcurrencyConflict is returned when an optimistic version check fails because
// another writer changed the same record in between.
var ErrConcurrencyConflict = errors.New("concurrency error, no rows were affected")

// Store errors. They are passed through to callers joined with the driver error.
var (
	ErrNilDatabaseConnection      = errors.New("database connection must not be nil")
	ErrEmptyTableName             = errors.New("empty table name supplied")
	ErrBuildingQueryFailed        = errors.New("building query failed")
	ErrQueryingFailed             = errors.New("querying failed")
	ErrScanningDBRowFailed        = errors.New("scanning db row failed")
	ErrSavingFailed               = errors.New("saving failed")
	ErrDeletingFailed             = errors.New("deleting failed")
	ErrGettingRowsAffectedFailed  = errors.New("getting rows affected failed")
	ErrBeginningUnitOfWorkFailed  = errors.New("beginning unit of work failed")
	ErrCommittingUnitOfWorkFailed = errors.New("committing unit of work failed")
	ErrInvalidStoredValue         = errors.New("stored value is invalid")
)

// IsNotFound reports whether err belongs to the NotFound category (book or loan id unknown).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookNotFound) || errors.Is(err, ErrLoanNotFound)
}

// IsConflict reports whether err belongs to the Conflict category.
func IsConflict(err error) bool {
	return errors.Is(err, ErrBookUnavailable) || errors.Is(err, ErrLoanAlreadyReturned)
}
