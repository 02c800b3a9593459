package lending

import (
	"context"

	"github.com/google/uuid"
)

// CatalogStore is durable keyed storage of book entries.
type CatalogStore interface {
	Get(ctx context.Context, id uuid.UUID) (BookEntry, bool, error)
	GetAll(ctx context.Context) ([]BookEntry, error)
	GetAvailable(ctx context.Context) ([]BookEntry, error)
	Search(ctx context.Context, keyword string) ([]BookEntry, error)

	// Save inserts a new entry as available or updates the descriptive fields of an existing one.
	// It never changes the stored availability of an existing entry.
	Save(ctx context.Context, book BookEntry) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ClaimAvailability atomically flips available from true to false.
	// It returns false, without error, if the entry exists but is not available.
	// It returns ErrBookNotFound if the entry does not exist.
	ClaimAvailability(ctx context.Context, id uuid.UUID) (bool, error)

	// ReleaseAvailability sets available to true.
	ReleaseAvailability(ctx context.Context, id uuid.UUID) error
}

// LoanStore is durable keyed storage of loan records.
type LoanStore interface {
	Get(ctx context.Context, id uuid.UUID) (LoanRecord, bool, error)
	GetAll(ctx context.Context) (LoanRecords, error)

	// GetByBorrower returns the borrower's loans, most recent borrow date first.
	GetByBorrower(ctx context.Context, borrowerID uuid.UUID) (LoanRecords, error)
	GetByStatus(ctx context.Context, status LoanStatus) (LoanRecords, error)

	// Save inserts the loan if its Version is zero, otherwise it updates it only if the stored
	// version still equals loan.Version and returns ErrConcurrencyConflict if not.
	// The returned record carries the new version.
	Save(ctx context.Context, loan LoanRecord) (LoanRecord, error)
}

// UnitOfWork gives transaction-scoped access to both stores.
// All writes made through it commit or roll back together.
type UnitOfWork interface {
	Catalog() CatalogStore
	Loans() LoanStore
}

// UnitOfWorkFunc runs inside a unit of work. Returning an error rolls the unit of work back.
type UnitOfWorkFunc func(ctx context.Context, uow UnitOfWork) error

// Engine is implemented by the store backends (Postgres, memory).
// Catalog and Loans give non-transactional read access.
type Engine interface {
	WithinUnitOfWork(ctx context.Context, fn UnitOfWorkFunc) error
	Catalog() CatalogStore
	Loans() LoanStore
}
