package lending

import (
	"fmt"

	"github.com/google/uuid"
)

// LoanStatus is the lifecycle state of a LoanRecord.
type LoanStatus string

const (
	LoanStatusBorrowed     LoanStatus = "BORROWED"
	LoanStatusReturned     LoanStatus = "RETURNED"
	LoanStatusReturnedLate LoanStatus = "RETURNED_LATE"
	LoanStatusOverdue      LoanStatus = "OVERDUE"
)

// ParseLoanStatus converts a stored status string into a LoanStatus.
func ParseLoanStatus(s string) (LoanStatus, error) {
	switch status := LoanStatus(s); status {
	case LoanStatusBorrowed, LoanStatusReturned, LoanStatusReturnedLate, LoanStatusOverdue:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown loan status %q", ErrInvalidStoredValue, s)
	}
}

// IsActive reports whether the loan still holds the book (BORROWED or OVERDUE).
func (s LoanStatus) IsActive() bool {
	return s == LoanStatusBorrowed || s == LoanStatusOverdue
}

// IsTerminal reports whether the loan was resolved by a return.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusReturned || s == LoanStatusReturnedLate
}

// String returns the status name.
func (s LoanStatus) String() string {
	return string(s)
}

// LoanRecord is the historical record of one borrowing event and its resolution.
//
// Records are created by a successful borrow, mutated only by return or overdue sweep,
// and never deleted. Version is the optimistic concurrency token; zero means "not yet stored".
type LoanRecord struct {
	ID               uuid.UUID
	BorrowerID       uuid.UUID
	BookID           uuid.UUID
	BorrowDate       Date
	ReturnDeadline   Date
	ActualReturnDate *Date
	Status           LoanStatus
	Version          int64
}

// IsReturned reports whether an actual return date was recorded.
func (l LoanRecord) IsReturned() bool {
	return l.ActualReturnDate != nil
}

// LoanRecords is an alias type for a slice of LoanRecord.
type LoanRecords = []LoanRecord
