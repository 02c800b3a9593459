package lifecycle

import (
	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

// DecideBorrow builds the loan record for a successful claim: borrowed today, due loanPeriodDays later.
func DecideBorrow(loanID, borrowerID, bookID uuid.UUID, today lending.Date, loanPeriodDays int) lending.LoanRecord {
	return lending.LoanRecord{
		ID:             loanID,
		BorrowerID:     borrowerID,
		BookID:         bookID,
		BorrowDate:     today,
		ReturnDeadline: today.AddDays(loanPeriodDays),
		Status:         lending.LoanStatusBorrowed,
	}
}

// DecideReturn resolves an active loan.
//
// A return on the deadline day is on time; any later day, or a loan already marked OVERDUE, is late.
// Returning a loan that is already RETURNED or RETURNED_LATE fails with lending.ErrLoanAlreadyReturned.
func DecideReturn(loan lending.LoanRecord, today lending.Date) (lending.LoanRecord, error) {
	if !loan.Status.IsActive() {
		return lending.LoanRecord{}, lending.ErrLoanAlreadyReturned
	}

	returned := today
	loan.ActualReturnDate = &returned

	if today.After(loan.ReturnDeadline) || loan.Status == lending.LoanStatusOverdue {
		loan.Status = lending.LoanStatusReturnedLate
	} else {
		loan.Status = lending.LoanStatusReturned
	}

	return loan, nil
}

// DecideOverdue marks a BORROWED loan OVERDUE once today is past its deadline.
// It reports false, and returns the loan unchanged, when there is nothing to do.
func DecideOverdue(loan lending.LoanRecord, today lending.Date) (lending.LoanRecord, bool) {
	if loan.Status != lending.LoanStatusBorrowed || !today.After(loan.ReturnDeadline) {
		return loan, false
	}

	loan.Status = lending.LoanStatusOverdue

	return loan, true
}
