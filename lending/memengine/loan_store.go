package memengine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

// txLoans is the loan store bound to one unit of work.
type txLoans struct {
	t *tx
}

func (l txLoans) Get(ctx context.Context, id uuid.UUID) (lending.LoanRecord, bool, error) {
	if err := l.t.check(ctx); err != nil {
		return lending.LoanRecord{}, false, err
	}

	loan, found := l.t.loan(id)

	return loan, found, nil
}

func (l txLoans) GetAll(ctx context.Context) (lending.LoanRecords, error) {
	if err := l.t.check(ctx); err != nil {
		return nil, err
	}

	return l.t.allLoans(func(lending.LoanRecord) bool { return true }), nil
}

func (l txLoans) GetByBorrower(ctx context.Context, borrowerID uuid.UUID) (lending.LoanRecords, error) {
	if err := l.t.check(ctx); err != nil {
		return nil, err
	}

	loans := l.t.allLoans(func(loan lending.LoanRecord) bool { return loan.BorrowerID == borrowerID })
	sortNewestFirst(loans)

	return loans, nil
}

func (l txLoans) GetByStatus(ctx context.Context, status lending.LoanStatus) (lending.LoanRecords, error) {
	if err := l.t.check(ctx); err != nil {
		return nil, err
	}

	return l.t.allLoans(func(loan lending.LoanRecord) bool { return loan.Status == status }), nil
}

// Save mirrors the PostgreSQL engine: a duplicate id or a second active loan for the same book
// fails the insert, and an update whose version does not match the stored one is a conflict.
func (l txLoans) Save(ctx context.Context, loan lending.LoanRecord) (lending.LoanRecord, error) {
	if err := l.t.check(ctx); err != nil {
		return lending.LoanRecord{}, err
	}

	if loan.Version == 0 {
		return l.insert(loan)
	}

	return l.update(loan)
}

func (l txLoans) insert(loan lending.LoanRecord) (lending.LoanRecord, error) {
	if _, exists := l.t.loan(loan.ID); exists {
		return lending.LoanRecord{}, errors.Join(lending.ErrSavingFailed, errDuplicateLoanID)
	}

	if loan.Status.IsActive() {
		active := l.t.allLoans(func(other lending.LoanRecord) bool {
			return other.BookID == loan.BookID && other.Status.IsActive()
		})

		if len(active) > 0 {
			return lending.LoanRecord{}, errors.Join(lending.ErrSavingFailed, errActiveLoanExists)
		}
	}

	loan = cloneLoan(loan)
	loan.Version = 1
	l.t.loans[loan.ID] = loan

	return cloneLoan(loan), nil
}

func (l txLoans) update(loan lending.LoanRecord) (lending.LoanRecord, error) {
	stored, exists := l.t.loan(loan.ID)
	if !exists || stored.Version != loan.Version {
		return lending.LoanRecord{}, lending.ErrConcurrencyConflict
	}

	stored.Status = loan.Status
	stored.ActualReturnDate = loan.ActualReturnDate
	stored = cloneLoan(stored)
	stored.Version++
	l.t.loans[stored.ID] = stored

	return cloneLoan(stored), nil
}

// loanStore is the engine-level loan store. Reads see committed state only.
type loanStore struct {
	engine *Engine
}

func (s loanStore) Get(ctx context.Context, id uuid.UUID) (loan lending.LoanRecord, found bool, err error) {
	err = s.engine.read(ctx, func(t *tx) error {
		loan, found, err = t.Loans().Get(ctx, id)
		return err
	})

	return loan, found, err
}

func (s loanStore) GetAll(ctx context.Context) (loans lending.LoanRecords, err error) {
	err = s.engine.read(ctx, func(t *tx) error {
		loans, err = t.Loans().GetAll(ctx)
		return err
	})

	return loans, err
}

func (s loanStore) GetByBorrower(ctx context.Context, borrowerID uuid.UUID) (loans lending.LoanRecords, err error) {
	err = s.engine.read(ctx, func(t *tx) error {
		loans, err = t.Loans().GetByBorrower(ctx, borrowerID)
		return err
	})

	return loans, err
}

func (s loanStore) GetByStatus(ctx context.Context, status lending.LoanStatus) (loans lending.LoanRecords, err error) {
	err = s.engine.read(ctx, func(t *tx) error {
		loans, err = t.Loans().GetByStatus(ctx, status)
		return err
	})

	return loans, err
}

func (s loanStore) Save(ctx context.Context, loan lending.LoanRecord) (saved lending.LoanRecord, err error) {
	err = s.engine.write(ctx, func(t *tx) error {
		saved, err = t.Loans().Save(ctx, loan)
		return err
	})

	return saved, err
}
