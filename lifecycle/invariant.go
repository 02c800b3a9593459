package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

// InvariantViolation describes one book whose availability flag disagrees with its active loans.
type InvariantViolation struct {
	BookID      uuid.UUID `json:"book_id"`
	Available   bool      `json:"available"`
	ActiveLoans int       `json:"active_loans"`
}

// InvariantReport is the result of VerifyAvailability.
type InvariantReport struct {
	Books       int
	ActiveLoans int
	Violations  []InvariantViolation
}

// Holds reports whether no violation was found.
func (r InvariantReport) Holds() bool {
	return len(r.Violations) == 0
}

// VerifyAvailability checks that every book is available exactly when it has no active loan
// and that no book has more than one active loan. BORROWED and OVERDUE loans are active.
//
// Both stores are read inside one unit of work. On Postgres the two reads are separate statements,
// so the result is only exact while no lifecycle operation runs concurrently.
func VerifyAvailability(ctx context.Context, engine lending.Engine) (InvariantReport, error) {
	if engine == nil {
		return InvariantReport{}, ErrNilEngine
	}

	var report InvariantReport

	err := engine.WithinUnitOfWork(lending.WithStrongConsistency(ctx), func(ctx context.Context, uow lending.UnitOfWork) error {
		books, err := uow.Catalog().GetAll(ctx)
		if err != nil {
			return err
		}

		loans, err := uow.Loans().GetAll(ctx)
		if err != nil {
			return err
		}

		report = checkAvailability(books, loans)

		return nil
	})
	if err != nil {
		return InvariantReport{}, err
	}

	return report, nil
}

func checkAvailability(books []lending.BookEntry, loans lending.LoanRecords) InvariantReport {
	active := make(map[uuid.UUID]int)
	report := InvariantReport{Books: len(books), Violations: make([]InvariantViolation, 0)}

	for _, loan := range loans {
		if loan.Status.IsActive() {
			active[loan.BookID]++
			report.ActiveLoans++
		}
	}

	for _, book := range books {
		count := active[book.ID]

		if count > 1 || (book.Available && count > 0) || (!book.Available && count == 0) {
			report.Violations = append(report.Violations, InvariantViolation{
				BookID:      book.ID,
				Available:   book.Available,
				ActiveLoans: count,
			})
		}
	}

	return report
}
