package helper

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lifecycle"
)

func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	return id
}

func FixtureBook(t testing.TB, title, author string) lending.BookEntry {
	return lending.BuildBookEntry(GivenUniqueID(t), title, author, "978-0-00-000000-0", "Fiction", 1)
}

func GivenBookInCatalog(t testing.TB, ctx context.Context, engine lending.Engine, title, author string) lending.BookEntry {
	book := FixtureBook(t, title, author)

	err := engine.Catalog().Save(ctx, book)
	require.NoError(t, err, "error in arranging test data")

	return FetchBook(t, ctx, engine, book.ID)
}

func GivenBooksInCatalog(t testing.TB, ctx context.Context, engine lending.Engine, count int) []lending.BookEntry {
	books := make([]lending.BookEntry, 0, count)

	for i := range count {
		books = append(books, GivenBookInCatalog(t, ctx, engine, fmt.Sprintf("Book %03d", i), fmt.Sprintf("Author %03d", i)))
	}

	return books
}

// GivenLoanWasStored writes a loan directly through a unit of work, claiming the book if the loan is active.
// It bypasses the lifecycle manager so that tests can arrange any state, e.g. an already overdue loan.
func GivenLoanWasStored(t testing.TB, ctx context.Context, engine lending.Engine, loan lending.LoanRecord) lending.LoanRecord {
	var saved lending.LoanRecord

	err := engine.WithinUnitOfWork(ctx, func(ctx context.Context, uow lending.UnitOfWork) error {
		if loan.Status.IsActive() {
			claimed, err := uow.Catalog().ClaimAvailability(ctx, loan.BookID)
			if err != nil {
				return err
			}

			if !claimed {
				return lending.ErrBookUnavailable
			}
		}

		var err error
		saved, err = uow.Loans().Save(ctx, loan)

		return err
	})
	require.NoError(t, err, "error in arranging test data")

	return saved
}

func FixtureLoan(t testing.TB, borrowerID, bookID uuid.UUID, borrowDate lending.Date, status lending.LoanStatus) lending.LoanRecord {
	return lending.LoanRecord{
		ID:             GivenUniqueID(t),
		BorrowerID:     borrowerID,
		BookID:         bookID,
		BorrowDate:     borrowDate,
		ReturnDeadline: borrowDate.AddDays(lifecycle.DefaultLoanPeriodDays),
		Status:         status,
	}
}

func FetchBook(t testing.TB, ctx context.Context, engine lending.Engine, id uuid.UUID) lending.BookEntry {
	book, found, err := engine.Catalog().Get(ctx, id)
	require.NoError(t, err, "error in fetching book")
	require.True(t, found, "book not found")

	return book
}

func FetchLoan(t testing.TB, ctx context.Context, engine lending.Engine, id uuid.UUID) lending.LoanRecord {
	loan, found, err := engine.Loans().Get(ctx, id)
	require.NoError(t, err, "error in fetching loan")
	require.True(t, found, "loan not found")

	return loan
}

func AssertAvailabilityInvariant(t testing.TB, ctx context.Context, engine lending.Engine) {
	report, err := lifecycle.VerifyAvailability(ctx, engine)
	require.NoError(t, err, "error in verifying availability")
	assert.Empty(t, report.Violations, "availability invariant violated")
}
