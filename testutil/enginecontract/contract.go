package enginecontract

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending-go/lending"
	. "github.com/AntonStoeckl/library-lending-go/testutil/helper" //nolint:revive
)

// Factory returns an engine with empty stores.
type Factory func(t *testing.T) lending.Engine

var day = lending.NewDate(2025, time.April, 1)

// Run executes the contract as subtests.
func Run(t *testing.T, newEngine Factory) {
	t.Run("Catalog_Save_InsertsAvailableEntry", func(t *testing.T) { catalogSaveInserts(t, newEngine(t)) })
	t.Run("Catalog_Save_PreservesAvailability", func(t *testing.T) { catalogSavePreservesAvailability(t, newEngine(t)) })
	t.Run("Catalog_Get_ReportsMissingEntry", func(t *testing.T) { catalogGetMissing(t, newEngine(t)) })
	t.Run("Catalog_Listing_And_Search", func(t *testing.T) { catalogListingAndSearch(t, newEngine(t)) })
	t.Run("Catalog_Search_TreatsWildcardsLiterally", func(t *testing.T) { catalogSearchLiteral(t, newEngine(t)) })
	t.Run("Catalog_Claim_And_Release", func(t *testing.T) { catalogClaimAndRelease(t, newEngine(t)) })
	t.Run("Catalog_Delete", func(t *testing.T) { catalogDelete(t, newEngine(t)) })
	t.Run("Loans_Save_InsertAndUpdate", func(t *testing.T) { loansInsertAndUpdate(t, newEngine(t)) })
	t.Run("Loans_Save_StaleVersionConflicts", func(t *testing.T) { loansStaleVersion(t, newEngine(t)) })
	t.Run("Loans_Save_RejectsSecondActiveLoanPerBook", func(t *testing.T) { loansSecondActive(t, newEngine(t)) })
	t.Run("Loans_Queries_AreOrdered", func(t *testing.T) { loansOrdering(t, newEngine(t)) })
	t.Run("UnitOfWork_Commits", func(t *testing.T) { unitOfWorkCommits(t, newEngine(t)) })
	t.Run("UnitOfWork_RollsBack", func(t *testing.T) { unitOfWorkRollsBack(t, newEngine(t)) })
	t.Run("UnitOfWork_SeesItsOwnWrites", func(t *testing.T) { unitOfWorkReadsOwnWrites(t, newEngine(t)) })
	t.Run("UnitOfWork_ConcurrentClaims_ExactlyOneWins", func(t *testing.T) { unitOfWorkConcurrentClaims(t, newEngine(t)) })
}

func catalogSaveInserts(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	book := FixtureBook(t, "Dune", "Frank Herbert")
	book.Available = false // ignored for new entries

	require.NoError(t, engine.Catalog().Save(ctx, book))

	stored := FetchBook(t, ctx, engine, book.ID)
	assert.True(t, stored.Available)
	assert.Equal(t, book.Title, stored.Title)
	assert.Equal(t, book.Author, stored.Author)
	assert.Equal(t, book.ISBN, stored.ISBN)
	assert.Equal(t, book.Genre, stored.Genre)
	assert.Equal(t, book.Quantity, stored.Quantity)
	assert.Positive(t, stored.Version)
}

func catalogSavePreservesAvailability(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	book := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")

	claimed, err := engine.Catalog().ClaimAvailability(ctx, book.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	edited := FetchBook(t, ctx, engine, book.ID)
	edited.Title = "Dune (Deluxe Edition)"
	edited.Available = true
	require.NoError(t, engine.Catalog().Save(ctx, edited))

	stored := FetchBook(t, ctx, engine, book.ID)
	assert.Equal(t, "Dune (Deluxe Edition)", stored.Title)
	assert.False(t, stored.Available, "saving must not release a claimed entry")
	assert.Greater(t, stored.Version, book.Version)
}

func catalogGetMissing(t *testing.T, engine lending.Engine) {
	_, found, err := engine.Catalog().Get(context.Background(), GivenUniqueID(t))

	require.NoError(t, err)
	assert.False(t, found)
}

func catalogListingAndSearch(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	emma := GivenBookInCatalog(t, ctx, engine, "Emma", "Jane Austen")
	dune := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")
	persuasion := GivenBookInCatalog(t, ctx, engine, "Persuasion", "Jane Austen")

	_, err := engine.Catalog().ClaimAvailability(ctx, emma.ID)
	require.NoError(t, err)

	all, err := engine.Catalog().GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune", "Emma", "Persuasion"}, titles(all))

	available, err := engine.Catalog().GetAvailable(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{dune.Title, persuasion.Title}, titles(available))

	austen, err := engine.Catalog().Search(ctx, "AUSTEN")
	require.NoError(t, err)
	assert.Equal(t, []string{"Emma", "Persuasion"}, titles(austen))

	byTitle, err := engine.Catalog().Search(ctx, "un")
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, titles(byTitle))

	none, err := engine.Catalog().Search(ctx, "Tolkien")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func catalogSearchLiteral(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	GivenBookInCatalog(t, ctx, engine, "100% Pure", "A_B")
	GivenBookInCatalog(t, ctx, engine, "1000 Pure", "AxB")

	percent, err := engine.Catalog().Search(ctx, "100%")
	require.NoError(t, err)
	assert.Equal(t, []string{"100% Pure"}, titles(percent))

	underscore, err := engine.Catalog().Search(ctx, "a_b")
	require.NoError(t, err)
	assert.Equal(t, []string{"100% Pure"}, titles(underscore))
}

func catalogClaimAndRelease(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	book := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")

	claimed, err := engine.Catalog().ClaimAvailability(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = engine.Catalog().ClaimAvailability(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "an unavailable entry cannot be claimed twice")

	require.NoError(t, engine.Catalog().ReleaseAvailability(ctx, book.ID))
	assert.True(t, FetchBook(t, ctx, engine, book.ID).Available)

	_, err = engine.Catalog().ClaimAvailability(ctx, GivenUniqueID(t))
	assert.ErrorIs(t, err, lending.ErrBookNotFound)

	err = engine.Catalog().ReleaseAvailability(ctx, GivenUniqueID(t))
	assert.ErrorIs(t, err, lending.ErrBookNotFound)
}

func catalogDelete(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	book := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")

	require.NoError(t, engine.Catalog().Delete(ctx, book.ID))

	_, found, err := engine.Catalog().Get(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func loansInsertAndUpdate(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	book := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")
	loan := FixtureLoan(t, GivenUniqueID(t), book.ID, day, lending.LoanStatusBorrowed)

	inserted, err := engine.Loans().Save(ctx, loan)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted.Version)
	assert.Equal(t, inserted, FetchLoan(t, ctx, engine, loan.ID))

	returnDay := day.AddDays(3)
	inserted.Status = lending.LoanStatusReturned
	inserted.ActualReturnDate = &returnDay

	updated, err := engine.Loans().Save(ctx, inserted)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	stored := FetchLoan(t, ctx, engine, loan.ID)
	assert.Equal(t, updated, stored)
	require.NotNil(t, stored.ActualReturnDate)
	assert.Equal(t, returnDay, *stored.ActualReturnDate)
	assert.Equal(t, loan.BorrowDate, stored.BorrowDate)
	assert.Equal(t, loan.ReturnDeadline, stored.ReturnDeadline)
}

func loansStaleVersion(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	book := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")
	inserted := GivenLoanWasStored(t, ctx, engine, FixtureLoan(t, GivenUniqueID(t), book.ID, day, lending.LoanStatusBorrowed))

	first := inserted
	first.Status = lending.LoanStatusOverdue
	_, err := engine.Loans().Save(ctx, first)
	require.NoError(t, err)

	stale := inserted
	stale.Status = lending.LoanStatusReturned
	_, err = engine.Loans().Save(ctx, stale)
	assert.ErrorIs(t, err, lending.ErrConcurrencyConflict)
	assert.Equal(t, lending.LoanStatusOverdue, FetchLoan(t, ctx, engine, inserted.ID).Status)

	unknown := FixtureLoan(t, GivenUniqueID(t), book.ID, day, lending.LoanStatusReturned)
	unknown.Version = 4
	_, err = engine.Loans().Save(ctx, unknown)
	assert.ErrorIs(t, err, lending.ErrConcurrencyConflict)
}

func loansSecondActive(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	book := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")
	GivenLoanWasStored(t, ctx, engine, FixtureLoan(t, GivenUniqueID(t), book.ID, day, lending.LoanStatusBorrowed))

	_, err := engine.Loans().Save(ctx, FixtureLoan(t, GivenUniqueID(t), book.ID, day, lending.LoanStatusBorrowed))
	assert.ErrorIs(t, err, lending.ErrSavingFailed)

	_, err = engine.Loans().Save(ctx, FixtureLoan(t, GivenUniqueID(t), book.ID, day.AddDays(-30), lending.LoanStatusReturned))
	assert.NoError(t, err, "resolved loans of the same book are history, not a conflict")
}

func loansOrdering(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	books := GivenBooksInCatalog(t, ctx, engine, 3)
	borrowerID := GivenUniqueID(t)

	oldest := GivenLoanWasStored(t, ctx, engine, FixtureLoan(t, borrowerID, books[0].ID, day.AddDays(-20), lending.LoanStatusReturned))
	newest := GivenLoanWasStored(t, ctx, engine, FixtureLoan(t, borrowerID, books[1].ID, day, lending.LoanStatusBorrowed))
	middle := GivenLoanWasStored(t, ctx, engine, FixtureLoan(t, borrowerID, books[2].ID, day.AddDays(-10), lending.LoanStatusOverdue))
	other := GivenLoanWasStored(t, ctx, engine, FixtureLoan(t, GivenUniqueID(t), books[0].ID, day.AddDays(-5), lending.LoanStatusBorrowed))

	history, err := engine.Loans().GetByBorrower(ctx, borrowerID)
	require.NoError(t, err)
	assert.Equal(t, ids(newest, middle, oldest), loanIDs(history))

	all, err := engine.Loans().GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids(oldest, middle, other, newest), loanIDs(all))

	borrowed, err := engine.Loans().GetByStatus(ctx, lending.LoanStatusBorrowed)
	require.NoError(t, err)
	assert.Equal(t, ids(other, newest), loanIDs(borrowed))

	none, err := engine.Loans().GetByBorrower(ctx, GivenUniqueID(t))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func unitOfWorkCommits(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	book := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")
	loan := FixtureLoan(t, GivenUniqueID(t), book.ID, day, lending.LoanStatusBorrowed)

	err := engine.WithinUnitOfWork(ctx, func(ctx context.Context, uow lending.UnitOfWork) error {
		if _, err := uow.Catalog().ClaimAvailability(ctx, book.ID); err != nil {
			return err
		}

		_, err := uow.Loans().Save(ctx, loan)

		return err
	})

	require.NoError(t, err)
	assert.False(t, FetchBook(t, ctx, engine, book.ID).Available)
	assert.Equal(t, lending.LoanStatusBorrowed, FetchLoan(t, ctx, engine, loan.ID).Status)
	AssertAvailabilityInvariant(t, ctx, engine)
}

func unitOfWorkRollsBack(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	book := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")
	loan := FixtureLoan(t, GivenUniqueID(t), book.ID, day, lending.LoanStatusBorrowed)
	failure := errors.New("loan rejected downstream")

	err := engine.WithinUnitOfWork(ctx, func(ctx context.Context, uow lending.UnitOfWork) error {
		if _, err := uow.Catalog().ClaimAvailability(ctx, book.ID); err != nil {
			return err
		}

		if _, err := uow.Loans().Save(ctx, loan); err != nil {
			return err
		}

		return failure
	})

	assert.Equal(t, failure, err, "the callback error is returned unchanged")
	assert.True(t, FetchBook(t, ctx, engine, book.ID).Available)
	_, found, getErr := engine.Loans().Get(ctx, loan.ID)
	require.NoError(t, getErr)
	assert.False(t, found)
	AssertAvailabilityInvariant(t, ctx, engine)
}

func unitOfWorkReadsOwnWrites(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	book := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")
	loan := FixtureLoan(t, GivenUniqueID(t), book.ID, day, lending.LoanStatusBorrowed)

	err := engine.WithinUnitOfWork(ctx, func(ctx context.Context, uow lending.UnitOfWork) error {
		claimed, err := uow.Catalog().ClaimAvailability(ctx, book.ID)
		require.NoError(t, err)
		require.True(t, claimed)

		staged, found, err := uow.Catalog().Get(ctx, book.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.False(t, staged.Available)

		available, err := uow.Catalog().GetAvailable(ctx)
		require.NoError(t, err)
		assert.Empty(t, available)

		_, err = uow.Loans().Save(ctx, loan)
		require.NoError(t, err)

		borrowed, err := uow.Loans().GetByStatus(ctx, lending.LoanStatusBorrowed)
		require.NoError(t, err)
		assert.Len(t, borrowed, 1)

		return nil
	})

	require.NoError(t, err)
}

func unitOfWorkConcurrentClaims(t *testing.T, engine lending.Engine) {
	ctx := context.Background()
	book := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")

	const contenders = 20

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		failed  atomic.Int32
	)

	loans := make([]lending.LoanRecord, 0, contenders)
	for range contenders {
		loans = append(loans, FixtureLoan(t, GivenUniqueID(t), book.ID, day, lending.LoanStatusBorrowed))
	}

	for _, loan := range loans {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := engine.WithinUnitOfWork(ctx, func(ctx context.Context, uow lending.UnitOfWork) error {
				claimed, err := uow.Catalog().ClaimAvailability(ctx, book.ID)
				if err != nil {
					return err
				}

				if !claimed {
					return lending.ErrBookUnavailable
				}

				_, err = uow.Loans().Save(ctx, loan)

				return err
			})

			switch {
			case err == nil:
				winners.Add(1)
			case !errors.Is(err, lending.ErrBookUnavailable):
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Zero(t, failed.Load())
	AssertAvailabilityInvariant(t, ctx, engine)
}

func titles(books []lending.BookEntry) []string {
	result := make([]string, 0, len(books))
	for _, book := range books {
		result = append(result, book.Title)
	}

	return result
}

func loanIDs(loans lending.LoanRecords) []string {
	result := make([]string, 0, len(loans))
	for _, loan := range loans {
		result = append(result, loan.ID.String())
	}

	return result
}

func ids(loans ...lending.LoanRecord) []string {
	return loanIDs(loans)
}
