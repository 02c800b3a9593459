package memengine_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lending/memengine"
	"github.com/AntonStoeckl/library-lending-go/testutil/enginecontract"
	. "github.com/AntonStoeckl/library-lending-go/testutil/helper"
)

func Test_MemEngine_Contract(t *testing.T) {
	enginecontract.Run(t, func(_ *testing.T) lending.Engine {
		return memengine.NewEngine()
	})
}

func Test_MemEngine_ReturnsCopies(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := memengine.NewEngine()
	book := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")
	returnDay := lending.NewDate(2025, time.April, 10)
	loan := FixtureLoan(t, GivenUniqueID(t), book.ID, lending.NewDate(2025, time.April, 1), lending.LoanStatusReturned)
	input := returnDay
	loan.ActualReturnDate = &input
	saved := GivenLoanWasStored(t, ctx, engine, loan)

	// act
	books, err := engine.Catalog().GetAll(ctx)
	require.NoError(t, err)
	books[0].Title = "mutated"

	*saved.ActualReturnDate = returnDay.AddDays(5)
	input = returnDay.AddDays(7)

	// assert
	assert.Equal(t, "Dune", FetchBook(t, ctx, engine, book.ID).Title)
	stored := FetchLoan(t, ctx, engine, loan.ID)
	require.NotNil(t, stored.ActualReturnDate)
	assert.Equal(t, returnDay, *stored.ActualReturnDate)
}

func Test_MemEngine_CanceledContext(t *testing.T) {
	// setup
	engine := memengine.NewEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false

	// act
	uowErr := engine.WithinUnitOfWork(ctx, func(context.Context, lending.UnitOfWork) error {
		called = true
		return nil
	})
	_, readErr := engine.Catalog().GetAll(ctx)
	writeErr := engine.Catalog().Save(ctx, FixtureBook(t, "Dune", "Frank Herbert"))

	// assert
	assert.False(t, called)
	assert.ErrorIs(t, uowErr, lending.ErrBeginningUnitOfWorkFailed)
	assert.ErrorIs(t, uowErr, context.Canceled)
	assert.ErrorIs(t, readErr, lending.ErrQueryingFailed)
	assert.ErrorIs(t, readErr, context.Canceled)
	assert.ErrorIs(t, writeErr, lending.ErrBeginningUnitOfWorkFailed)
}

func Test_MemEngine_ContextCanceledInsideUnitOfWork_DiscardsWrites(t *testing.T) {
	// setup
	engine := memengine.NewEngine()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	book := FixtureBook(t, "Dune", "Frank Herbert")

	// act
	err := engine.WithinUnitOfWork(ctx, func(ctx context.Context, uow lending.UnitOfWork) error {
		if err := uow.Catalog().Save(ctx, book); err != nil {
			return err
		}

		cancel()

		return nil
	})

	// assert
	assert.ErrorIs(t, err, lending.ErrCommittingUnitOfWorkFailed)
	_, found, getErr := engine.Catalog().Get(context.Background(), book.ID)
	require.NoError(t, getErr)
	assert.False(t, found)
}

func Test_MemEngine_UnitOfWorkCannotBeUsedAfterItFinished(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := memengine.NewEngine()

	var leaked lending.UnitOfWork

	require.NoError(t, engine.WithinUnitOfWork(ctx, func(_ context.Context, uow lending.UnitOfWork) error {
		leaked = uow
		return nil
	}))

	// act
	err := leaked.Catalog().Save(ctx, FixtureBook(t, "Dune", "Frank Herbert"))

	// assert
	assert.Error(t, err)
	all, getErr := engine.Catalog().GetAll(ctx)
	require.NoError(t, getErr)
	assert.Empty(t, all)
}

func Test_MemEngine_LogsUnitOfWorkOutcome(t *testing.T) {
	// setup
	ctx := context.Background()
	spy := NewLogHandlerSpy(false)
	engine := memengine.NewEngine(memengine.WithLogger(slog.New(spy)))

	// act
	require.NoError(t, engine.Catalog().Save(ctx, FixtureBook(t, "Dune", "Frank Herbert")))
	_ = engine.WithinUnitOfWork(ctx, func(context.Context, lending.UnitOfWork) error {
		return errors.New("nope")
	})

	// assert
	assert.True(t, spy.HasLog(slog.LevelDebug, "memengine: unit of work committed"))
	assert.True(t, spy.HasLogWithAttr(slog.LevelDebug, "memengine: unit of work rolled back", "error", "nope"))
}
