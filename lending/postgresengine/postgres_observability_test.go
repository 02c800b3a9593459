package postgresengine_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lending/postgresengine"
	. "github.com/AntonStoeckl/library-lending-go/testutil/helper"          //nolint:revive
	. "github.com/AntonStoeckl/library-lending-go/testutil/postgreswrapper" //nolint:revive
)

var observedDay = lending.NewDate(2025, time.May, 5)

func Test_Observability_WithLogger_LogsQueries(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	spy := NewLogHandlerSpy(false)
	engine := CreateWrapperWithTestConfig(t, postgresengine.WithLogger(slog.New(spy))).Engine()
	spy.Reset()

	// act
	_, err := engine.Catalog().GetAll(ctx)

	// assert
	require.NoError(t, err)
	assert.True(t, spy.HasLog(slog.LevelDebug, "executed sql for: query"))
}

func Test_Observability_ConcurrencyConflict_IsLoggedAndCounted(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	spy := NewLogHandlerSpy(false)
	metrics := NewMetricsCollectorSpy()
	engine := CreateWrapperWithTestConfig(t,
		postgresengine.WithLogger(slog.New(spy)),
		postgresengine.WithMetrics(metrics),
	).Engine()

	// arrange
	book := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")
	loan := GivenLoanWasStored(t, ctx, engine, FixtureLoan(t, GivenUniqueID(t), book.ID, observedDay, lending.LoanStatusBorrowed))
	loan.Version = 7

	// act
	_, err := engine.Loans().Save(ctx, loan)

	// assert
	assert.ErrorIs(t, err, lending.ErrConcurrencyConflict)
	assert.True(t, spy.HasLogWithAttr(slog.LevelInfo, "concurrency conflict detected", "loan_id", loan.ID.String()))
	assert.True(t, spy.HasLogWithAttr(slog.LevelInfo, "concurrency conflict detected", "expected_version", "7"))
	assert.True(t, metrics.Has(SpyCounter, "store_concurrency_conflicts_total", map[string]string{
		"table":         "loans",
		"conflict_type": "version",
	}))
}

func Test_Observability_WithContextualLogger_PrefersContextualLogger(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	spy := NewLogHandlerSpy(false)
	contextual := NewContextualLoggerSpy()
	engine := CreateWrapperWithTestConfig(t,
		postgresengine.WithLogger(slog.New(spy)),
		postgresengine.WithContextualLogger(contextual),
	).Engine()
	spy.Reset()

	// act
	err := engine.WithinUnitOfWork(ctx, func(ctx context.Context, uow lending.UnitOfWork) error {
		_, getErr := uow.Catalog().GetAll(ctx)
		return getErr
	})

	// assert
	require.NoError(t, err)
	assert.True(t, contextual.HasLog("debug", "unit of work committed"))
	assert.Zero(t, spy.RecordCount())
}

func Test_Observability_UnitOfWork_RecordsSpanAndDuration(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := NewMetricsCollectorSpy()
	tracing := NewTracingCollectorSpy()
	engine := CreateWrapperWithTestConfig(t,
		postgresengine.WithMetrics(metrics),
		postgresengine.WithTracing(tracing),
	).Engine()
	metrics.Reset()

	// act
	commitErr := engine.WithinUnitOfWork(ctx, func(ctx context.Context, uow lending.UnitOfWork) error {
		return uow.Catalog().Save(ctx, FixtureBook(t, "Dune", "Frank Herbert"))
	})
	abortErr := engine.WithinUnitOfWork(ctx, func(context.Context, lending.UnitOfWork) error {
		return errors.New("changed my mind")
	})

	// assert
	require.NoError(t, commitErr)
	require.Error(t, abortErr)

	assert.True(t, tracing.HasSpan("lending.store.unit_of_work", "success"))
	assert.True(t, tracing.HasSpan("lending.store.unit_of_work", "error"))
	assert.Equal(t, 2, tracing.StartedCount())

	assert.True(t, metrics.Has(SpyDuration, "store_unit_of_work_duration_seconds", map[string]string{"status": "success"}))
	assert.True(t, metrics.Has(SpyDuration, "store_unit_of_work_duration_seconds", map[string]string{"status": "error"}))
	assert.True(t, metrics.Has(SpyDuration, "store_query_duration_seconds", map[string]string{
		"table":     "books",
		"operation": "exec",
		"status":    "success",
	}))

	for _, record := range metrics.Records() {
		assert.True(t, record.WithContext, "metrics should use the contextual collector methods")
	}
}

func Test_Observability_DatabaseError_IsCounted(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := NewMetricsCollectorSpy()
	engine := CreateWrapperWithTestConfig(t, postgresengine.WithMetrics(metrics)).Engine()

	// arrange
	book := GivenBookInCatalog(t, ctx, engine, "Dune", "Frank Herbert")
	GivenLoanWasStored(t, ctx, engine, FixtureLoan(t, GivenUniqueID(t), book.ID, observedDay, lending.LoanStatusBorrowed))
	metrics.Reset()

	// act
	_, err := engine.Loans().Save(ctx, FixtureLoan(t, GivenUniqueID(t), book.ID, observedDay, lending.LoanStatusBorrowed))

	// assert
	assert.ErrorIs(t, err, lending.ErrSavingFailed)
	assert.True(t, metrics.Has(SpyCounter, "store_database_errors_total", map[string]string{
		"table":      "loans",
		"error_type": "database_query",
	}))
}
