package lifecycle

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-go/inventory"
	"github.com/AntonStoeckl/library-lending-go/lending"
)

// Manager orchestrates borrow, return and overdue transitions on top of a lending.Engine.
// Each transition runs in one unit of work and is retried on optimistic concurrency conflicts.
// It is safe for concurrent use.
type Manager struct {
	engine           lending.Engine
	guard            inventory.Guard
	clock            lending.Clock
	loanPeriodDays   int
	retryOptions     []RetryOption
	newID            func() (uuid.UUID, error)
	logger           lending.Logger
	contextualLogger lending.ContextualLogger
	metrics          lending.MetricsCollector
	tracing          lending.TracingCollector
}

// NewManager creates a Manager for the engine.
func NewManager(engine lending.Engine, options ...Option) (*Manager, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}

	m := &Manager{
		engine:         engine,
		clock:          lending.SystemClock{},
		loanPeriodDays: DefaultLoanPeriodDays,
		newID:          uuid.NewV7,
	}

	for _, option := range options {
		if err := option(m); err != nil {
			return nil, err
		}
	}

	m.guard = inventory.NewGuard(
		inventory.WithLogger(m.logger),
		inventory.WithContextualLogger(m.contextualLogger),
		inventory.WithMetrics(m.metrics),
	)

	return m, nil
}

// LoanPeriodDays returns the configured loan period.
func (m *Manager) LoanPeriodDays() int {
	return m.loanPeriodDays
}

// Borrow lends the book to the borrower.
//
// Within one unit of work it claims the book (lending.ErrBookNotFound, lending.ErrBookUnavailable)
// and stores a BORROWED loan due after the loan period.
// If any step fails the claim is rolled back with the rest of the unit of work.
func (m *Manager) Borrow(ctx context.Context, borrowerID, bookID uuid.UUID) (Result[lending.LoanRecord], error) {
	ctx, obs := m.observe(ctx, OperationBorrow, logAttrBorrowerID, borrowerID.String(), logAttrBookID, bookID.String())

	var loan lending.LoanRecord

	retryMetrics, err := m.retry(ctx, OperationBorrow, func(ctx context.Context) error {
		return m.engine.WithinUnitOfWork(ctx, func(ctx context.Context, uow lending.UnitOfWork) error {
			if _, claimErr := m.guard.TryClaim(ctx, uow.Catalog(), bookID); claimErr != nil {
				return claimErr
			}

			loanID, idErr := m.newID()
			if idErr != nil {
				return idErr
			}

			saved, saveErr := uow.Loans().Save(ctx, DecideBorrow(loanID, borrowerID, bookID, m.clock.Today(), m.loanPeriodDays))
			if saveErr != nil {
				return saveErr
			}

			loan = saved

			return nil
		})
	})

	obs.finish(m, retryMetrics.Attempts, err)

	if err != nil {
		return newResult(lending.LoanRecord{}, retryMetrics), err
	}

	return newResult(loan, retryMetrics), nil
}

// ReturnLoan resolves an active loan and makes its book available again.
//
// The return is on time up to and including the deadline day and late afterwards.
// Unknown loans fail with lending.ErrLoanNotFound, resolved ones with lending.ErrLoanAlreadyReturned.
func (m *Manager) ReturnLoan(ctx context.Context, loanID uuid.UUID) (Result[lending.LoanRecord], error) {
	ctx, obs := m.observe(ctx, OperationReturn, logAttrLoanID, loanID.String())

	var loan lending.LoanRecord

	retryMetrics, err := m.retry(ctx, OperationReturn, func(ctx context.Context) error {
		return m.engine.WithinUnitOfWork(ctx, func(ctx context.Context, uow lending.UnitOfWork) error {
			current, found, getErr := uow.Loans().Get(ctx, loanID)
			if getErr != nil {
				return getErr
			}

			if !found {
				return lending.ErrLoanNotFound
			}

			returned, decideErr := DecideReturn(current, m.clock.Today())
			if decideErr != nil {
				return decideErr
			}

			saved, saveErr := uow.Loans().Save(ctx, returned)
			if saveErr != nil {
				return saveErr
			}

			releaseErr := m.guard.Release(ctx, uow.Catalog(), saved.BookID)
			if releaseErr != nil && !errors.Is(releaseErr, lending.ErrBookNotFound) {
				return releaseErr
			}

			if releaseErr != nil {
				m.logWarn(ctx, logMsgReleaseOfMissingBook, logAttrLoanID, saved.ID.String(), logAttrBookID, saved.BookID.String())
			}

			loan = saved

			return nil
		})
	})

	obs.finish(m, retryMetrics.Attempts, err)

	if err != nil {
		return newResult(lending.LoanRecord{}, retryMetrics), err
	}

	return newResult(loan, retryMetrics), nil
}

// SweepOverdue marks every BORROWED loan whose deadline lies before today as OVERDUE.
//
// Each candidate is re-read and re-checked in its own unit of work, so loans returned while the
// sweep runs are skipped. Availability is never touched. Running it twice on the same day marks
// nothing the second time. A failure on one loan does not stop the sweep; all failures are
// returned joined, together with the partial result.
func (m *Manager) SweepOverdue(ctx context.Context) (SweepResult, error) {
	ctx, obs := m.observe(ctx, OperationSweep)

	today := m.clock.Today()
	result := SweepResult{Date: today, Marked: make([]lending.LoanRecord, 0)}

	borrowed, err := m.engine.Loans().GetByStatus(lending.WithStrongConsistency(ctx), lending.LoanStatusBorrowed)
	if err != nil {
		obs.finish(m, 0, err)
		return result, err
	}

	result.Examined = len(borrowed)

	var sweepErrs []error

	for _, candidate := range borrowed {
		if _, due := DecideOverdue(candidate, today); !due {
			continue
		}

		marked, markErr := m.markOverdue(ctx, candidate.ID, today)

		switch {
		case markErr != nil:
			sweepErrs = append(sweepErrs, markErr)
			if ctx.Err() != nil {
				err = errors.Join(sweepErrs...)
				obs.finish(m, 0, err)
				return result, err
			}

		case marked == nil:
			result.Skipped++
			m.logWarn(ctx, logMsgSweepSkippedLoan, logAttrLoanID, candidate.ID.String())

		default:
			result.Marked = append(result.Marked, *marked)
			lending.IncrementCounter(ctx, m.metrics, MetricLoansMarkedOverdue, nil)
			m.logInfo(ctx, logMsgLoanMarkedOverdue,
				logAttrLoanID, marked.ID.String(),
				logAttrBookID, marked.BookID.String(),
				logAttrDeadline, marked.ReturnDeadline.String(),
			)
		}
	}

	err = errors.Join(sweepErrs...)
	obs.finish(m, 0, err)

	m.logInfo(ctx, logMsgSweepCompleted,
		logAttrExamined, result.Examined,
		logAttrMarked, len(result.Marked),
	)

	return result, err
}

// markOverdue reloads the loan and marks it. A nil loan means it no longer qualified.
func (m *Manager) markOverdue(ctx context.Context, loanID uuid.UUID, today lending.Date) (*lending.LoanRecord, error) {
	var marked *lending.LoanRecord

	_, err := m.retry(ctx, OperationSweep, func(ctx context.Context) error {
		marked = nil

		return m.engine.WithinUnitOfWork(ctx, func(ctx context.Context, uow lending.UnitOfWork) error {
			current, found, getErr := uow.Loans().Get(ctx, loanID)
			if getErr != nil || !found {
				return getErr
			}

			overdue, due := DecideOverdue(current, today)
			if !due {
				return nil
			}

			saved, saveErr := uow.Loans().Save(ctx, overdue)
			if saveErr != nil {
				return saveErr
			}

			marked = &saved

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return marked, nil
}

// GetHistory returns all loans of the borrower, most recent borrow date first.
func (m *Manager) GetHistory(ctx context.Context, borrowerID uuid.UUID) (lending.LoanRecords, error) {
	ctx, obs := m.observe(ctx, OperationHistory, logAttrBorrowerID, borrowerID.String())

	loans, err := m.engine.Loans().GetByBorrower(ctx, borrowerID)
	obs.finish(m, 0, err)

	return loans, err
}

// GetActive returns all loans in status BORROWED.
func (m *Manager) GetActive(ctx context.Context) (lending.LoanRecords, error) {
	ctx, obs := m.observe(ctx, OperationActive)

	loans, err := m.engine.Loans().GetByStatus(ctx, lending.LoanStatusBorrowed)
	obs.finish(m, 0, err)

	return loans, err
}

// GetAll returns every loan record.
func (m *Manager) GetAll(ctx context.Context) (lending.LoanRecords, error) {
	ctx, obs := m.observe(ctx, OperationAll)

	loans, err := m.engine.Loans().GetAll(ctx)
	obs.finish(m, 0, err)

	return loans, err
}

// GetAvailableBooks returns the catalog entries that can currently be borrowed.
func (m *Manager) GetAvailableBooks(ctx context.Context) ([]lending.BookEntry, error) {
	ctx, obs := m.observe(ctx, OperationAvailable)

	books, err := m.engine.Catalog().GetAvailable(ctx)
	obs.finish(m, 0, err)

	return books, err
}

// SearchBooks returns the entries whose title or author contains keyword, ignoring case.
func (m *Manager) SearchBooks(ctx context.Context, keyword string) ([]lending.BookEntry, error) {
	ctx, obs := m.observe(ctx, OperationSearchBooks)

	books, err := m.engine.Catalog().Search(ctx, keyword)
	obs.finish(m, 0, err)

	return books, err
}

func (m *Manager) retry(ctx context.Context, operation string, fn RetryableFunc) (RetryMetrics, error) {
	options := make([]RetryOption, 0, len(m.retryOptions)+1)
	options = append(options, m.retryOptions...)
	options = append(options, withRetryMetrics(m.metrics, operation))

	return RetryWithExponentialBackoff(ctx, fn, options...)
}
