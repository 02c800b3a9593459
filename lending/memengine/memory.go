package memengine

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

const (
	logMsgUnitOfWorkCommitted  = "memengine: unit of work committed"
	logMsgUnitOfWorkRolledBack = "memengine: unit of work rolled back"
	logAttrError               = "error"
	logAttrStagedBooks         = "staged_books"
	logAttrStagedLoans         = "staged_loans"
)

var (
	errDuplicateLoanID    = errors.New("a loan with this id already exists")
	errActiveLoanExists   = errors.New("the book already has an active loan")
	errUnitOfWorkFinished = errors.New("unit of work already finished")
)

// Engine is the in-memory implementation of lending.Engine. It is safe for concurrent use.
type Engine struct {
	mu     sync.RWMutex
	books  map[uuid.UUID]lending.BookEntry
	loans  map[uuid.UUID]lending.LoanRecord
	logger lending.Logger
}

// Option defines a functional option for configuring Engine.
type Option func(*Engine)

// WithLogger sets a logger that receives unit of work outcomes at debug level.
func WithLogger(logger lending.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an empty in-memory engine.
func NewEngine(options ...Option) *Engine {
	e := &Engine{
		books: make(map[uuid.UUID]lending.BookEntry),
		loans: make(map[uuid.UUID]lending.LoanRecord),
	}

	for _, option := range options {
		option(e)
	}

	return e
}

// Catalog returns a non-transactional catalog store. Each write runs in its own unit of work.
func (e *Engine) Catalog() lending.CatalogStore {
	return catalogStore{engine: e}
}

// Loans returns a non-transactional loan store. Each write runs in its own unit of work.
func (e *Engine) Loans() lending.LoanStore {
	return loanStore{engine: e}
}

// WithinUnitOfWork runs fn while holding the engine's write lock.
// Staged writes are applied if fn returns nil and discarded otherwise; fn's error is returned unchanged.
func (e *Engine) WithinUnitOfWork(ctx context.Context, fn lending.UnitOfWorkFunc) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(lending.ErrBeginningUnitOfWorkFailed, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t := newTx(e)
	defer t.finish()

	if err := fn(ctx, t); err != nil {
		e.logDebug(logMsgUnitOfWorkRolledBack, logAttrError, err.Error())
		return err
	}

	if err := ctx.Err(); err != nil {
		e.logDebug(logMsgUnitOfWorkRolledBack, logAttrError, err.Error())
		return errors.Join(lending.ErrCommittingUnitOfWorkFailed, err)
	}

	e.logDebug(logMsgUnitOfWorkCommitted, logAttrStagedBooks, len(t.books), logAttrStagedLoans, len(t.loans))
	t.commit()

	return nil
}

// read runs fn against the committed state under the read lock.
func (e *Engine) read(ctx context.Context, fn func(t *tx) error) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(lending.ErrQueryingFailed, err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	t := newTx(e)
	defer t.finish()

	return fn(t)
}

// write runs fn in its own unit of work.
func (e *Engine) write(ctx context.Context, fn func(t *tx) error) error {
	return e.WithinUnitOfWork(ctx, func(_ context.Context, uow lending.UnitOfWork) error {
		return fn(uow.(*tx))
	})
}

func (e *Engine) logDebug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
