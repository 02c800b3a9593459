package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lending/postgresengine/internal/adapters"
)

const (
	defaultCatalogTableName = "books"
	defaultLoanTableName    = "loans"
	dialectPostgres         = "postgres"
	castText                = "?::text"

	logMsgBuildQueryFailed     = "failed to build query"
	logMsgDBQueryFailed        = "database query execution failed"
	logMsgDBExecFailed         = "database statement execution failed"
	logMsgCloseRowsFailed      = "failed to close database rows"
	logMsgScanRowFailed        = "failed to scan database row"
	logMsgRowsAffectedFailed   = "failed to get rows affected count"
	logMsgBeginFailed          = "failed to begin unit of work"
	logMsgCommitFailed         = "failed to commit unit of work"
	logMsgRollbackFailed       = "failed to roll back unit of work"
	logMsgConcurrencyConflict  = "concurrency conflict detected"
	logMsgUnitOfWorkCommitted  = "unit of work committed"
	logMsgUnitOfWorkRolledBack = "unit of work rolled back"
	logMsgSQLExecuted          = "executed sql for: "
	logAttrError               = "error"
	logAttrQuery               = "query"
	logAttrTable               = "table"
	logAttrDurationMS          = "duration_ms"
	logAttrRowsAffected        = "rows_affected"
	logAttrLoanID              = "loan_id"
	logAttrExpectedVersion     = "expected_version"
	operationQuery             = "query"
	operationExec              = "exec"
	operationUnitOfWork        = "unit_of_work"
)

// Engine is the PostgreSQL implementation of lending.Engine.
type Engine struct {
	db               adapters.DBAdapter
	catalogTableName string
	loanTableName    string
	observer         observer
}

// NewEngineFromPGXPool creates a new Engine using a pgx Pool with optional configuration.
func NewEngineFromPGXPool(db *pgxpool.Pool, options ...Option) (Engine, error) {
	if db == nil {
		return Engine{}, lending.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapter(db), options...)
}

// NewEngineFromPGXPoolAndReplica creates a new Engine using a primary and a replica pgx Pool.
// Reads on a context marked with lending.WithEventualConsistency go to the replica,
// everything else, and every unit of work, goes to the primary.
func NewEngineFromPGXPoolAndReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (Engine, error) {
	if db == nil || replica == nil {
		return Engine{}, lending.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewEngineFromSQLDB creates a new Engine using a sql.DB with optional configuration.
func NewEngineFromSQLDB(db *sql.DB, options ...Option) (Engine, error) {
	if db == nil {
		return Engine{}, lending.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db), options...)
}

// NewEngineFromSQLX creates a new Engine using a sqlx.DB with optional configuration.
func NewEngineFromSQLX(db *sqlx.DB, options ...Option) (Engine, error) {
	if db == nil {
		return Engine{}, lending.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLXAdapter(db), options...)
}

func newEngine(db adapters.DBAdapter, options ...Option) (Engine, error) {
	e := Engine{
		db:               db,
		catalogTableName: defaultCatalogTableName,
		loanTableName:    defaultLoanTableName,
	}

	for _, option := range options {
		if err := option(&e); err != nil {
			return Engine{}, err
		}
	}

	return e, nil
}

// Catalog returns a non-transactional catalog store.
func (e Engine) Catalog() lending.CatalogStore {
	return catalogStore{session: e.session(e.db), table: e.catalogTableName}
}

// Loans returns a non-transactional loan store.
func (e Engine) Loans() lending.LoanStore {
	return loanStore{session: e.session(e.db), table: e.loanTableName}
}

// WithinUnitOfWork runs fn inside one database transaction.
// The transaction commits if fn returns nil and rolls back otherwise; fn's error is returned unchanged.
func (e Engine) WithinUnitOfWork(ctx context.Context, fn lending.UnitOfWorkFunc) error {
	ctx, span := e.observer.startSpan(ctx, spanNameUnitOfWork, map[string]string{labelOperation: operationUnitOfWork})
	start := time.Now()

	tx, beginErr := e.db.BeginTx(ctx)
	if beginErr != nil {
		e.observer.logError(ctx, logMsgBeginFailed, beginErr)
		e.observer.recordDatabaseError(ctx, "", operationUnitOfWork, errorTypeBegin)
		e.observer.finishSpan(span, statusError, map[string]string{labelErrorType: errorTypeBegin})

		return errors.Join(lending.ErrBeginningUnitOfWorkFailed, beginErr)
	}

	committed := false
	defer func() {
		if committed {
			return
		}

		if rollbackErr := tx.Rollback(context.WithoutCancel(ctx)); rollbackErr != nil {
			e.observer.logWarn(ctx, logMsgRollbackFailed, logAttrError, rollbackErr.Error())
		}
	}()

	uow := unitOfWork{
		catalog: catalogStore{session: e.session(tx), table: e.catalogTableName},
		loans:   loanStore{session: e.session(tx), table: e.loanTableName},
	}

	if fnErr := fn(ctx, uow); fnErr != nil {
		e.observer.logDebug(ctx, logMsgUnitOfWorkRolledBack, logAttrError, fnErr.Error())
		e.observer.recordUnitOfWork(ctx, statusError, time.Since(start))
		e.observer.finishSpan(span, statusError, map[string]string{labelErrorType: errorTypeAborted})

		return fnErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		e.observer.logError(ctx, logMsgCommitFailed, commitErr)
		e.observer.recordDatabaseError(ctx, "", operationUnitOfWork, errorTypeCommit)
		e.observer.recordUnitOfWork(ctx, statusError, time.Since(start))
		e.observer.finishSpan(span, statusError, map[string]string{labelErrorType: errorTypeCommit})

		return errors.Join(lending.ErrCommittingUnitOfWorkFailed, commitErr)
	}

	committed = true
	duration := time.Since(start)
	e.observer.logDebug(ctx, logMsgUnitOfWorkCommitted, logAttrDurationMS, toMilliseconds(duration))
	e.observer.recordUnitOfWork(ctx, statusSuccess, duration)
	e.observer.finishSpan(span, statusSuccess, nil)

	return nil
}

func (e Engine) session(q adapters.Querier) session {
	return session{q: q, obs: e.observer}
}

type unitOfWork struct {
	catalog catalogStore
	loans   loanStore
}

func (u unitOfWork) Catalog() lending.CatalogStore { return u.catalog }

func (u unitOfWork) Loans() lending.LoanStore { return u.loans }

// session executes statements on either the adapter or an open transaction and observes them.
type session struct {
	q   adapters.Querier
	obs observer
}

func (s session) query(ctx context.Context, table, sqlQuery string) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := s.q.Query(ctx, sqlQuery)
	duration := time.Since(start)
	s.obs.logQueryWithDuration(ctx, sqlQuery, operationQuery, duration)

	if queryErr != nil {
		s.obs.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		s.obs.recordDatabaseError(ctx, table, operationQuery, errorTypeDatabase)
		s.obs.recordQuery(ctx, table, operationQuery, statusError, duration)

		return nil, errors.Join(lending.ErrQueryingFailed, queryErr)
	}

	s.obs.recordQuery(ctx, table, operationQuery, statusSuccess, duration)

	return rows, nil
}

func (s session) exec(ctx context.Context, table, sqlQuery string, failure error) (int64, error) {
	start := time.Now()
	result, execErr := s.q.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	s.obs.logQueryWithDuration(ctx, sqlQuery, operationExec, duration)

	if execErr != nil {
		s.obs.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		s.obs.recordDatabaseError(ctx, table, operationExec, errorTypeDatabase)
		s.obs.recordQuery(ctx, table, operationExec, statusError, duration)

		return 0, errors.Join(failure, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		s.obs.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)
		s.obs.recordDatabaseError(ctx, table, operationExec, errorTypeRowsAffected)

		return 0, errors.Join(lending.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	s.obs.recordQuery(ctx, table, operationExec, statusSuccess, duration)

	return rowsAffected, nil
}

func (s session) buildFailed(ctx context.Context, table string, err error) error {
	s.obs.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, table)
	s.obs.recordDatabaseError(ctx, table, operationQuery, errorTypeBuildQuery)

	return errors.Join(lending.ErrBuildingQueryFailed, err)
}

func (s session) scanFailed(ctx context.Context, table string, err error) error {
	s.obs.logError(ctx, logMsgScanRowFailed, err, logAttrTable, table)
	s.obs.recordDatabaseError(ctx, table, operationQuery, errorTypeScan)

	return errors.Join(lending.ErrScanningDBRowFailed, err)
}

// closeRows safely closes database rows and logs any errors.
func (s session) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		s.obs.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}
