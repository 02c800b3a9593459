package adapters

import (
	"context"
	"database/sql"
	"errors"
)

// stdRows wraps standard library sql.Rows to implement DBRows interface.
type stdRows struct {
	rows *sql.Rows
}

// Next advances to the next row.
func (s *stdRows) Next() bool {
	return s.rows.Next()
}

// Scan copies row values into provided destinations.
func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

// Err returns the error, if any, that was encountered during iteration.
func (s *stdRows) Err() error {
	return s.rows.Err()
}

// Close closes the rows iterator.
func (s *stdRows) Close() error {
	return s.rows.Close()
}

// stdResult wraps standard library sql.Result to implement DBResult interface.
type stdResult struct {
	result sql.Result
}

// RowsAffected returns the number of rows affected by the command.
func (s *stdResult) RowsAffected() (int64, error) {
	return s.result.RowsAffected()
}

// stdTx wraps sql.Tx, which both sql.DB and sqlx.DB hand out.
type stdTx struct {
	tx *sql.Tx
}

// Query executes a query inside the transaction.
func (s *stdTx) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := s.tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

// Exec executes a statement inside the transaction.
func (s *stdTx) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.tx.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

// Commit commits the transaction.
func (s *stdTx) Commit(_ context.Context) error {
	return s.tx.Commit()
}

// Rollback aborts the transaction. Rolling back a finished transaction is not an error.
func (s *stdTx) Rollback(_ context.Context) error {
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}
