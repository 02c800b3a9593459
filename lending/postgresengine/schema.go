package postgresengine

import (
	"context"
	"fmt"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

// SchemaStatements returns the DDL for the catalog and loan tables with the given names.
//
// The partial unique index allows at most one active (BORROWED or OVERDUE) loan per book entry.
func SchemaStatements(catalogTable, loanTable string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id        UUID PRIMARY KEY,
	title     TEXT NOT NULL,
	author    TEXT NOT NULL DEFAULT '',
	isbn      TEXT NOT NULL DEFAULT '',
	genre     TEXT NOT NULL DEFAULT '',
	quantity  INTEGER NOT NULL DEFAULT 1,
	available BOOLEAN NOT NULL DEFAULT TRUE,
	version   BIGINT NOT NULL DEFAULT 1
)`, catalogTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id                 UUID PRIMARY KEY,
	borrower_id        UUID NOT NULL,
	book_id            UUID NOT NULL,
	borrow_date        DATE NOT NULL,
	return_deadline    DATE NOT NULL,
	actual_return_date DATE NULL,
	status             TEXT NOT NULL CHECK (status IN ('BORROWED', 'RETURNED', 'RETURNED_LATE', 'OVERDUE')),
	version            BIGINT NOT NULL DEFAULT 1
)`, loanTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_borrower_idx ON %[1]s (borrower_id, borrow_date DESC)`, loanTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_status_idx ON %[1]s (status)`, loanTable),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %[1]s_one_active_per_book_idx ON %[1]s (book_id) WHERE status IN ('BORROWED', 'OVERDUE')`, loanTable),
	}
}

// EnsureSchema creates the engine's tables and indexes if they do not exist.
func (e Engine) EnsureSchema(ctx context.Context) error {
	s := e.session(e.db)

	for _, statement := range SchemaStatements(e.catalogTableName, e.loanTableName) {
		if _, err := s.exec(ctx, "", statement, lending.ErrSavingFailed); err != nil {
			return err
		}
	}

	return nil
}

// Truncate removes all rows from both tables. Intended for tests and simulations.
func (e Engine) Truncate(ctx context.Context) error {
	s := e.session(e.db)
	statement := fmt.Sprintf("TRUNCATE TABLE %s, %s", e.catalogTableName, e.loanTableName)

	_, err := s.exec(ctx, "", statement, lending.ErrDeletingFailed)

	return err
}
