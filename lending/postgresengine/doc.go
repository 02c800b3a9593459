// Package postgresengine provides a PostgreSQL implementation of the lending engine.
//
// The engine stores book entries and loan records in two tables and runs every borrow,
// return and overdue transition inside a database transaction (a unit of work).
// It supports three database adapters:
//   - pgx.Pool (recommended, supports a read replica)
//   - sql.DB with the lib/pq driver
//   - sqlx.DB
//
// Availability is claimed with a single conditional UPDATE:
//
//	UPDATE books SET available = false, version = version + 1 WHERE id = $1 AND available IS TRUE
//
// Postgres row locking serializes concurrent claims on the same row; the loser re-evaluates the
// predicate and affects zero rows. Loan records carry a version, each update is conditional on
// the version read, and a mismatch is reported as lending.ErrConcurrencyConflict.
//
// Example usage:
//
//	engine, err := postgresengine.NewEngineFromPGXPool(pool,
//		postgresengine.WithLogger(logger),
//		postgresengine.WithMetrics(metrics),
//	)
//	if err != nil {
//		return err
//	}
//
//	if err := engine.EnsureSchema(ctx); err != nil {
//		return err
//	}
//
// All SQL is built with goqu using the postgres dialect.
package postgresengine
