// Package postgreswrapper builds a PostgreSQL lending engine for tests.
//
// The database library is chosen with the ADAPTER_TYPE environment variable (pgx.pool, sql.db or sqlx.db,
// default pgx.pool) and the database with LENDING_POSTGRES_DSN. Tests using a wrapper are skipped
// when the database cannot be reached.
package postgreswrapper
