// Package adapters provide database adapter implementations for the PostgreSQL lending engine.
//
// Three connection types are supported: pgxpool.Pool, sql.DB and sqlx.DB. Each adapter offers the
// same DBAdapter interface, so the stores never see which library is underneath.
// Transactions are exposed as DBTx, which shares the Querier contract with the adapter itself.
package adapters
