// Package memengine provides an in-memory implementation of the lending engine.
//
// It satisfies the same contract as the PostgreSQL engine and backs unit tests and the simulator.
// A unit of work holds the engine's write lock for its whole duration and stages its writes in an
// overlay, which is applied only when the unit of work function returns nil.
//
// Stores obtained from a UnitOfWork must not be used after the function returns, and the engine's
// own Catalog and Loans stores must not be used from inside a unit of work function.
package memengine
