package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/AntonStoeckl/library-lending-go/lending/postgresengine"
)

// PostgresEngine is an engine together with the function that closes its connections.
type PostgresEngine struct {
	Engine postgresengine.Engine
	Close  func()
}

// OpenPostgresEngine connects with the selected adapter and builds a postgresengine.Engine.
// A replica DSN is only honored by the pgx.pool adapter.
func OpenPostgresEngine(
	ctx context.Context,
	adapter AdapterType,
	dsn string,
	replicaDSN string,
	options ...postgresengine.Option,
) (PostgresEngine, error) {

	switch adapter {
	case AdapterPGXPool, "":
		pool, err := NewPGXPool(ctx, dsn)
		if err != nil {
			return PostgresEngine{}, err
		}

		if replicaDSN == "" {
			engine, engineErr := postgresengine.NewEngineFromPGXPool(pool, options...)
			if engineErr != nil {
				pool.Close()
				return PostgresEngine{}, engineErr
			}

			return PostgresEngine{Engine: engine, Close: pool.Close}, nil
		}

		replica, err := NewPGXPool(ctx, replicaDSN)
		if err != nil {
			pool.Close()
			return PostgresEngine{}, errors.Join(errors.New("connecting to replica failed"), err)
		}

		closeBoth := func() {
			replica.Close()
			pool.Close()
		}

		engine, engineErr := postgresengine.NewEngineFromPGXPoolAndReplica(pool, replica, options...)
		if engineErr != nil {
			closeBoth()
			return PostgresEngine{}, engineErr
		}

		return PostgresEngine{Engine: engine, Close: closeBoth}, nil

	case AdapterSQLDB:
		db, err := NewSQLDB(ctx, dsn)
		if err != nil {
			return PostgresEngine{}, err
		}

		engine, engineErr := postgresengine.NewEngineFromSQLDB(db, options...)
		if engineErr != nil {
			_ = db.Close()
			return PostgresEngine{}, engineErr
		}

		return PostgresEngine{Engine: engine, Close: func() { _ = db.Close() }}, nil

	case AdapterSQLXDB:
		db, err := NewSQLX(ctx, dsn)
		if err != nil {
			return PostgresEngine{}, err
		}

		engine, engineErr := postgresengine.NewEngineFromSQLX(db, options...)
		if engineErr != nil {
			_ = db.Close()
			return PostgresEngine{}, engineErr
		}

		return PostgresEngine{Engine: engine, Close: func() { _ = db.Close() }}, nil

	default:
		return PostgresEngine{}, fmt.Errorf("unsupported adapter type: %q", adapter)
	}
}
