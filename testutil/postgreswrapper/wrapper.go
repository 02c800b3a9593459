package postgreswrapper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending-go/config"
	"github.com/AntonStoeckl/library-lending-go/lending/postgresengine"
)

const connectTimeout = 3 * time.Second

// Wrapper holds an engine with freshly created, empty tables.
type Wrapper struct {
	engine  postgresengine.Engine
	adapter config.AdapterType
	close   func()
}

// Engine returns the wrapped engine.
func (w *Wrapper) Engine() postgresengine.Engine {
	return w.engine
}

// Adapter returns the adapter type the engine was built with.
func (w *Wrapper) Adapter() config.AdapterType {
	return w.adapter
}

// Close closes the underlying connections.
func (w *Wrapper) Close() {
	w.close()
}

// CreateWrapperWithTestConfig connects to the test database, ensures the schema and truncates both tables.
// The wrapper is closed when the test finishes.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) *Wrapper {
	t.Helper()

	adapter, err := config.AdapterTypeFromEnv()
	require.NoError(t, err, "invalid adapter type in test setup")

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	opened, err := config.OpenPostgresEngine(ctx, adapter, config.PostgresDSN(), "", options...)
	if err != nil {
		t.Skipf("postgres not reachable with adapter %s: %v", adapter, err)
	}

	w := &Wrapper{engine: opened.Engine, adapter: adapter, close: opened.Close}
	t.Cleanup(w.Close)

	require.NoError(t, w.engine.EnsureSchema(ctx), "error ensuring the schema in test setup")
	CleanUp(t, w)

	return w
}

// TryCreateEngine opens a connection with the test config and tries to build an engine with the options,
// returning the construction error. Skips the test if the database is not reachable.
func TryCreateEngine(t testing.TB, options ...postgresengine.Option) error {
	t.Helper()

	adapter, err := config.AdapterTypeFromEnv()
	require.NoError(t, err, "invalid adapter type in test setup")

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	opened, err := config.OpenPostgresEngine(ctx, adapter, config.PostgresDSN(), "", options...)
	if opened.Close != nil {
		opened.Close()
	}

	if err != nil && isConnectError(ctx, adapter) {
		t.Skipf("postgres not reachable with adapter %s: %v", adapter, err)
	}

	return err
}

// CleanUp truncates both tables.
func CleanUp(t testing.TB, w *Wrapper) {
	t.Helper()

	err := w.engine.Truncate(context.Background())
	require.NoError(t, err, fmt.Sprintf("error cleaning up tables with adapter %s", w.adapter))
}

func isConnectError(ctx context.Context, adapter config.AdapterType) bool {
	opened, err := config.OpenPostgresEngine(ctx, adapter, config.PostgresDSN(), "")
	if err != nil {
		return true
	}

	opened.Close()

	return false
}
