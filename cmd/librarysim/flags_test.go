package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending-go/config"
)

func Test_resolve_UsesDefaults_WithoutFlags(t *testing.T) {
	t.Setenv(config.EnvPostgresDSN, "")
	t.Setenv(config.EnvPostgresReplicaDSN, "")
	t.Setenv(config.EnvAdapterType, "")

	opts, err := parseFlags(nil)
	require.NoError(t, err)

	cfg, err := opts.resolve()

	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func Test_resolve_FlagsOverrideTheFile(t *testing.T) {
	// arrange
	path := filepath.Join(t.TempDir(), "librarysim.toml")
	content := `
[lending]
loan_period_days = 21

[simulation]
books = 5
days = 9
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	opts, err := parseFlags([]string{"-config", path, "-days", "3", "-workers", "2", "-adapter", "sqlx.db"})
	require.NoError(t, err)

	// act
	cfg, err := opts.resolve()

	// assert
	require.NoError(t, err)
	assert.Equal(t, 21, cfg.Lending.LoanPeriodDays)
	assert.Equal(t, 5, cfg.Simulation.Books)
	assert.Equal(t, 3, cfg.Simulation.Days)
	assert.Equal(t, 2, cfg.Simulation.Workers)
	assert.Equal(t, config.AdapterSQLXDB, cfg.Postgres.Adapter)
	assert.Equal(t, config.EngineMemory, cfg.Postgres.Engine)
}

func Test_resolve_ShouldFail_WithInvalidValues(t *testing.T) {
	testCases := map[string][]string{
		"engine":      {"-engine", "mongodb"},
		"adapter":     {"-adapter", "odbc"},
		"workers":     {"-workers", "0"},
		"loan period": {"-loan-period", "-1"},
		"percentage":  {"-return-percentage", "101"},
	}

	for name, args := range testCases {
		t.Run(name, func(t *testing.T) {
			opts, err := parseFlags(args)
			require.NoError(t, err)

			_, err = opts.resolve()

			assert.Error(t, err)
		})
	}
}

func Test_parseFlags_ShouldFail_WithPositionalArguments(t *testing.T) {
	_, err := parseFlags([]string{"-days", "3", "extra"})

	assert.Error(t, err)
}
