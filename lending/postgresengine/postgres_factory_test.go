package postgresengine_test

import (
	"database/sql"
	"strings"
	"testing"

	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending-go/config"
	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lending/postgresengine"
	. "github.com/AntonStoeckl/library-lending-go/testutil/postgreswrapper" //nolint:revive
)

func Test_FactoryFunctions_ShouldFail_WithNilDatabaseConnection(t *testing.T) {
	testCases := []struct {
		name        string
		factoryFunc func() (postgresengine.Engine, error)
	}{
		{
			name: "NewEngineFromPGXPool with nil",
			factoryFunc: func() (postgresengine.Engine, error) {
				return postgresengine.NewEngineFromPGXPool(nil)
			},
		},
		{
			name: "NewEngineFromPGXPoolAndReplica with nil",
			factoryFunc: func() (postgresengine.Engine, error) {
				return postgresengine.NewEngineFromPGXPoolAndReplica(nil, nil)
			},
		},
		{
			name: "NewEngineFromSQLDB with nil",
			factoryFunc: func() (postgresengine.Engine, error) {
				return postgresengine.NewEngineFromSQLDB(nil)
			},
		},
		{
			name: "NewEngineFromSQLX with nil",
			factoryFunc: func() (postgresengine.Engine, error) {
				return postgresengine.NewEngineFromSQLX(nil)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.factoryFunc()

			assert.ErrorIs(t, err, lending.ErrNilDatabaseConnection)
		})
	}
}

func Test_FactoryFunctions_ShouldFail_WithEmptyTableName(t *testing.T) {
	// setup
	db, err := sql.Open("postgres", config.PostgresDSN())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	testCases := []struct {
		name   string
		option postgresengine.Option
	}{
		{name: "empty catalog table", option: postgresengine.WithCatalogTableName("")},
		{name: "empty loan table", option: postgresengine.WithLoanTableName("")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, createErr := postgresengine.NewEngineFromSQLDB(db, tc.option)

			assert.ErrorIs(t, createErr, lending.ErrEmptyTableName)
		})
	}
}

func Test_FactoryFunctions_EmptyTableName_IsReportedByConfiguredAdapter(t *testing.T) {
	err := TryCreateEngine(t, postgresengine.WithLoanTableName(""))

	assert.ErrorIs(t, err, lending.ErrEmptyTableName)
}

func Test_SchemaStatements_UseTheConfiguredTableNames(t *testing.T) {
	// act
	statements := postgresengine.SchemaStatements("shelf", "lending")

	// assert
	require.Len(t, statements, 5)
	assert.Contains(t, statements[0], "CREATE TABLE IF NOT EXISTS shelf")
	assert.Contains(t, statements[1], "CREATE TABLE IF NOT EXISTS lending")

	unique := statements[len(statements)-1]
	assert.Contains(t, unique, "CREATE UNIQUE INDEX IF NOT EXISTS lending_one_active_per_book_idx")
	assert.Contains(t, unique, "WHERE status IN ('BORROWED', 'OVERDUE')")

	for _, statement := range statements {
		assert.False(t, strings.Contains(statement, "books"), "default table name leaked into %q", statement)
	}
}
