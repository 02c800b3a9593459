package postgresengine_test

import (
	"testing"

	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lending/postgresengine"
	"github.com/AntonStoeckl/library-lending-go/testutil/enginecontract"
	. "github.com/AntonStoeckl/library-lending-go/testutil/postgreswrapper" //nolint:revive
)

func Test_PostgresEngine_Contract(t *testing.T) {
	enginecontract.Run(t, func(t *testing.T) lending.Engine {
		return CreateWrapperWithTestConfig(t).Engine()
	})
}

func Test_PostgresEngine_Contract_WithCustomTableNames(t *testing.T) {
	enginecontract.Run(t, func(t *testing.T) lending.Engine {
		return CreateWrapperWithTestConfig(t,
			postgresengine.WithCatalogTableName("custom_books"),
			postgresengine.WithLoanTableName("custom_loans"),
		).Engine()
	})
}
