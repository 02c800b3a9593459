package lifecycle

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

func Test_checkAvailability(t *testing.T) {
	// arrange
	free := lending.BookEntry{ID: uuid.New(), Available: true}
	lent := lending.BookEntry{ID: uuid.New(), Available: false}
	lentOverdue := lending.BookEntry{ID: uuid.New(), Available: false}
	leaked := lending.BookEntry{ID: uuid.New(), Available: false}
	doubleLent := lending.BookEntry{ID: uuid.New(), Available: false}
	availableButLent := lending.BookEntry{ID: uuid.New(), Available: true}

	loans := lending.LoanRecords{
		{ID: uuid.New(), BookID: free.ID, Status: lending.LoanStatusReturned},
		{ID: uuid.New(), BookID: lent.ID, Status: lending.LoanStatusBorrowed},
		{ID: uuid.New(), BookID: lentOverdue.ID, Status: lending.LoanStatusOverdue},
		{ID: uuid.New(), BookID: leaked.ID, Status: lending.LoanStatusReturnedLate},
		{ID: uuid.New(), BookID: doubleLent.ID, Status: lending.LoanStatusBorrowed},
		{ID: uuid.New(), BookID: doubleLent.ID, Status: lending.LoanStatusOverdue},
		{ID: uuid.New(), BookID: availableButLent.ID, Status: lending.LoanStatusBorrowed},
	}

	// act
	report := checkAvailability(
		[]lending.BookEntry{free, lent, lentOverdue, leaked, doubleLent, availableButLent},
		loans,
	)

	// assert
	assert.False(t, report.Holds())
	assert.Equal(t, 6, report.Books)
	assert.Equal(t, 5, report.ActiveLoans)
	assert.ElementsMatch(t, []InvariantViolation{
		{BookID: leaked.ID, Available: false, ActiveLoans: 0},
		{BookID: doubleLent.ID, Available: false, ActiveLoans: 2},
		{BookID: availableButLent.ID, Available: true, ActiveLoans: 1},
	}, report.Violations)
}

func Test_checkAvailability_Holds_ForEmptyStores(t *testing.T) {
	report := checkAvailability(nil, nil)

	assert.True(t, report.Holds())
	assert.Empty(t, report.Violations)
}
