package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lifecycle"
	. "github.com/AntonStoeckl/library-lending-go/testutil/helper"
)

var borrowDay = lending.NewDate(2025, time.March, 3)

func Test_DecideBorrow(t *testing.T) {
	loanID, borrowerID, bookID := GivenUniqueID(t), GivenUniqueID(t), GivenUniqueID(t)

	loan := lifecycle.DecideBorrow(loanID, borrowerID, bookID, borrowDay, 14)

	assert.Equal(t, loanID, loan.ID)
	assert.Equal(t, borrowerID, loan.BorrowerID)
	assert.Equal(t, bookID, loan.BookID)
	assert.Equal(t, borrowDay, loan.BorrowDate)
	assert.Equal(t, lending.NewDate(2025, time.March, 17), loan.ReturnDeadline)
	assert.Equal(t, lending.LoanStatusBorrowed, loan.Status)
	assert.Nil(t, loan.ActualReturnDate)
	assert.Zero(t, loan.Version)
}

func Test_DecideReturn(t *testing.T) {
	deadline := borrowDay.AddDays(14)

	testCases := []struct {
		name     string
		status   lending.LoanStatus
		today    lending.Date
		expected lending.LoanStatus
	}{
		{name: "before deadline", status: lending.LoanStatusBorrowed, today: borrowDay.AddDays(3), expected: lending.LoanStatusReturned},
		{name: "on borrow day", status: lending.LoanStatusBorrowed, today: borrowDay, expected: lending.LoanStatusReturned},
		{name: "on deadline day", status: lending.LoanStatusBorrowed, today: deadline, expected: lending.LoanStatusReturned},
		{name: "one day after deadline", status: lending.LoanStatusBorrowed, today: deadline.AddDays(1), expected: lending.LoanStatusReturnedLate},
		{name: "overdue loan", status: lending.LoanStatusOverdue, today: deadline.AddDays(5), expected: lending.LoanStatusReturnedLate},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			loan := FixtureLoan(t, GivenUniqueID(t), GivenUniqueID(t), borrowDay, tc.status)

			returned, err := lifecycle.DecideReturn(loan, tc.today)

			require.NoError(t, err)
			assert.Equal(t, tc.expected, returned.Status)
			require.NotNil(t, returned.ActualReturnDate)
			assert.Equal(t, tc.today, *returned.ActualReturnDate)
			assert.Equal(t, loan.ReturnDeadline, returned.ReturnDeadline)
		})
	}
}

func Test_DecideReturn_ShouldFail_WhenLoanIsResolved(t *testing.T) {
	for _, status := range []lending.LoanStatus{lending.LoanStatusReturned, lending.LoanStatusReturnedLate} {
		t.Run(status.String(), func(t *testing.T) {
			loan := FixtureLoan(t, GivenUniqueID(t), GivenUniqueID(t), borrowDay, status)

			_, err := lifecycle.DecideReturn(loan, borrowDay.AddDays(1))

			assert.ErrorIs(t, err, lending.ErrLoanAlreadyReturned)
		})
	}
}

func Test_DecideReturn_DoesNotAliasTheInput(t *testing.T) {
	loan := FixtureLoan(t, GivenUniqueID(t), GivenUniqueID(t), borrowDay, lending.LoanStatusBorrowed)

	_, err := lifecycle.DecideReturn(loan, borrowDay.AddDays(1))

	require.NoError(t, err)
	assert.Nil(t, loan.ActualReturnDate)
	assert.Equal(t, lending.LoanStatusBorrowed, loan.Status)
}

func Test_DecideOverdue(t *testing.T) {
	deadline := borrowDay.AddDays(14)

	testCases := []struct {
		name   string
		status lending.LoanStatus
		today  lending.Date
		due    bool
	}{
		{name: "borrowed before deadline", status: lending.LoanStatusBorrowed, today: deadline.AddDays(-1), due: false},
		{name: "borrowed on deadline day", status: lending.LoanStatusBorrowed, today: deadline, due: false},
		{name: "borrowed past deadline", status: lending.LoanStatusBorrowed, today: deadline.AddDays(1), due: true},
		{name: "already overdue", status: lending.LoanStatusOverdue, today: deadline.AddDays(3), due: false},
		{name: "returned", status: lending.LoanStatusReturned, today: deadline.AddDays(3), due: false},
		{name: "returned late", status: lending.LoanStatusReturnedLate, today: deadline.AddDays(3), due: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			loan := FixtureLoan(t, GivenUniqueID(t), GivenUniqueID(t), borrowDay, tc.status)

			marked, due := lifecycle.DecideOverdue(loan, tc.today)

			assert.Equal(t, tc.due, due)
			if tc.due {
				assert.Equal(t, lending.LoanStatusOverdue, marked.Status)
				assert.Nil(t, marked.ActualReturnDate)
			} else {
				assert.Equal(t, loan, marked)
			}
		})
	}
}
