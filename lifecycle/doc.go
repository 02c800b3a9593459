// Package lifecycle drives the loan state machine on top of a lending.Engine.
//
// A loan starts BORROWED, may become OVERDUE through SweepOverdue, and ends as RETURNED or RETURNED_LATE.
// Borrow and ReturnLoan change the loan record and the book's availability in one unit of work, so
// a book is unavailable exactly while it has an active loan. Optimistic concurrency conflicts on loan
// records are retried with exponential backoff; business rejections are returned at once.
//
// Basic usage:
//
//	manager, err := lifecycle.NewManager(engine, lifecycle.WithLoanPeriod(14))
//	result, err := manager.Borrow(ctx, borrowerID, bookID)
//	if errors.Is(err, lending.ErrBookUnavailable) {
//		// someone else holds the book
//	}
//	_, err = manager.ReturnLoan(ctx, result.Value.ID)
package lifecycle
