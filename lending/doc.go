// Package lending provides the core abstractions and types of the library lending engine.
//
// This package defines the domain model shared by all store implementations and by the
// lifecycle manager: catalog entries, loan records with their status lifecycle, calendar
// dates, the error taxonomy, and the store and unit-of-work contracts.
//
// The engine tracks binary availability per catalog entry and one status per loan record:
//   - BookEntry: a catalog row, available or lent out
//   - LoanRecord: one borrowing event and its resolution (append-only history)
//   - UnitOfWork: transaction-scoped access to both stores for exactly one operation
//
// Common usage pattern:
//
//	err := engine.WithinUnitOfWork(ctx, func(ctx context.Context, uow lending.UnitOfWork) error {
//		claimed, err := uow.Catalog().ClaimAvailability(ctx, bookID)
//		if err != nil {
//			return err
//		}
//		if !claimed {
//			return lending.ErrBookUnavailable
//		}
//
//		_, err = uow.Loans().Save(ctx, loan)
//		return err
//	})
package lending
