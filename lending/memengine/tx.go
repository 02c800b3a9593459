package memengine

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

// tx is an overlay over the engine's committed maps. A nil book pointer marks a staged delete.
// The caller holds the engine lock for the lifetime of a tx.
type tx struct {
	engine   *Engine
	books    map[uuid.UUID]*lending.BookEntry
	loans    map[uuid.UUID]lending.LoanRecord
	finished bool
}

func newTx(e *Engine) *tx {
	return &tx{
		engine: e,
		books:  make(map[uuid.UUID]*lending.BookEntry),
		loans:  make(map[uuid.UUID]lending.LoanRecord),
	}
}

func (t *tx) Catalog() lending.CatalogStore { return txCatalog{t: t} }

func (t *tx) Loans() lending.LoanStore { return txLoans{t: t} }

func (t *tx) finish() {
	t.finished = true
}

func (t *tx) commit() {
	for id, book := range t.books {
		if book == nil {
			delete(t.engine.books, id)
			continue
		}

		t.engine.books[id] = *book
	}

	for id, loan := range t.loans {
		t.engine.loans[id] = loan
	}
}

func (t *tx) check(ctx context.Context) error {
	if t.finished {
		return errUnitOfWorkFinished
	}

	if err := ctx.Err(); err != nil {
		return errors.Join(lending.ErrQueryingFailed, err)
	}

	return nil
}

func (t *tx) book(id uuid.UUID) (lending.BookEntry, bool) {
	if staged, ok := t.books[id]; ok {
		if staged == nil {
			return lending.BookEntry{}, false
		}

		return *staged, true
	}

	book, ok := t.engine.books[id]

	return book, ok
}

func (t *tx) putBook(book lending.BookEntry) {
	t.books[book.ID] = &book
}

func (t *tx) allBooks(keep func(lending.BookEntry) bool) []lending.BookEntry {
	books := make([]lending.BookEntry, 0, len(t.engine.books))

	for id := range t.engine.books {
		if _, staged := t.books[id]; staged {
			continue
		}

		if book := t.engine.books[id]; keep(book) {
			books = append(books, book)
		}
	}

	for _, staged := range t.books {
		if staged != nil && keep(*staged) {
			books = append(books, *staged)
		}
	}

	sort.Slice(books, func(i, j int) bool {
		if books[i].Title != books[j].Title {
			return books[i].Title < books[j].Title
		}

		return books[i].ID.String() < books[j].ID.String()
	})

	return books
}

func (t *tx) loan(id uuid.UUID) (lending.LoanRecord, bool) {
	if staged, ok := t.loans[id]; ok {
		return cloneLoan(staged), true
	}

	loan, ok := t.engine.loans[id]

	return cloneLoan(loan), ok
}

func (t *tx) allLoans(keep func(lending.LoanRecord) bool) lending.LoanRecords {
	loans := make(lending.LoanRecords, 0, len(t.engine.loans))

	for id, loan := range t.engine.loans {
		if _, staged := t.loans[id]; staged {
			continue
		}

		if keep(loan) {
			loans = append(loans, cloneLoan(loan))
		}
	}

	for _, staged := range t.loans {
		if keep(staged) {
			loans = append(loans, cloneLoan(staged))
		}
	}

	sortOldestFirst(loans)

	return loans
}

func sortOldestFirst(loans lending.LoanRecords) {
	sort.Slice(loans, func(i, j int) bool {
		if !loans[i].BorrowDate.Equal(loans[j].BorrowDate) {
			return loans[i].BorrowDate.Before(loans[j].BorrowDate)
		}

		return loans[i].ID.String() < loans[j].ID.String()
	})
}

func sortNewestFirst(loans lending.LoanRecords) {
	sort.Slice(loans, func(i, j int) bool {
		if !loans[i].BorrowDate.Equal(loans[j].BorrowDate) {
			return loans[i].BorrowDate.After(loans[j].BorrowDate)
		}

		return loans[i].ID.String() > loans[j].ID.String()
	})
}

func cloneLoan(loan lending.LoanRecord) lending.LoanRecord {
	if loan.ActualReturnDate != nil {
		returned := *loan.ActualReturnDate
		loan.ActualReturnDate = &returned
	}

	return loan
}
