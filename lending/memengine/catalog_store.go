package memengine

import (
	"context"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

// txCatalog is the catalog store bound to one unit of work.
type txCatalog struct {
	t *tx
}

func (c txCatalog) Get(ctx context.Context, id uuid.UUID) (lending.BookEntry, bool, error) {
	if err := c.t.check(ctx); err != nil {
		return lending.BookEntry{}, false, err
	}

	book, found := c.t.book(id)

	return book, found, nil
}

func (c txCatalog) GetAll(ctx context.Context) ([]lending.BookEntry, error) {
	if err := c.t.check(ctx); err != nil {
		return nil, err
	}

	return c.t.allBooks(func(lending.BookEntry) bool { return true }), nil
}

func (c txCatalog) GetAvailable(ctx context.Context) ([]lending.BookEntry, error) {
	if err := c.t.check(ctx); err != nil {
		return nil, err
	}

	return c.t.allBooks(func(b lending.BookEntry) bool { return b.Available }), nil
}

func (c txCatalog) Search(ctx context.Context, keyword string) ([]lending.BookEntry, error) {
	if err := c.t.check(ctx); err != nil {
		return nil, err
	}

	return c.t.allBooks(func(b lending.BookEntry) bool { return b.Matches(keyword) }), nil
}

func (c txCatalog) Save(ctx context.Context, book lending.BookEntry) error {
	if err := c.t.check(ctx); err != nil {
		return err
	}

	stored, found := c.t.book(book.ID)
	if !found {
		book.Available = true
		book.Version = 1
		c.t.putBook(book)

		return nil
	}

	book.Available = stored.Available
	book.Version = stored.Version + 1
	c.t.putBook(book)

	return nil
}

func (c txCatalog) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.t.check(ctx); err != nil {
		return err
	}

	c.t.books[id] = nil

	return nil
}

func (c txCatalog) ClaimAvailability(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := c.t.check(ctx); err != nil {
		return false, err
	}

	book, found := c.t.book(id)
	if !found {
		return false, lending.ErrBookNotFound
	}

	if !book.Available {
		return false, nil
	}

	book.Available = false
	book.Version++
	c.t.putBook(book)

	return true, nil
}

func (c txCatalog) ReleaseAvailability(ctx context.Context, id uuid.UUID) error {
	if err := c.t.check(ctx); err != nil {
		return err
	}

	book, found := c.t.book(id)
	if !found {
		return lending.ErrBookNotFound
	}

	book.Available = true
	book.Version++
	c.t.putBook(book)

	return nil
}

// catalogStore is the engine-level catalog store. Reads see committed state only.
type catalogStore struct {
	engine *Engine
}

func (s catalogStore) Get(ctx context.Context, id uuid.UUID) (book lending.BookEntry, found bool, err error) {
	err = s.engine.read(ctx, func(t *tx) error {
		book, found, err = t.Catalog().Get(ctx, id)
		return err
	})

	return book, found, err
}

func (s catalogStore) GetAll(ctx context.Context) (books []lending.BookEntry, err error) {
	err = s.engine.read(ctx, func(t *tx) error {
		books, err = t.Catalog().GetAll(ctx)
		return err
	})

	return books, err
}

func (s catalogStore) GetAvailable(ctx context.Context) (books []lending.BookEntry, err error) {
	err = s.engine.read(ctx, func(t *tx) error {
		books, err = t.Catalog().GetAvailable(ctx)
		return err
	})

	return books, err
}

func (s catalogStore) Search(ctx context.Context, keyword string) (books []lending.BookEntry, err error) {
	err = s.engine.read(ctx, func(t *tx) error {
		books, err = t.Catalog().Search(ctx, keyword)
		return err
	})

	return books, err
}

func (s catalogStore) Save(ctx context.Context, book lending.BookEntry) error {
	return s.engine.write(ctx, func(t *tx) error {
		return t.Catalog().Save(ctx, book)
	})
}

func (s catalogStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.engine.write(ctx, func(t *tx) error {
		return t.Catalog().Delete(ctx, id)
	})
}

func (s catalogStore) ClaimAvailability(ctx context.Context, id uuid.UUID) (claimed bool, err error) {
	err = s.engine.write(ctx, func(t *tx) error {
		claimed, err = t.Catalog().ClaimAvailability(ctx, id)
		return err
	})

	return claimed, err
}

func (s catalogStore) ReleaseAvailability(ctx context.Context, id uuid.UUID) error {
	return s.engine.write(ctx, func(t *tx) error {
		return t.Catalog().ReleaseAvailability(ctx, id)
	})
}
