package postgresengine

import (
	"context"
	"errors"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

const (
	colID        = "id"
	colTitle     = "title"
	colAuthor    = "author"
	colISBN      = "isbn"
	colGenre     = "genre"
	colQuantity  = "quantity"
	colAvailable = "available"
	colVersion   = "version"
	colExcluded  = "excluded"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type catalogStore struct {
	session session
	table   string
}

func (s catalogStore) Get(ctx context.Context, id uuid.UUID) (lending.BookEntry, bool, error) {
	books, err := s.selectBooks(ctx, goqu.C(colID).Eq(id.String()))
	if err != nil {
		return lending.BookEntry{}, false, err
	}

	if len(books) == 0 {
		return lending.BookEntry{}, false, nil
	}

	return books[0], true, nil
}

func (s catalogStore) GetAll(ctx context.Context) ([]lending.BookEntry, error) {
	return s.selectBooks(ctx)
}

func (s catalogStore) GetAvailable(ctx context.Context) ([]lending.BookEntry, error) {
	return s.selectBooks(ctx, goqu.C(colAvailable).IsTrue())
}

func (s catalogStore) Search(ctx context.Context, keyword string) ([]lending.BookEntry, error) {
	pattern := "%" + likeEscaper.Replace(keyword) + "%"

	return s.selectBooks(ctx, goqu.Or(
		goqu.C(colTitle).ILike(pattern),
		goqu.C(colAuthor).ILike(pattern),
	))
}

// Save upserts the descriptive columns. The availability of an existing row is left untouched.
func (s catalogStore) Save(ctx context.Context, book lending.BookEntry) error {
	excluded := func(col string) exp.LiteralExpression {
		return goqu.L("?", goqu.I(colExcluded+"."+col))
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.table).
		Rows(goqu.Record{
			colID:        book.ID.String(),
			colTitle:     book.Title,
			colAuthor:    book.Author,
			colISBN:      book.ISBN,
			colGenre:     book.Genre,
			colQuantity:  book.Quantity,
			colAvailable: true,
			colVersion:   1,
		}).
		OnConflict(goqu.DoUpdate(colID, goqu.Record{
			colTitle:    excluded(colTitle),
			colAuthor:   excluded(colAuthor),
			colISBN:     excluded(colISBN),
			colGenre:    excluded(colGenre),
			colQuantity: excluded(colQuantity),
			colVersion:  goqu.L("? + 1", goqu.I(s.table+"."+colVersion)),
		}))

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return s.session.buildFailed(ctx, s.table, toSQLErr)
	}

	_, err := s.session.exec(ctx, s.table, sqlQuery, lending.ErrSavingFailed)

	return err
}

func (s catalogStore) Delete(ctx context.Context, id uuid.UUID) error {
	deleteStmt := goqu.Dialect(dialectPostgres).
		Delete(s.table).
		Where(goqu.C(colID).Eq(id.String()))

	sqlQuery, _, toSQLErr := deleteStmt.ToSQL()
	if toSQLErr != nil {
		return s.session.buildFailed(ctx, s.table, toSQLErr)
	}

	_, err := s.session.exec(ctx, s.table, sqlQuery, lending.ErrDeletingFailed)

	return err
}

// ClaimAvailability flips available from true to false in one conditional UPDATE.
// Zero affected rows means the entry is either unavailable or missing; a follow-up read tells which.
func (s catalogStore) ClaimAvailability(ctx context.Context, id uuid.UUID) (bool, error) {
	rowsAffected, err := s.setAvailability(ctx, id, false, goqu.C(colAvailable).IsTrue())
	if err != nil {
		return false, err
	}

	if rowsAffected == 1 {
		return true, nil
	}

	_, found, getErr := s.Get(ctx, id)
	if getErr != nil {
		return false, getErr
	}

	if !found {
		return false, lending.ErrBookNotFound
	}

	return false, nil
}

func (s catalogStore) ReleaseAvailability(ctx context.Context, id uuid.UUID) error {
	rowsAffected, err := s.setAvailability(ctx, id, true)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return lending.ErrBookNotFound
	}

	return nil
}

func (s catalogStore) setAvailability(
	ctx context.Context,
	id uuid.UUID,
	available bool,
	extraConditions ...exp.Expression,
) (int64, error) {

	conditions := append([]exp.Expression{goqu.C(colID).Eq(id.String())}, extraConditions...)

	updateStmt := goqu.Dialect(dialectPostgres).
		Update(s.table).
		Set(goqu.Record{
			colAvailable: available,
			colVersion:   goqu.L("? + 1", goqu.I(colVersion)),
		}).
		Where(conditions...)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return 0, s.session.buildFailed(ctx, s.table, toSQLErr)
	}

	return s.session.exec(ctx, s.table, sqlQuery, lending.ErrSavingFailed)
}

func (s catalogStore) selectBooks(ctx context.Context, conditions ...exp.Expression) ([]lending.BookEntry, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(s.table).
		Select(
			goqu.L(castText, goqu.I(colID)),
			colTitle, colAuthor, colISBN, colGenre, colQuantity, colAvailable, colVersion,
		).
		Order(goqu.I(colTitle).Asc(), goqu.I(colID).Asc())

	if len(conditions) > 0 {
		selectStmt = selectStmt.Where(conditions...)
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, s.session.buildFailed(ctx, s.table, toSQLErr)
	}

	rows, err := s.session.query(ctx, s.table, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer s.session.closeRows(ctx, rows)

	books := make([]lending.BookEntry, 0)

	for rows.Next() {
		var (
			rawID string
			book  lending.BookEntry
		)

		scanErr := rows.Scan(&rawID, &book.Title, &book.Author, &book.ISBN, &book.Genre, &book.Quantity, &book.Available, &book.Version)
		if scanErr != nil {
			return nil, s.session.scanFailed(ctx, s.table, scanErr)
		}

		id, parseErr := uuid.Parse(rawID)
		if parseErr != nil {
			return nil, s.session.scanFailed(ctx, s.table, errors.Join(lending.ErrInvalidStoredValue, parseErr))
		}

		book.ID = id
		books = append(books, book)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, s.session.scanFailed(ctx, s.table, rowsErr)
	}

	return books, nil
}
