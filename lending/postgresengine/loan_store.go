package postgresengine

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

const (
	colBorrowerID       = "borrower_id"
	colBookID           = "book_id"
	colBorrowDate       = "borrow_date"
	colReturnDeadline   = "return_deadline"
	colActualReturnDate = "actual_return_date"
	colStatus           = "status"
)

type loanStore struct {
	session session
	table   string
}

// loanRow is the raw shape of one selected loan row. Ids and dates are selected as text.
type loanRow struct {
	id               string
	borrowerID       string
	bookID           string
	borrowDate       string
	returnDeadline   string
	actualReturnDate *string
	status           string
	version          int64
}

func (s loanStore) Get(ctx context.Context, id uuid.UUID) (lending.LoanRecord, bool, error) {
	loans, err := s.selectLoans(ctx, []exp.OrderedExpression{goqu.I(colID).Asc()}, goqu.C(colID).Eq(id.String()))
	if err != nil {
		return lending.LoanRecord{}, false, err
	}

	if len(loans) == 0 {
		return lending.LoanRecord{}, false, nil
	}

	return loans[0], true, nil
}

func (s loanStore) GetAll(ctx context.Context) (lending.LoanRecords, error) {
	return s.selectLoans(ctx, oldestFirst())
}

func (s loanStore) GetByBorrower(ctx context.Context, borrowerID uuid.UUID) (lending.LoanRecords, error) {
	return s.selectLoans(ctx,
		[]exp.OrderedExpression{goqu.I(colBorrowDate).Desc(), goqu.I(colID).Desc()},
		goqu.C(colBorrowerID).Eq(borrowerID.String()),
	)
}

func (s loanStore) GetByStatus(ctx context.Context, status lending.LoanStatus) (lending.LoanRecords, error) {
	return s.selectLoans(ctx, oldestFirst(), goqu.C(colStatus).Eq(status.String()))
}

// Save inserts a new loan (Version 0) or updates an existing one conditional on its version.
func (s loanStore) Save(ctx context.Context, loan lending.LoanRecord) (lending.LoanRecord, error) {
	if loan.Version == 0 {
		return s.insert(ctx, loan)
	}

	return s.update(ctx, loan)
}

func (s loanStore) insert(ctx context.Context, loan lending.LoanRecord) (lending.LoanRecord, error) {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.table).
		Rows(goqu.Record{
			colID:               loan.ID.String(),
			colBorrowerID:       loan.BorrowerID.String(),
			colBookID:           loan.BookID.String(),
			colBorrowDate:       loan.BorrowDate.String(),
			colReturnDeadline:   loan.ReturnDeadline.String(),
			colActualReturnDate: dateOrNil(loan.ActualReturnDate),
			colStatus:           loan.Status.String(),
			colVersion:          1,
		})

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return lending.LoanRecord{}, s.session.buildFailed(ctx, s.table, toSQLErr)
	}

	if _, err := s.session.exec(ctx, s.table, sqlQuery, lending.ErrSavingFailed); err != nil {
		return lending.LoanRecord{}, err
	}

	loan.Version = 1

	return loan, nil
}

func (s loanStore) update(ctx context.Context, loan lending.LoanRecord) (lending.LoanRecord, error) {
	updateStmt := goqu.Dialect(dialectPostgres).
		Update(s.table).
		Set(goqu.Record{
			colActualReturnDate: dateOrNil(loan.ActualReturnDate),
			colStatus:           loan.Status.String(),
			colVersion:          goqu.L("? + 1", goqu.I(colVersion)),
		}).
		Where(
			goqu.C(colID).Eq(loan.ID.String()),
			goqu.C(colVersion).Eq(loan.Version),
		)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return lending.LoanRecord{}, s.session.buildFailed(ctx, s.table, toSQLErr)
	}

	rowsAffected, err := s.session.exec(ctx, s.table, sqlQuery, lending.ErrSavingFailed)
	if err != nil {
		return lending.LoanRecord{}, err
	}

	if rowsAffected == 0 {
		s.session.obs.logInfo(ctx, logMsgConcurrencyConflict,
			logAttrLoanID, loan.ID.String(),
			logAttrExpectedVersion, loan.Version,
			logAttrRowsAffected, rowsAffected,
		)
		s.session.obs.recordConcurrencyConflict(ctx, s.table, operationExec)

		return lending.LoanRecord{}, lending.ErrConcurrencyConflict
	}

	loan.Version++

	return loan, nil
}

func (s loanStore) selectLoans(
	ctx context.Context,
	order []exp.OrderedExpression,
	conditions ...exp.Expression,
) (lending.LoanRecords, error) {

	selectStmt := goqu.Dialect(dialectPostgres).
		From(s.table).
		Select(
			goqu.L(castText, goqu.I(colID)),
			goqu.L(castText, goqu.I(colBorrowerID)),
			goqu.L(castText, goqu.I(colBookID)),
			goqu.L(castText, goqu.I(colBorrowDate)),
			goqu.L(castText, goqu.I(colReturnDeadline)),
			goqu.L(castText, goqu.I(colActualReturnDate)),
			colStatus,
			colVersion,
		).
		Order(order...)

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

	loans := make(lending.LoanRecords, 0)

	for rows.Next() {
		var row loanRow

		scanErr := rows.Scan(
			&row.id, &row.borrowerID, &row.bookID,
			&row.borrowDate, &row.returnDeadline, &row.actualReturnDate,
			&row.status, &row.version,
		)
		if scanErr != nil {
			return nil, s.session.scanFailed(ctx, s.table, scanErr)
		}

		loan, buildErr := row.toLoanRecord()
		if buildErr != nil {
			return nil, s.session.scanFailed(ctx, s.table, buildErr)
		}

		loans = append(loans, loan)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, s.session.scanFailed(ctx, s.table, rowsErr)
	}

	return loans, nil
}

func (r loanRow) toLoanRecord() (lending.LoanRecord, error) {
	var parseErrs []error

	parseID := func(raw string) uuid.UUID {
		id, err := uuid.Parse(raw)
		parseErrs = append(parseErrs, err)
		return id
	}

	parseDate := func(raw string) lending.Date {
		d, err := lending.ParseDate(raw)
		parseErrs = append(parseErrs, err)
		return d
	}

	loan := lending.LoanRecord{
		ID:             parseID(r.id),
		BorrowerID:     parseID(r.borrowerID),
		BookID:         parseID(r.bookID),
		BorrowDate:     parseDate(r.borrowDate),
		ReturnDeadline: parseDate(r.returnDeadline),
		Version:        r.version,
	}

	if r.actualReturnDate != nil {
		returned := parseDate(*r.actualReturnDate)
		loan.ActualReturnDate = &returned
	}

	status, statusErr := lending.ParseLoanStatus(r.status)
	parseErrs = append(parseErrs, statusErr)
	loan.Status = status

	if err := errors.Join(parseErrs...); err != nil {
		return lending.LoanRecord{}, errors.Join(lending.ErrInvalidStoredValue, err)
	}

	return loan, nil
}

func oldestFirst() []exp.OrderedExpression {
	return []exp.OrderedExpression{goqu.I(colBorrowDate).Asc(), goqu.I(colID).Asc()}
}

func dateOrNil(d *lending.Date) any {
	if d == nil {
		return nil
	}

	return d.String()
}
