// repository/rental/repo.go
package rentalrepo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AntonBabychP1T/ca/model"
	"github.com/AntonBabychP1T/ca/util/database"
)

const rentalCols = `id, rental_date, return_date, actual_return_date, car_id, user_id, deleted`

type Repo interface {
	Insert(ctx context.Context, tx pgx.Tx, r *model.Rental) error
	ByIDAndUser(ctx context.Context, id, userID int64) (*model.Rental, error)
	ByIDAndUserTx(ctx context.Context, tx pgx.Tx, id, userID int64) (*model.Rental, error)
	ByID(ctx context.Context, id int64) (*model.Rental, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Rental, error)
	MarkReturned(ctx context.Context, tx pgx.Tx, id int64, returned model.Date) (bool, error)
	ListOverdue(ctx context.Context, today model.Date) ([]model.Rental, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, tx pgx.Tx, m *model.Rental) error {
	return tx.QueryRow(ctx, `
		INSERT INTO rentals(rental_date, return_date, car_id, user_id)
		VALUES ($1,$2,$3,$4)
		RETURNING id`,
		m.RentalDate.Time, m.ReturnDate.Time, m.CarID, m.UserID,
	).Scan(&m.ID)
}

func scanRental(row pgx.Row) (*model.Rental, error) {
	m := &model.Rental{}
	var rentalDate, returnDate time.Time
	var actual *time.Time
	err := row.Scan(&m.ID, &rentalDate, &returnDate, &actual, &m.CarID, &m.UserID, &m.Deleted)
	if err != nil {
		return nil, err
	}
	m.RentalDate = model.DateOf(rentalDate)
	m.ReturnDate = model.DateOf(returnDate)
	if actual != nil {
		d := model.DateOf(*actual)
		m.ActualReturnDate = &d
	}
	return m, nil
}

func (r *repo) ByIDAndUser(ctx context.Context, id, userID int64) (*model.Rental, error) {
	return scanRental(r.db.Pool.QueryRow(ctx, `
		SELECT `+rentalCols+`
		FROM rentals
		WHERE id = $1 AND user_id = $2 AND deleted = FALSE`,
		id, userID))
}

// ByIDAndUserTx locks the rental row so a concurrent return on the same
// rental waits and then sees actual_return_date already set.
func (r *repo) ByIDAndUserTx(ctx context.Context, tx pgx.Tx, id, userID int64) (*model.Rental, error) {
	return scanRental(tx.QueryRow(ctx, `
		SELECT `+rentalCols+`
		FROM rentals
		WHERE id = $1 AND user_id = $2 AND deleted = FALSE
		FOR UPDATE`,
		id, userID))
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Rental, error) {
	return scanRental(r.db.Pool.QueryRow(ctx, `
		SELECT `+rentalCols+`
		FROM rentals
		WHERE id = $1 AND deleted = FALSE`,
		id))
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]model.Rental, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+rentalCols+`
		FROM rentals
		WHERE user_id = $1 AND deleted = FALSE
		ORDER BY id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRentals(rows)
}

func (r *repo) MarkReturned(ctx context.Context, tx pgx.Tx, id int64, returned model.Date) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE rentals
		SET actual_return_date = $2
		WHERE id = $1 AND actual_return_date IS NULL`,
		id, returned.Time)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repo) ListOverdue(ctx context.Context, today model.Date) ([]model.Rental, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+rentalCols+`
		FROM rentals
		WHERE return_date < $1 AND actual_return_date IS NULL AND deleted = FALSE
		ORDER BY id`,
		today.Time)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRentals(rows)
}

func collectRentals(rows pgx.Rows) ([]model.Rental, error) {
	var out []model.Rental
	for rows.Next() {
		m, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
