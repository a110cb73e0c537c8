package carrepo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/AntonBabychP1T/ca/model"
	"github.com/AntonBabychP1T/ca/util/database"
)

const carCols = `id, model, brand, type, inventory, fee, deleted`

type Repo interface {
	Create(ctx context.Context, c *model.Car) error
	ByID(ctx context.Context, id int64) (*model.Car, error)
	List(ctx context.Context) ([]model.Car, error)
	Update(ctx context.Context, c *model.Car) error
	SoftDelete(ctx context.Context, id int64) error

	// Inventory mutation. Both run on the caller's transaction so a
	// failed rental insert rolls the counter back with it.
	ReserveUnit(ctx context.Context, tx pgx.Tx, id int64) (*model.Car, error)
	ReleaseUnit(ctx context.Context, tx pgx.Tx, id int64) (*model.Car, error)
	ExistsTx(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db: db} }

func (r *repo) Create(ctx context.Context, c *model.Car) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO cars(model, brand, type, inventory, fee)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		c.Model, c.Brand, c.Type, c.Inventory, c.Fee,
	).Scan(&c.ID)
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Car, error) {
	c := &model.Car{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT `+carCols+`
		FROM cars
		WHERE id = $1 AND deleted = FALSE`,
		id,
	).Scan(&c.ID, &c.Model, &c.Brand, &c.Type, &c.Inventory, &c.Fee, &c.Deleted)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repo) List(ctx context.Context) ([]model.Car, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+carCols+`
		FROM cars
		WHERE deleted = FALSE
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Car
	for rows.Next() {
		var c model.Car
		if err := rows.Scan(&c.ID, &c.Model, &c.Brand, &c.Type, &c.Inventory, &c.Fee, &c.Deleted); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repo) Update(ctx context.Context, c *model.Car) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE cars
		SET model = $2, brand = $3, type = $4, fee = $5
		WHERE id = $1 AND deleted = FALSE`,
		c.ID, c.Model, c.Brand, c.Type, c.Fee)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repo) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE cars
		SET deleted = TRUE
		WHERE id = $1 AND deleted = FALSE`,
		id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ReserveUnit decrements inventory only while at least one unit is left;
// the conditional UPDATE takes the row lock, so of two concurrent
// reservations on the last unit exactly one commits.
func (r *repo) ReserveUnit(ctx context.Context, tx pgx.Tx, id int64) (*model.Car, error) {
	c := &model.Car{}
	err := tx.QueryRow(ctx, `
		UPDATE cars
		SET inventory = inventory - 1
		WHERE id = $1 AND deleted = FALSE AND inventory >= 1
		RETURNING `+carCols,
		id,
	).Scan(&c.ID, &c.Model, &c.Brand, &c.Type, &c.Inventory, &c.Fee, &c.Deleted)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repo) ReleaseUnit(ctx context.Context, tx pgx.Tx, id int64) (*model.Car, error) {
	c := &model.Car{}
	err := tx.QueryRow(ctx, `
		UPDATE cars
		SET inventory = inventory + 1
		WHERE id = $1 AND deleted = FALSE
		RETURNING `+carCols,
		id,
	).Scan(&c.ID, &c.Model, &c.Brand, &c.Type, &c.Inventory, &c.Fee, &c.Deleted)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repo) ExistsTx(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM cars WHERE id = $1 AND deleted = FALSE)`,
		id,
	).Scan(&exists)
	return exists, err
}
