package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/AntonBabychP1T/ca/model"
	"github.com/AntonBabychP1T/ca/util/apperr"
)

// Ledger is the only path that mutates a car's available-unit count.
// Both operations run on the caller's transaction, so reserving a unit
// and inserting the rental commit or roll back together.
type Ledger interface {
	Reserve(ctx context.Context, tx pgx.Tx, carID int64) (*model.Car, error)
	Release(ctx context.Context, tx pgx.Tx, carID int64) (*model.Car, error)
}

type Repo interface {
	ReserveUnit(ctx context.Context, tx pgx.Tx, id int64) (*model.Car, error)
	ReleaseUnit(ctx context.Context, tx pgx.Tx, id int64) (*model.Car, error)
	ExistsTx(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
}

type ledger struct{ cars Repo }

func New(cars Repo) Ledger { return &ledger{cars: cars} }

func (l *ledger) Reserve(ctx context.Context, tx pgx.Tx, carID int64) (*model.Car, error) {
	car, err := l.cars.ReserveUnit(ctx, tx, carID)
	if err == nil {
		return car, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Wrap(apperr.Store, "", err)
	}

	// The conditional update matched nothing: either the car is gone or
	// the last unit is taken.
	exists, err := l.cars.ExistsTx(ctx, tx, carID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	if !exists {
		return nil, apperr.New(apperr.NotFound, "")
	}
	return nil, apperr.New(apperr.Conflict, apperr.ReasonOutOfStock)
}

func (l *ledger) Release(ctx context.Context, tx pgx.Tx, carID int64) (*model.Car, error) {
	car, err := l.cars.ReleaseUnit(ctx, tx, carID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "")
		}
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	return car, nil
}
