package carsvc

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/AntonBabychP1T/ca/model"
	"github.com/AntonBabychP1T/ca/util/apperr"
)

type Repo interface {
	Create(ctx context.Context, c *model.Car) error
	ByID(ctx context.Context, id int64) (*model.Car, error)
	List(ctx context.Context) ([]model.Car, error)
	Update(ctx context.Context, c *model.Car) error
	SoftDelete(ctx context.Context, id int64) error
}

type Service interface {
	Create(ctx context.Context, c *model.Car) (*model.Car, error)
	List(ctx context.Context) ([]model.Car, error)
	Detail(ctx context.Context, id int64) (*model.Car, error)
	Update(ctx context.Context, c *model.Car) (*model.Car, error)
	Delete(ctx context.Context, id int64) error
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

var errBadCar = errors.New("bad car input")

func validate(c *model.Car) error {
	if c.Model == "" || c.Brand == "" {
		return errBadCar
	}
	if !c.Type.Valid() {
		return errBadCar
	}
	if c.Inventory < 0 || !c.Fee.IsPositive() {
		return errBadCar
	}
	return nil
}

func (s *service) Create(ctx context.Context, c *model.Car) (*model.Car, error) {
	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.r.Create(ctx, c); err != nil {
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	return c, nil
}

func (s *service) List(ctx context.Context) ([]model.Car, error) {
	return s.r.List(ctx)
}

func (s *service) Detail(ctx context.Context, id int64) (*model.Car, error) {
	c, err := s.r.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "")
		}
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	return c, nil
}

func (s *service) Update(ctx context.Context, c *model.Car) (*model.Car, error) {
	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.r.Update(ctx, c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "")
		}
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	return c, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.r.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.NotFound, "")
		}
		return apperr.Wrap(apperr.Store, "", err)
	}
	return nil
}
