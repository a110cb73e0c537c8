package rentalsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/AntonBabychP1T/ca/model"
	"github.com/AntonBabychP1T/ca/service/inventory"
	"github.com/AntonBabychP1T/ca/util/apperr"
)

type Service interface {
	// Create reserves a unit of the car and opens an active rental.
	Create(ctx context.Context, userID, carID int64, rentalDate, returnDate model.Date) (*model.Rental, error)

	// List returns the user's rentals split by the active/returned partition.
	List(ctx context.Context, userID int64, active bool) ([]model.Rental, error)

	Get(ctx context.Context, id, userID int64) (*model.Rental, error)

	// Return closes an active rental and releases its car unit.
	Return(ctx context.Context, id, userID int64) (*model.Rental, error)

	// CheckOverdue is the daily sweep entry point.
	CheckOverdue(ctx context.Context) error
}

type Repo interface {
	Insert(ctx context.Context, tx pgx.Tx, r *model.Rental) error
	ByIDAndUser(ctx context.Context, id, userID int64) (*model.Rental, error)
	ByIDAndUserTx(ctx context.Context, tx pgx.Tx, id, userID int64) (*model.Rental, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Rental, error)
	MarkReturned(ctx context.Context, tx pgx.Tx, id int64, returned model.Date) (bool, error)
	ListOverdue(ctx context.Context, today model.Date) ([]model.Rental, error)
}

// PaymentChecker feeds the borrowing freeze: one EXPIRED payment and the
// user cannot open new rentals until it is resolved.
type PaymentChecker interface {
	HasAnyExpired(ctx context.Context, userID int64) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, message string)
	NotifyAll(ctx context.Context, message string)
}

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type service struct {
	db       TxBeginner
	r        Repo
	inv      inventory.Ledger
	payments PaymentChecker
	n        Notifier
	now      func() model.Date
}

func New(db TxBeginner, r Repo, inv inventory.Ledger, payments PaymentChecker, n Notifier) Service {
	return &service{db: db, r: r, inv: inv, payments: payments, n: n, now: model.Today}
}

func (s *service) Create(ctx context.Context, userID, carID int64, rentalDate, returnDate model.Date) (rental *model.Rental, err error) {
	if !returnDate.After(rentalDate) {
		return nil, apperr.New(apperr.InvalidState, apperr.ReasonInvalidDateRange)
	}

	frozen, err := s.payments.HasAnyExpired(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	if frozen {
		return nil, apperr.New(apperr.Forbidden, apperr.ReasonExpiredPayment)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = s.inv.Reserve(ctx, tx, carID); err != nil {
		if apperr.ReasonOf(err) == apperr.ReasonOutOfStock {
			s.n.Notify(ctx, userID, fmt.Sprintf("There is no free available car with id: %d", carID))
			err = apperr.New(apperr.Conflict, apperr.ReasonNoAvailableCar)
		}
		return nil, err
	}

	rental = &model.Rental{
		RentalDate: rentalDate,
		ReturnDate: returnDate,
		CarID:      carID,
		UserID:     userID,
	}
	if err = s.r.Insert(ctx, tx, rental); err != nil {
		err = apperr.Wrap(apperr.Store, "", err)
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		err = apperr.Wrap(apperr.Store, "", err)
		return nil, err
	}

	s.n.Notify(ctx, userID, fmt.Sprintf(
		"Your rental created! Rental ID: %d, Car ID: %d, from %s to %s",
		rental.ID, carID, rentalDate, returnDate))
	return rental, nil
}

func (s *service) List(ctx context.Context, userID int64, active bool) ([]model.Rental, error) {
	all, err := s.r.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	out := make([]model.Rental, 0, len(all))
	for _, r := range all {
		if r.Active() == active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id, userID int64) (*model.Rental, error) {
	rental, err := s.r.ByIDAndUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "")
		}
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	return rental, nil
}

func (s *service) Return(ctx context.Context, id, userID int64) (rental *model.Rental, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	rental, err = s.r.ByIDAndUserTx(ctx, tx, id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = apperr.New(apperr.NotFound, "")
		} else {
			err = apperr.Wrap(apperr.Store, "", err)
		}
		return nil, err
	}
	if !rental.Active() {
		err = apperr.New(apperr.Conflict, apperr.ReasonAlreadyReturned)
		return nil, err
	}

	if _, err = s.inv.Release(ctx, tx, rental.CarID); err != nil {
		return nil, err
	}

	today := s.now()
	ok, err := s.r.MarkReturned(ctx, tx, id, today)
	if err != nil {
		err = apperr.Wrap(apperr.Store, "", err)
		return nil, err
	}
	if !ok {
		err = apperr.New(apperr.Conflict, apperr.ReasonAlreadyReturned)
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		err = apperr.Wrap(apperr.Store, "", err)
		return nil, err
	}

	rental.ActualReturnDate = &today
	s.n.Notify(ctx, userID, fmt.Sprintf("You successfully return your rental with id: %d", id))
	return rental, nil
}

func (s *service) CheckOverdue(ctx context.Context) error {
	today := s.now()
	overdue, err := s.r.ListOverdue(ctx, today)
	if err != nil {
		return apperr.Wrap(apperr.Store, "", err)
	}
	if len(overdue) == 0 {
		// Operators want a heartbeat either way.
		s.n.NotifyAll(ctx, "No rentals overdue today!")
		return nil
	}
	for _, r := range overdue {
		s.n.Notify(ctx, r.UserID, overdueMessage(&r))
	}
	return nil
}

func overdueMessage(r *model.Rental) string {
	return fmt.Sprintf("Overdue rental alert! Rental ID: %d, User ID: %d, Car ID: %d, Return Date: %s",
		r.ID, r.UserID, r.CarID, r.ReturnDate)
}
