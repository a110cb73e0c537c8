package paymentsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/AntonBabychP1T/ca/model"
	striperepo "github.com/AntonBabychP1T/ca/repository/stripe"
	"github.com/AntonBabychP1T/ca/util/apperr"
)

// Amounts are carried in minor currency units: the per-day fee is
// multiplied by 100 before it reaches the gateway.
var centsPerUnit = decimal.NewFromInt(100)

type Service interface {
	// Create opens a gateway session for the rental and persists a
	// PENDING payment. A gateway failure aborts with nothing persisted.
	Create(ctx context.Context, userID, rentalID int64) (*model.Payment, error)

	ListByUser(ctx context.Context, userID int64) ([]model.Payment, error)

	SettleSuccess(ctx context.Context, sessionID string) (*model.Payment, error)
	SettleCancel(ctx context.Context, sessionID string) (*model.Payment, error)

	// Renew opens a fresh session on an unpaid payment record.
	Renew(ctx context.Context, paymentID int64, callerEmail string) (*model.Payment, error)

	// ReconcileExpired is the per-minute sweep entry point. It is the
	// sole path that moves payments to EXPIRED, which in turn freezes
	// the owner out of new rentals.
	ReconcileExpired(ctx context.Context) error
}

type Repo interface {
	Insert(ctx context.Context, tx pgx.Tx, p *model.Payment) error
	BySessionIDTx(ctx context.Context, tx pgx.Tx, sessionID string) (*model.Payment, error)
	ByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Payment, error)
	ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Payment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus) error
	UpdateSession(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus, sessionID, sessionURL string) error
	MarkExpired(ctx context.Context, id int64) (bool, error)
}

// RentalReader is read-only: payments never mutate rentals.
type RentalReader interface {
	ByIDAndUser(ctx context.Context, id, userID int64) (*model.Rental, error)
	ByID(ctx context.Context, id int64) (*model.Rental, error)
}

type CarReader interface {
	ByID(ctx context.Context, id int64) (*model.Car, error)
}

type UserReader interface {
	ByID(ctx context.Context, id int64) (*model.User, error)
}

type Gateway interface {
	CreateSession(ctx context.Context, req striperepo.CreateSessionReq) (*striperepo.Session, error)
	RetrieveSession(ctx context.Context, id string) (*striperepo.Session, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, message string)
}

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type service struct {
	db      TxBeginner
	r       Repo
	rentals RentalReader
	cars    CarReader
	users   UserReader
	gw      Gateway
	n       Notifier
	log     *slog.Logger
	now     func() model.Date
}

func New(db TxBeginner, r Repo, rentals RentalReader, cars CarReader, users UserReader, gw Gateway, n Notifier, log *slog.Logger) Service {
	return &service{db: db, r: r, rentals: rentals, cars: cars, users: users, gw: gw, n: n, log: log, now: model.Today}
}

func (s *service) Create(ctx context.Context, userID, rentalID int64) (payment *model.Payment, err error) {
	rental, err := s.rentals.ByIDAndUser(ctx, rentalID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "")
		}
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	car, err := s.cars.ByID(ctx, rental.CarID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "")
		}
		return nil, apperr.Wrap(apperr.Store, "", err)
	}

	amount := totalAmountCents(car.Fee, rental)
	payment = &model.Payment{
		RentalID:    rentalID,
		Status:      model.PaymentPending,
		Type:        s.classify(rental),
		AmountToPay: amount,
	}

	session, err := s.gw.CreateSession(ctx, striperepo.CreateSessionReq{
		AmountCents: amount.IntPart(),
		Description: "Rental Payment",
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Gateway, "", err)
	}
	payment.SessionID = session.ID
	payment.SessionURL = session.URL

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = s.r.Insert(ctx, tx, payment); err != nil {
		err = apperr.Wrap(apperr.Store, "", err)
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		err = apperr.Wrap(apperr.Store, "", err)
		return nil, err
	}

	s.n.Notify(ctx, userID, "Payment URL: "+payment.SessionURL)
	return payment, nil
}

func (s *service) ListByUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	out, err := s.r.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	return out, nil
}

func (s *service) SettleSuccess(ctx context.Context, sessionID string) (*model.Payment, error) {
	payment, err := s.settle(ctx, sessionID, model.PaymentPaid)
	if err != nil {
		return nil, err
	}
	if ownerID, ok := s.rentalOwner(ctx, payment); ok {
		s.n.Notify(ctx, ownerID, fmt.Sprintf(
			"Payment with id: %d for the amount: %s$ successful!",
			payment.ID, payment.AmountToPay))
	}
	return payment, nil
}

func (s *service) SettleCancel(ctx context.Context, sessionID string) (*model.Payment, error) {
	payment, err := s.settle(ctx, sessionID, model.PaymentCancel)
	if err != nil {
		return nil, err
	}
	if ownerID, ok := s.rentalOwner(ctx, payment); ok {
		s.n.Notify(ctx, ownerID, "Payment failure! The payment can be made later, but not after 24 hours!")
	}
	return payment, nil
}

func (s *service) settle(ctx context.Context, sessionID string, status model.PaymentStatus) (payment *model.Payment, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	payment, err = s.r.BySessionIDTx(ctx, tx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = apperr.New(apperr.NotFound, "")
		} else {
			err = apperr.Wrap(apperr.Store, "", err)
		}
		return nil, err
	}
	if err = s.r.UpdateStatus(ctx, tx, payment.ID, status); err != nil {
		err = apperr.Wrap(apperr.Store, "", err)
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		err = apperr.Wrap(apperr.Store, "", err)
		return nil, err
	}
	payment.Status = status
	return payment, nil
}

func (s *service) Renew(ctx context.Context, paymentID int64, callerEmail string) (payment *model.Payment, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	payment, err = s.r.ByIDTx(ctx, tx, paymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = apperr.New(apperr.NotFound, "")
		} else {
			err = apperr.Wrap(apperr.Store, "", err)
		}
		return nil, err
	}

	rental, err := s.rentals.ByID(ctx, payment.RentalID)
	if err != nil {
		err = apperr.Wrap(apperr.Store, "", err)
		return nil, err
	}
	owner, err := s.users.ByID(ctx, rental.UserID)
	if err != nil {
		err = apperr.Wrap(apperr.Store, "", err)
		return nil, err
	}
	if owner.Email != callerEmail {
		err = apperr.New(apperr.Forbidden, apperr.ReasonNotOwner)
		return nil, err
	}
	if payment.Status == model.PaymentPaid {
		err = apperr.New(apperr.InvalidState, apperr.ReasonAlreadyPaid)
		return nil, err
	}

	session, err := s.gw.CreateSession(ctx, striperepo.CreateSessionReq{
		AmountCents: payment.AmountToPay.IntPart(),
		Description: "Rental repayment",
	})
	if err != nil {
		err = apperr.Wrap(apperr.Gateway, "", err)
		return nil, err
	}

	if err = s.r.UpdateSession(ctx, tx, payment.ID, model.PaymentPending, session.ID, session.URL); err != nil {
		err = apperr.Wrap(apperr.Store, "", err)
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		err = apperr.Wrap(apperr.Store, "", err)
		return nil, err
	}

	payment.Status = model.PaymentPending
	payment.SessionID = session.ID
	payment.SessionURL = session.URL
	return payment, nil
}

func (s *service) ReconcileExpired(ctx context.Context) error {
	pending, err := s.r.ListByStatus(ctx, model.PaymentPending)
	if err != nil {
		return apperr.Wrap(apperr.Store, "", err)
	}
	for _, p := range pending {
		session, err := s.gw.RetrieveSession(ctx, p.SessionID)
		if err != nil {
			s.log.Warn("session lookup failed, skipping", "payment_id", p.ID, "session_id", p.SessionID, "err", err)
			continue
		}
		if session.Status != "expired" {
			continue
		}
		if _, err := s.r.MarkExpired(ctx, p.ID); err != nil {
			s.log.Warn("mark expired failed, skipping", "payment_id", p.ID, "err", err)
		}
	}
	return nil
}

// classify decides PAYMENT vs FINE the same way fees are billed: a
// rental still inside its window pays the base rate, an overdue or
// late-returned one pays a fine.
func (s *service) classify(r *model.Rental) model.PaymentType {
	today := s.now()
	if r.ReturnDate.After(today) {
		return model.TypePayment
	}
	if r.ActualReturnDate == nil {
		return model.TypeFine
	}
	if r.ActualReturnDate.After(r.ReturnDate) {
		return model.TypeFine
	}
	return model.TypePayment
}

func totalAmountCents(fee decimal.Decimal, r *model.Rental) decimal.Decimal {
	days := r.RentalDate.DaysUntil(r.ReturnDate)
	return fee.Mul(centsPerUnit).Mul(decimal.NewFromInt(days))
}

func (s *service) rentalOwner(ctx context.Context, p *model.Payment) (int64, bool) {
	rental, err := s.rentals.ByID(ctx, p.RentalID)
	if err != nil {
		s.log.Warn("rental owner lookup failed", "rental_id", p.RentalID, "err", err)
		return 0, false
	}
	return rental.UserID, true
}
