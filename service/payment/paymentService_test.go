package paymentsvc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/AntonBabychP1T/ca/model"
	striperepo "github.com/AntonBabychP1T/ca/repository/stripe"
	"github.com/AntonBabychP1T/ca/util/apperr"
)

type fakeTx struct {
	pgx.Tx
	commits   int
	rollbacks int
}

func (t *fakeTx) Commit(ctx context.Context) error   { t.commits++; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { t.rollbacks++; return nil }

type beginnerMock struct{ txs []*fakeTx }

func (b *beginnerMock) Begin(ctx context.Context) (pgx.Tx, error) {
	tx := &fakeTx{}
	b.txs = append(b.txs, tx)
	return tx, nil
}

type repoMock struct {
	insertFn        func(ctx context.Context, tx pgx.Tx, p *model.Payment) error
	bySessionIDTxFn func(ctx context.Context, tx pgx.Tx, sessionID string) (*model.Payment, error)
	byIDTxFn        func(ctx context.Context, tx pgx.Tx, id int64) (*model.Payment, error)
	listByStatusFn  func(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error)
	listByUserFn    func(ctx context.Context, userID int64) ([]model.Payment, error)
	updateStatusFn  func(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus) error
	updateSessionFn func(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus, sessionID, sessionURL string) error
	markExpiredFn   func(ctx context.Context, id int64) (bool, error)
}

func (m *repoMock) Insert(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	return m.insertFn(ctx, tx, p)
}
func (m *repoMock) BySessionIDTx(ctx context.Context, tx pgx.Tx, sessionID string) (*model.Payment, error) {
	return m.bySessionIDTxFn(ctx, tx, sessionID)
}
func (m *repoMock) ByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Payment, error) {
	return m.byIDTxFn(ctx, tx, id)
}
func (m *repoMock) ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error) {
	return m.listByStatusFn(ctx, status)
}
func (m *repoMock) ListByUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	return m.listByUserFn(ctx, userID)
}
func (m *repoMock) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus) error {
	return m.updateStatusFn(ctx, tx, id, status)
}
func (m *repoMock) UpdateSession(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus, sessionID, sessionURL string) error {
	return m.updateSessionFn(ctx, tx, id, status, sessionID, sessionURL)
}
func (m *repoMock) MarkExpired(ctx context.Context, id int64) (bool, error) {
	return m.markExpiredFn(ctx, id)
}

type rentalsMock struct {
	byIDAndUserFn func(ctx context.Context, id, userID int64) (*model.Rental, error)
	byIDFn        func(ctx context.Context, id int64) (*model.Rental, error)
}

func (m *rentalsMock) ByIDAndUser(ctx context.Context, id, userID int64) (*model.Rental, error) {
	return m.byIDAndUserFn(ctx, id, userID)
}
func (m *rentalsMock) ByID(ctx context.Context, id int64) (*model.Rental, error) {
	return m.byIDFn(ctx, id)
}

type carsMock struct {
	byIDFn func(ctx context.Context, id int64) (*model.Car, error)
}

func (m *carsMock) ByID(ctx context.Context, id int64) (*model.Car, error) { return m.byIDFn(ctx, id) }

type usersMock struct {
	byIDFn func(ctx context.Context, id int64) (*model.User, error)
}

func (m *usersMock) ByID(ctx context.Context, id int64) (*model.User, error) {
	return m.byIDFn(ctx, id)
}

type gatewayMock struct {
	createFn   func(ctx context.Context, req striperepo.CreateSessionReq) (*striperepo.Session, error)
	retrieveFn func(ctx context.Context, id string) (*striperepo.Session, error)
}

func (m *gatewayMock) CreateSession(ctx context.Context, req striperepo.CreateSessionReq) (*striperepo.Session, error) {
	return m.createFn(ctx, req)
}
func (m *gatewayMock) RetrieveSession(ctx context.Context, id string) (*striperepo.Session, error) {
	return m.retrieveFn(ctx, id)
}

type notifierMock struct{ sent []string }

func (m *notifierMock) Notify(ctx context.Context, userID int64, message string) {
	m.sent = append(m.sent, message)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fiveDayRental() *model.Rental {
	return &model.Rental{
		ID:         5,
		UserID:     7,
		CarID:      3,
		RentalDate: model.NewDate(2026, 3, 10),
		ReturnDate: model.NewDate(2026, 3, 15),
	}
}

func TestCreate_AmountInCents(t *testing.T) {
	// 10.00 per day over 5 days is 5000 cents.
	db := &beginnerMock{}
	n := &notifierMock{}
	var gotCents int64
	gw := &gatewayMock{createFn: func(ctx context.Context, req striperepo.CreateSessionReq) (*striperepo.Session, error) {
		gotCents = req.AmountCents
		return &striperepo.Session{ID: "sess_1", URL: "https://pay/1", Status: "open"}, nil
	}}
	r := &repoMock{insertFn: func(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
		p.ID = 11
		return nil
	}}
	rentals := &rentalsMock{byIDAndUserFn: func(ctx context.Context, id, userID int64) (*model.Rental, error) {
		return fiveDayRental(), nil
	}}
	cars := &carsMock{byIDFn: func(ctx context.Context, id int64) (*model.Car, error) {
		return &model.Car{ID: id, Fee: decimal.RequireFromString("10.00")}, nil
	}}

	s := New(db, r, rentals, cars, &usersMock{}, gw, n, discard()).(*service)
	s.now = func() model.Date { return model.NewDate(2026, 3, 11) }

	p, err := s.Create(context.Background(), 7, 5)
	require.NoError(t, err)
	require.EqualValues(t, 5000, gotCents)
	require.True(t, p.AmountToPay.Equal(decimal.NewFromInt(5000)))
	require.Equal(t, model.PaymentPending, p.Status)
	require.Equal(t, model.TypePayment, p.Type)
	require.Equal(t, "sess_1", p.SessionID)
	require.Len(t, n.sent, 1)
	require.Equal(t, "Payment URL: https://pay/1", n.sent[0])
	require.Equal(t, 1, db.txs[0].commits)
}

func TestCreate_GatewayErrorAbortsPersistence(t *testing.T) {
	db := &beginnerMock{}
	gw := &gatewayMock{createFn: func(ctx context.Context, req striperepo.CreateSessionReq) (*striperepo.Session, error) {
		return nil, errors.New("stripe is down")
	}}
	inserted := false
	r := &repoMock{insertFn: func(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
		inserted = true
		return nil
	}}
	rentals := &rentalsMock{byIDAndUserFn: func(ctx context.Context, id, userID int64) (*model.Rental, error) {
		return fiveDayRental(), nil
	}}
	cars := &carsMock{byIDFn: func(ctx context.Context, id int64) (*model.Car, error) {
		return &model.Car{ID: id, Fee: decimal.NewFromInt(10)}, nil
	}}

	s := New(db, r, rentals, cars, &usersMock{}, gw, &notifierMock{}, discard())

	_, err := s.Create(context.Background(), 7, 5)
	require.Equal(t, apperr.Gateway, apperr.KindOf(err))
	require.False(t, inserted)
	require.Empty(t, db.txs)
}

func TestClassify(t *testing.T) {
	s := &service{now: func() model.Date { return model.NewDate(2026, 3, 15) }}
	early := model.NewDate(2026, 3, 9)
	late := model.NewDate(2026, 3, 12)

	cases := []struct {
		name   string
		rental model.Rental
		want   model.PaymentType
	}{
		{"inside window", model.Rental{ReturnDate: model.NewDate(2026, 3, 20)}, model.TypePayment},
		{"past due, unreturned", model.Rental{ReturnDate: model.NewDate(2026, 3, 10)}, model.TypeFine},
		{"returned late", model.Rental{ReturnDate: model.NewDate(2026, 3, 10), ActualReturnDate: &late}, model.TypeFine},
		{"returned on time", model.Rental{ReturnDate: model.NewDate(2026, 3, 10), ActualReturnDate: &early}, model.TypePayment},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, s.classify(&tc.rental))
		})
	}
}

func TestSettleSuccess(t *testing.T) {
	db := &beginnerMock{}
	n := &notifierMock{}
	r := &repoMock{
		bySessionIDTxFn: func(ctx context.Context, tx pgx.Tx, sessionID string) (*model.Payment, error) {
			return &model.Payment{ID: 11, RentalID: 5, Status: model.PaymentPending,
				AmountToPay: decimal.NewFromInt(5000)}, nil
		},
		updateStatusFn: func(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus) error {
			require.Equal(t, model.PaymentPaid, status)
			return nil
		},
	}
	rentals := &rentalsMock{byIDFn: func(ctx context.Context, id int64) (*model.Rental, error) {
		return fiveDayRental(), nil
	}}

	s := New(db, r, rentals, &carsMock{}, &usersMock{}, &gatewayMock{}, n, discard())

	p, err := s.SettleSuccess(context.Background(), "sess_1")
	require.NoError(t, err)
	require.Equal(t, model.PaymentPaid, p.Status)
	require.Equal(t, 1, db.txs[0].commits)
	require.Len(t, n.sent, 1)
	require.Equal(t, "Payment with id: 11 for the amount: 5000$ successful!", n.sent[0])
}

func TestSettleCancel(t *testing.T) {
	db := &beginnerMock{}
	n := &notifierMock{}
	r := &repoMock{
		bySessionIDTxFn: func(ctx context.Context, tx pgx.Tx, sessionID string) (*model.Payment, error) {
			return &model.Payment{ID: 11, RentalID: 5, Status: model.PaymentPending}, nil
		},
		updateStatusFn: func(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus) error {
			require.Equal(t, model.PaymentCancel, status)
			return nil
		},
	}
	rentals := &rentalsMock{byIDFn: func(ctx context.Context, id int64) (*model.Rental, error) {
		return fiveDayRental(), nil
	}}

	s := New(db, r, rentals, &carsMock{}, &usersMock{}, &gatewayMock{}, n, discard())

	p, err := s.SettleCancel(context.Background(), "sess_1")
	require.NoError(t, err)
	require.Equal(t, model.PaymentCancel, p.Status)
	require.Len(t, n.sent, 1)
	require.Equal(t, "Payment failure! The payment can be made later, but not after 24 hours!", n.sent[0])
}

func TestSettle_UnknownSession(t *testing.T) {
	db := &beginnerMock{}
	r := &repoMock{bySessionIDTxFn: func(ctx context.Context, tx pgx.Tx, sessionID string) (*model.Payment, error) {
		return nil, pgx.ErrNoRows
	}}

	s := New(db, r, &rentalsMock{}, &carsMock{}, &usersMock{}, &gatewayMock{}, &notifierMock{}, discard())

	_, err := s.SettleSuccess(context.Background(), "nope")
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
	require.Equal(t, 1, db.txs[0].rollbacks)
}

func renewFixture(status model.PaymentStatus, ownerEmail string) (*beginnerMock, *repoMock, *rentalsMock, *usersMock) {
	db := &beginnerMock{}
	r := &repoMock{
		byIDTxFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Payment, error) {
			return &model.Payment{ID: id, RentalID: 5, Status: status,
				AmountToPay: decimal.NewFromInt(5000)}, nil
		},
		updateSessionFn: func(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus, sessionID, sessionURL string) error {
			return nil
		},
	}
	rentals := &rentalsMock{byIDFn: func(ctx context.Context, id int64) (*model.Rental, error) {
		return fiveDayRental(), nil
	}}
	users := &usersMock{byIDFn: func(ctx context.Context, id int64) (*model.User, error) {
		return &model.User{ID: id, Email: ownerEmail}, nil
	}}
	return db, r, rentals, users
}

func TestRenew_NotOwner(t *testing.T) {
	db, r, rentals, users := renewFixture(model.PaymentCancel, "owner@example.com")
	s := New(db, r, rentals, &carsMock{}, users, &gatewayMock{}, &notifierMock{}, discard())

	_, err := s.Renew(context.Background(), 11, "intruder@example.com")
	require.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	require.Equal(t, apperr.ReasonNotOwner, apperr.ReasonOf(err))
}

func TestRenew_AlreadyPaid(t *testing.T) {
	db, r, rentals, users := renewFixture(model.PaymentPaid, "owner@example.com")
	s := New(db, r, rentals, &carsMock{}, users, &gatewayMock{}, &notifierMock{}, discard())

	_, err := s.Renew(context.Background(), 11, "owner@example.com")
	require.Equal(t, apperr.InvalidState, apperr.KindOf(err))
	require.Equal(t, apperr.ReasonAlreadyPaid, apperr.ReasonOf(err))
}

func TestRenew_Success(t *testing.T) {
	db, r, rentals, users := renewFixture(model.PaymentExpired, "owner@example.com")
	gw := &gatewayMock{createFn: func(ctx context.Context, req striperepo.CreateSessionReq) (*striperepo.Session, error) {
		require.EqualValues(t, 5000, req.AmountCents)
		return &striperepo.Session{ID: "sess_2", URL: "https://pay/2", Status: "open"}, nil
	}}
	s := New(db, r, rentals, &carsMock{}, users, gw, &notifierMock{}, discard())

	p, err := s.Renew(context.Background(), 11, "owner@example.com")
	require.NoError(t, err)
	require.Equal(t, model.PaymentPending, p.Status)
	require.Equal(t, "sess_2", p.SessionID)
	require.Equal(t, "https://pay/2", p.SessionURL)
	require.Equal(t, 1, db.txs[0].commits)
}

func TestReconcileExpired(t *testing.T) {
	var expired []int64
	r := &repoMock{
		listByStatusFn: func(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error) {
			require.Equal(t, model.PaymentPending, status)
			return []model.Payment{
				{ID: 1, SessionID: "sess_a"},
				{ID: 2, SessionID: "sess_b"},
				{ID: 3, SessionID: "sess_c"},
			}, nil
		},
		markExpiredFn: func(ctx context.Context, id int64) (bool, error) {
			expired = append(expired, id)
			return true, nil
		},
	}
	gw := &gatewayMock{retrieveFn: func(ctx context.Context, id string) (*striperepo.Session, error) {
		switch id {
		case "sess_a":
			return nil, errors.New("lookup failed")
		case "sess_b":
			return &striperepo.Session{ID: id, Status: "open"}, nil
		default:
			return &striperepo.Session{ID: id, Status: "expired"}, nil
		}
	}}

	s := New(&beginnerMock{}, r, &rentalsMock{}, &carsMock{}, &usersMock{}, gw, &notifierMock{}, discard())

	require.NoError(t, s.ReconcileExpired(context.Background()))
	require.Equal(t, []int64{3}, expired)
}
