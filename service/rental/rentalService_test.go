package rentalsvc

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/AntonBabychP1T/ca/model"
	"github.com/AntonBabychP1T/ca/util/apperr"
)

type fakeTx struct {
	pgx.Tx
	commits   int32
	rollbacks int32
}

func (t *fakeTx) Commit(ctx context.Context) error   { atomic.AddInt32(&t.commits, 1); return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { atomic.AddInt32(&t.rollbacks, 1); return nil }

type beginnerMock struct {
	mu  sync.Mutex
	txs []*fakeTx
}

func (b *beginnerMock) Begin(ctx context.Context) (pgx.Tx, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx := &fakeTx{}
	b.txs = append(b.txs, tx)
	return tx, nil
}

func (b *beginnerMock) last() *fakeTx {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.txs[len(b.txs)-1]
}

type repoMock struct {
	insertFn        func(ctx context.Context, tx pgx.Tx, r *model.Rental) error
	byIDAndUserFn   func(ctx context.Context, id, userID int64) (*model.Rental, error)
	byIDAndUserTxFn func(ctx context.Context, tx pgx.Tx, id, userID int64) (*model.Rental, error)
	listByUserFn    func(ctx context.Context, userID int64) ([]model.Rental, error)
	markReturnedFn  func(ctx context.Context, tx pgx.Tx, id int64, returned model.Date) (bool, error)
	listOverdueFn   func(ctx context.Context, today model.Date) ([]model.Rental, error)
}

func (m *repoMock) Insert(ctx context.Context, tx pgx.Tx, r *model.Rental) error {
	return m.insertFn(ctx, tx, r)
}
func (m *repoMock) ByIDAndUser(ctx context.Context, id, userID int64) (*model.Rental, error) {
	return m.byIDAndUserFn(ctx, id, userID)
}
func (m *repoMock) ByIDAndUserTx(ctx context.Context, tx pgx.Tx, id, userID int64) (*model.Rental, error) {
	return m.byIDAndUserTxFn(ctx, tx, id, userID)
}
func (m *repoMock) ListByUser(ctx context.Context, userID int64) ([]model.Rental, error) {
	return m.listByUserFn(ctx, userID)
}
func (m *repoMock) MarkReturned(ctx context.Context, tx pgx.Tx, id int64, returned model.Date) (bool, error) {
	return m.markReturnedFn(ctx, tx, id, returned)
}
func (m *repoMock) ListOverdue(ctx context.Context, today model.Date) ([]model.Rental, error) {
	return m.listOverdueFn(ctx, today)
}

// stockLedger keeps a mutex-guarded unit count so concurrent reserves
// contend the way the conditional update does in postgres.
type stockLedger struct {
	mu    sync.Mutex
	units int
}

func (l *stockLedger) Reserve(ctx context.Context, tx pgx.Tx, carID int64) (*model.Car, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.units == 0 {
		return nil, apperr.New(apperr.Conflict, apperr.ReasonOutOfStock)
	}
	l.units--
	return &model.Car{ID: carID}, nil
}

func (l *stockLedger) Release(ctx context.Context, tx pgx.Tx, carID int64) (*model.Car, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.units++
	return &model.Car{ID: carID}, nil
}

type payMock struct {
	hasAnyExpiredFn func(ctx context.Context, userID int64) (bool, error)
}

func (m *payMock) HasAnyExpired(ctx context.Context, userID int64) (bool, error) {
	if m.hasAnyExpiredFn == nil {
		return false, nil
	}
	return m.hasAnyExpiredFn(ctx, userID)
}

type notifierMock struct {
	mu         sync.Mutex
	sent       []string
	broadcasts []string
}

func (m *notifierMock) Notify(ctx context.Context, userID int64, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, message)
}

func (m *notifierMock) NotifyAll(ctx context.Context, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, message)
}

func newTestService(db TxBeginner, r Repo, units int, pc PaymentChecker, n *notifierMock) (*service, *stockLedger) {
	led := &stockLedger{units: units}
	return New(db, r, led, pc, n).(*service), led
}

func TestCreate_InvalidDateRange(t *testing.T) {
	s, _ := newTestService(&beginnerMock{}, &repoMock{}, 1, &payMock{}, &notifierMock{})

	from := model.NewDate(2026, 3, 10)
	_, err := s.Create(context.Background(), 1, 1, from, from)
	require.Equal(t, apperr.ReasonInvalidDateRange, apperr.ReasonOf(err))

	_, err = s.Create(context.Background(), 1, 1, from, model.NewDate(2026, 3, 9))
	require.Equal(t, apperr.ReasonInvalidDateRange, apperr.ReasonOf(err))
}

func TestCreate_FrozenByExpiredPayment(t *testing.T) {
	pc := &payMock{hasAnyExpiredFn: func(ctx context.Context, userID int64) (bool, error) {
		return true, nil
	}}
	s, _ := newTestService(&beginnerMock{}, &repoMock{}, 1, pc, &notifierMock{})

	_, err := s.Create(context.Background(), 7, 1, model.NewDate(2026, 3, 10), model.NewDate(2026, 3, 12))
	require.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	require.Equal(t, apperr.ReasonExpiredPayment, apperr.ReasonOf(err))
}

func TestCreate_OutOfStock(t *testing.T) {
	db := &beginnerMock{}
	n := &notifierMock{}
	s, _ := newTestService(db, &repoMock{}, 0, &payMock{}, n)

	_, err := s.Create(context.Background(), 7, 3, model.NewDate(2026, 3, 10), model.NewDate(2026, 3, 12))
	require.Equal(t, apperr.Conflict, apperr.KindOf(err))
	require.Equal(t, apperr.ReasonNoAvailableCar, apperr.ReasonOf(err))

	require.Len(t, n.sent, 1)
	require.Equal(t, "There is no free available car with id: 3", n.sent[0])
	require.EqualValues(t, 1, db.last().rollbacks)
	require.EqualValues(t, 0, db.last().commits)
}

func TestCreate_Success(t *testing.T) {
	db := &beginnerMock{}
	n := &notifierMock{}
	r := &repoMock{insertFn: func(ctx context.Context, tx pgx.Tx, rental *model.Rental) error {
		rental.ID = 42
		return nil
	}}
	s, led := newTestService(db, r, 1, &payMock{}, n)

	rental, err := s.Create(context.Background(), 7, 3, model.NewDate(2026, 3, 10), model.NewDate(2026, 3, 12))
	require.NoError(t, err)
	require.EqualValues(t, 42, rental.ID)
	require.True(t, rental.Active())

	require.Equal(t, 0, led.units)
	require.EqualValues(t, 1, db.last().commits)
	require.Len(t, n.sent, 1)
	require.Contains(t, n.sent[0], "Rental ID: 42")
	require.Contains(t, n.sent[0], "from 2026-03-10 to 2026-03-12")
}

func TestCreate_ConcurrentLastUnit(t *testing.T) {
	db := &beginnerMock{}
	var nextID int64
	r := &repoMock{insertFn: func(ctx context.Context, tx pgx.Tx, rental *model.Rental) error {
		rental.ID = atomic.AddInt64(&nextID, 1)
		return nil
	}}
	s, _ := newTestService(db, r, 1, &payMock{}, &notifierMock{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Create(context.Background(), int64(i+1), 3,
				model.NewDate(2026, 3, 10), model.NewDate(2026, 3, 12))
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.ReasonOf(err) == apperr.ReasonNoAvailableCar:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, conflicts)
}

func TestReturn_Success(t *testing.T) {
	db := &beginnerMock{}
	n := &notifierMock{}
	r := &repoMock{
		byIDAndUserTxFn: func(ctx context.Context, tx pgx.Tx, id, userID int64) (*model.Rental, error) {
			return &model.Rental{ID: id, UserID: userID, CarID: 3,
				RentalDate: model.NewDate(2026, 3, 1),
				ReturnDate: model.NewDate(2026, 3, 5)}, nil
		},
		markReturnedFn: func(ctx context.Context, tx pgx.Tx, id int64, returned model.Date) (bool, error) {
			return true, nil
		},
	}
	s, led := newTestService(db, r, 0, &payMock{}, n)
	today := model.NewDate(2026, 3, 4)
	s.now = func() model.Date { return today }

	rental, err := s.Return(context.Background(), 5, 7)
	require.NoError(t, err)
	require.NotNil(t, rental.ActualReturnDate)
	require.Equal(t, today, *rental.ActualReturnDate)

	require.Equal(t, 1, led.units)
	require.EqualValues(t, 1, db.last().commits)
	require.Len(t, n.sent, 1)
	require.Equal(t, "You successfully return your rental with id: 5", n.sent[0])
}

func TestReturn_AlreadyReturned(t *testing.T) {
	db := &beginnerMock{}
	done := model.NewDate(2026, 3, 3)
	r := &repoMock{
		byIDAndUserTxFn: func(ctx context.Context, tx pgx.Tx, id, userID int64) (*model.Rental, error) {
			return &model.Rental{ID: id, UserID: userID, CarID: 3, ActualReturnDate: &done}, nil
		},
	}
	s, led := newTestService(db, r, 0, &payMock{}, &notifierMock{})

	_, err := s.Return(context.Background(), 5, 7)
	require.Equal(t, apperr.Conflict, apperr.KindOf(err))
	require.Equal(t, apperr.ReasonAlreadyReturned, apperr.ReasonOf(err))
	require.Equal(t, 0, led.units)
	require.EqualValues(t, 1, db.last().rollbacks)
}

func TestReturn_NotFound(t *testing.T) {
	r := &repoMock{
		byIDAndUserTxFn: func(ctx context.Context, tx pgx.Tx, id, userID int64) (*model.Rental, error) {
			return nil, pgx.ErrNoRows
		},
	}
	s, _ := newTestService(&beginnerMock{}, r, 0, &payMock{}, &notifierMock{})

	_, err := s.Return(context.Background(), 99, 7)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestList_ActiveFilter(t *testing.T) {
	done := model.NewDate(2026, 3, 3)
	r := &repoMock{listByUserFn: func(ctx context.Context, userID int64) ([]model.Rental, error) {
		return []model.Rental{
			{ID: 1},
			{ID: 2, ActualReturnDate: &done},
			{ID: 3},
		}, nil
	}}
	s, _ := newTestService(&beginnerMock{}, r, 0, &payMock{}, &notifierMock{})

	active, err := s.List(context.Background(), 7, true)
	require.NoError(t, err)
	require.Len(t, active, 2)

	returned, err := s.List(context.Background(), 7, false)
	require.NoError(t, err)
	require.Len(t, returned, 1)
	require.EqualValues(t, 2, returned[0].ID)
}

func TestGet_NotFound(t *testing.T) {
	r := &repoMock{byIDAndUserFn: func(ctx context.Context, id, userID int64) (*model.Rental, error) {
		return nil, pgx.ErrNoRows
	}}
	s, _ := newTestService(&beginnerMock{}, r, 0, &payMock{}, &notifierMock{})

	_, err := s.Get(context.Background(), 99, 7)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestCheckOverdue_NoneBroadcastsOnce(t *testing.T) {
	n := &notifierMock{}
	r := &repoMock{listOverdueFn: func(ctx context.Context, today model.Date) ([]model.Rental, error) {
		return nil, nil
	}}
	s, _ := newTestService(&beginnerMock{}, r, 0, &payMock{}, n)

	require.NoError(t, s.CheckOverdue(context.Background()))
	require.Len(t, n.broadcasts, 1)
	require.Equal(t, "No rentals overdue today!", n.broadcasts[0])
	require.Empty(t, n.sent)
}

func TestCheckOverdue_AlertsPerRental(t *testing.T) {
	n := &notifierMock{}
	r := &repoMock{listOverdueFn: func(ctx context.Context, today model.Date) ([]model.Rental, error) {
		return []model.Rental{
			{ID: 1, UserID: 7, CarID: 3, ReturnDate: model.NewDate(2026, 3, 1)},
			{ID: 2, UserID: 8, CarID: 4, ReturnDate: model.NewDate(2026, 3, 2)},
		}, nil
	}}
	s, _ := newTestService(&beginnerMock{}, r, 0, &payMock{}, n)

	require.NoError(t, s.CheckOverdue(context.Background()))
	require.Empty(t, n.broadcasts)
	require.Len(t, n.sent, 2)
	for _, msg := range n.sent {
		require.True(t, strings.HasPrefix(msg, "Overdue rental alert!"), msg)
	}
	require.Contains(t, n.sent[0], "Rental ID: 1")
	require.Contains(t, n.sent[1], "Return Date: 2026-03-02")
}
