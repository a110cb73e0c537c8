package paymentrepo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/AntonBabychP1T/ca/model"
	"github.com/AntonBabychP1T/ca/util/database"
)

const paymentCols = `id, rental_id, status, type, session_id, session_url, amount_to_pay`

type Repo interface {
	Insert(ctx context.Context, tx pgx.Tx, p *model.Payment) error
	BySessionIDTx(ctx context.Context, tx pgx.Tx, sessionID string) (*model.Payment, error)
	ByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Payment, error)
	ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Payment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus) error
	UpdateSession(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus, sessionID, sessionURL string) error
	MarkExpired(ctx context.Context, id int64) (bool, error)
	HasAnyExpired(ctx context.Context, userID int64) (bool, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	return tx.QueryRow(ctx, `
		INSERT INTO payments(rental_id, status, type, session_id, session_url, amount_to_pay)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`,
		p.RentalID, p.Status, p.Type, p.SessionID, p.SessionURL, p.AmountToPay,
	).Scan(&p.ID)
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	err := row.Scan(&p.ID, &p.RentalID, &p.Status, &p.Type, &p.SessionID, &p.SessionURL, &p.AmountToPay)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// BySessionIDTx locks the payment row; settle, renew and the expiry
// sweep all serialize on it so a status write is never lost.
func (r *repo) BySessionIDTx(ctx context.Context, tx pgx.Tx, sessionID string) (*model.Payment, error) {
	return scanPayment(tx.QueryRow(ctx, `
		SELECT `+paymentCols+`
		FROM payments
		WHERE session_id = $1
		FOR UPDATE`,
		sessionID))
}

func (r *repo) ByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Payment, error) {
	return scanPayment(tx.QueryRow(ctx, `
		SELECT `+paymentCols+`
		FROM payments
		WHERE id = $1
		FOR UPDATE`,
		id))
}

func (r *repo) ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+paymentCols+`
		FROM payments
		WHERE status = $1
		ORDER BY id`,
		status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT p.id, p.rental_id, p.status, p.type, p.session_id, p.session_url, p.amount_to_pay
		FROM payments p
		JOIN rentals r ON r.id = p.rental_id
		WHERE r.user_id = $1
		ORDER BY p.id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *repo) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus) error {
	_, err := tx.Exec(ctx, `
		UPDATE payments
		SET status = $2
		WHERE id = $1`,
		id, status)
	return err
}

func (r *repo) UpdateSession(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus, sessionID, sessionURL string) error {
	_, err := tx.Exec(ctx, `
		UPDATE payments
		SET status = $2, session_id = $3, session_url = $4
		WHERE id = $1`,
		id, status, sessionID, sessionURL)
	return err
}

// MarkExpired flips PENDING to EXPIRED; the status guard makes the sweep
// lose cleanly against a settle that committed first.
func (r *repo) MarkExpired(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE payments
		SET status = 'EXPIRED'
		WHERE id = $1 AND status = 'PENDING'`,
		id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repo) HasAnyExpired(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM payments p
			JOIN rentals r ON r.id = p.rental_id
			WHERE r.user_id = $1 AND p.status = 'EXPIRED'
		)`,
		userID,
	).Scan(&exists)
	return exists, err
}

func collectPayments(rows pgx.Rows) ([]model.Payment, error) {
	var out []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
