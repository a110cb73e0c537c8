package telegramuserrepo

import (
	"context"

	"github.com/AntonBabychP1T/ca/model"
	"github.com/AntonBabychP1T/ca/util/database"
)

type Repo interface {
	Upsert(ctx context.Context, chatID, userID int64) error
	ByUserID(ctx context.Context, userID int64) (*model.TelegramUserInfo, error)
	ByChatID(ctx context.Context, chatID int64) (*model.TelegramUserInfo, error)
	All(ctx context.Context) ([]model.TelegramUserInfo, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db} }

// Upsert keeps the one-user-one-chat invariant: a re-registration from a
// new chat replaces the old mapping.
func (r *repo) Upsert(ctx context.Context, chatID, userID int64) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO telegram_user_info(chat_id, user_id)
		VALUES ($1,$2)
		ON CONFLICT (user_id) DO UPDATE SET chat_id = EXCLUDED.chat_id`,
		chatID, userID)
	return err
}

func (r *repo) ByUserID(ctx context.Context, userID int64) (*model.TelegramUserInfo, error) {
	t := &model.TelegramUserInfo{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, chat_id, user_id
		FROM telegram_user_info
		WHERE user_id = $1`,
		userID,
	).Scan(&t.ID, &t.ChatID, &t.UserID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *repo) ByChatID(ctx context.Context, chatID int64) (*model.TelegramUserInfo, error) {
	t := &model.TelegramUserInfo{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, chat_id, user_id
		FROM telegram_user_info
		WHERE chat_id = $1`,
		chatID,
	).Scan(&t.ID, &t.ChatID, &t.UserID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *repo) All(ctx context.Context) ([]model.TelegramUserInfo, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, chat_id, user_id
		FROM telegram_user_info
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TelegramUserInfo
	for rows.Next() {
		var t model.TelegramUserInfo
		if err := rows.Scan(&t.ID, &t.ChatID, &t.UserID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
