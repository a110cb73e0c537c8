package notificationsvc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/AntonBabychP1T/ca/model"
)

// Service fans a message out to chat targets. Delivery is best-effort:
// a missing target is a silent no-op and a channel failure is logged and
// dropped, never surfaced to the business operation that triggered it.
type Service interface {
	Notify(ctx context.Context, userID int64, message string)
	NotifyAll(ctx context.Context, message string)
}

type Targets interface {
	ByUserID(ctx context.Context, userID int64) (*model.TelegramUserInfo, error)
	All(ctx context.Context) ([]model.TelegramUserInfo, error)
}

type Channel interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type service struct {
	targets Targets
	ch      Channel
	log     *slog.Logger
}

func New(targets Targets, ch Channel, log *slog.Logger) Service {
	return &service{targets: targets, ch: ch, log: log}
}

func (s *service) Notify(ctx context.Context, userID int64, message string) {
	target, err := s.targets.ByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.log.Warn("notification target lookup failed", "user_id", userID, "err", err)
		}
		return
	}
	if err := s.ch.SendMessage(ctx, target.ChatID, message); err != nil {
		s.log.Warn("notification send failed", "user_id", userID, "chat_id", target.ChatID, "err", err)
	}
}

func (s *service) NotifyAll(ctx context.Context, message string) {
	targets, err := s.targets.All(ctx)
	if err != nil {
		s.log.Warn("notification target list failed", "err", err)
		return
	}
	for _, t := range targets {
		if err := s.ch.SendMessage(ctx, t.ChatID, message); err != nil {
			s.log.Warn("notification send failed", "chat_id", t.ChatID, "err", err)
		}
	}
}
