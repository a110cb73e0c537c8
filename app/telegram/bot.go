// Package telegram runs the long-poll bot loop: the opt-in handshake
// that links a chat to a registered user, plus a couple of read-only
// commands. Outbound notifications go through the notification service,
// not through this loop.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	telegramrepo "github.com/AntonBabychP1T/ca/repository/telegram"
	rentalsvc "github.com/AntonBabychP1T/ca/service/rental"
	telegramusersvc "github.com/AntonBabychP1T/ca/service/telegramuser"
)

const pollTimeoutSec = 10

type Bot struct {
	API     telegramrepo.Repo
	Users   telegramusersvc.Service
	Rentals rentalsvc.Service
	Log     *slog.Logger
}

func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := b.API.GetUpdates(ctx, offset, pollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.Log.Warn("telegram poll failed", "err", err)
			time.Sleep(3 * time.Second)
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			b.handle(ctx, u.Message.Chat.ID, strings.TrimSpace(u.Message.Text))
		}
	}
}

func (b *Bot) handle(ctx context.Context, chatID int64, text string) {
	states := b.Users.States()

	state, ok := states.Get(chatID)
	if !ok {
		states.Set(chatID, &telegramusersvc.ChatState{AwaitingEmail: true})
		b.send(ctx, chatID, "Enter your email to verify")
		return
	}
	if state.AwaitingEmail {
		if err := b.Users.RegisterNewUser(ctx, chatID, text); err != nil {
			b.send(ctx, chatID, "Not valid email, please send again")
			return
		}
		b.send(ctx, chatID, "You are verified and will receive rental updates here")
		return
	}

	switch {
	case text == "/start":
		b.send(ctx, chatID, "You are already verified. Use /rentals to list your active rentals")
	case text == "/rentals":
		b.sendRentals(ctx, chatID)
	default:
		b.send(ctx, chatID, "Unknown command. Use /rentals")
	}
}

func (b *Bot) sendRentals(ctx context.Context, chatID int64) {
	userID, err := b.Users.UserForChat(ctx, chatID)
	if err != nil {
		b.send(ctx, chatID, "You are not verified yet, send /start first")
		return
	}
	rentals, err := b.Rentals.List(ctx, userID, true)
	if err != nil {
		b.Log.Warn("bot rentals lookup failed", "chat_id", chatID, "err", err)
		b.send(ctx, chatID, "Could not load your rentals, try again later")
		return
	}
	if len(rentals) == 0 {
		b.send(ctx, chatID, "You have no active rentals")
		return
	}
	var sb strings.Builder
	sb.WriteString("Your active rentals:\n")
	for _, r := range rentals {
		fmt.Fprintf(&sb, "Rental %d: car %d, due %s\n", r.ID, r.CarID, r.ReturnDate)
	}
	b.send(ctx, chatID, sb.String())
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if err := b.API.SendMessage(ctx, chatID, text); err != nil && !errors.Is(err, context.Canceled) {
		b.Log.Warn("bot send failed", "chat_id", chatID, "err", err)
	}
}
