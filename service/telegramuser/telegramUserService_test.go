package telegramusersvc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AntonBabychP1T/ca/model"
	telegramusersvc "github.com/AntonBabychP1T/ca/service/telegramuser"
)

type usersMock struct {
	byEmailFn func(ctx context.Context, email string) (*model.User, error)
}

func (m *usersMock) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.byEmailFn(ctx, email)
}

type targetsMock struct {
	upsertFn   func(ctx context.Context, chatID, userID int64) error
	byChatIDFn func(ctx context.Context, chatID int64) (*model.TelegramUserInfo, error)
}

func (m *targetsMock) Upsert(ctx context.Context, chatID, userID int64) error {
	return m.upsertFn(ctx, chatID, userID)
}
func (m *targetsMock) ByChatID(ctx context.Context, chatID int64) (*model.TelegramUserInfo, error) {
	return m.byChatIDFn(ctx, chatID)
}

func TestRegisterNewUser_InvalidEmail(t *testing.T) {
	s := telegramusersvc.New(&usersMock{}, &targetsMock{}, telegramusersvc.NewStateStore())

	err := s.RegisterNewUser(context.Background(), 100, "not-an-email")
	require.ErrorIs(t, err, telegramusersvc.ErrInvalidEmail)
}

func TestRegisterNewUser_UnknownEmail(t *testing.T) {
	users := &usersMock{byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
		return nil, errors.New("no rows")
	}}
	s := telegramusersvc.New(users, &targetsMock{}, telegramusersvc.NewStateStore())

	err := s.RegisterNewUser(context.Background(), 100, "ghost@example.com")
	require.ErrorIs(t, err, telegramusersvc.ErrUnknownEmail)
}

func TestRegisterNewUser_LinksChatAndClearsState(t *testing.T) {
	users := &usersMock{byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
		return &model.User{ID: 42, Email: email}, nil
	}}
	var gotChat, gotUser int64
	targets := &targetsMock{upsertFn: func(ctx context.Context, chatID, userID int64) error {
		gotChat, gotUser = chatID, userID
		return nil
	}}
	states := telegramusersvc.NewStateStore()
	states.Set(100, &telegramusersvc.ChatState{AwaitingEmail: true})

	s := telegramusersvc.New(users, targets, states)
	require.NoError(t, s.RegisterNewUser(context.Background(), 100, "ada@example.com"))

	require.EqualValues(t, 100, gotChat)
	require.EqualValues(t, 42, gotUser)

	st, ok := states.Get(100)
	require.True(t, ok)
	require.False(t, st.AwaitingEmail)
}

func TestUserForChat(t *testing.T) {
	targets := &targetsMock{byChatIDFn: func(ctx context.Context, chatID int64) (*model.TelegramUserInfo, error) {
		if chatID != 100 {
			return nil, errors.New("no rows")
		}
		return &model.TelegramUserInfo{ChatID: chatID, UserID: 42}, nil
	}}
	s := telegramusersvc.New(&usersMock{}, targets, telegramusersvc.NewStateStore())

	userID, err := s.UserForChat(context.Background(), 100)
	require.NoError(t, err)
	require.EqualValues(t, 42, userID)

	_, err = s.UserForChat(context.Background(), 200)
	require.Error(t, err)
}
