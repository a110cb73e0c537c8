package telegramusersvc

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/AntonBabychP1T/ca/model"
)

var emailRe = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%-]+@[A-Za-z0-9.-]+\.[A-Z]{2,4}\b`)

var (
	ErrInvalidEmail = errors.New("not a valid email")
	ErrUnknownEmail = errors.New("no user with that email")
)

// ChatState tracks the opt-in handshake for one chat.
type ChatState struct {
	AwaitingEmail bool
}

// StateStore is the keyed per-chat registration state, injected into the
// bot rather than living as a package-level map.
type StateStore struct {
	mu     sync.Mutex
	states map[int64]*ChatState
}

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[int64]*ChatState)}
}

func (s *StateStore) Get(chatID int64) (*ChatState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[chatID]
	return st, ok
}

func (s *StateStore) Set(chatID int64, st *ChatState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[chatID] = st
}

type Users interface {
	ByEmail(ctx context.Context, email string) (*model.User, error)
}

type Targets interface {
	Upsert(ctx context.Context, chatID, userID int64) error
	ByChatID(ctx context.Context, chatID int64) (*model.TelegramUserInfo, error)
}

type Service interface {
	// RegisterNewUser links a chat to the user owning the given email.
	RegisterNewUser(ctx context.Context, chatID int64, email string) error

	// UserForChat resolves the registered user behind a chat, if any.
	UserForChat(ctx context.Context, chatID int64) (int64, error)

	States() *StateStore
}

type service struct {
	users   Users
	targets Targets
	states  *StateStore
}

func New(users Users, targets Targets, states *StateStore) Service {
	return &service{users: users, targets: targets, states: states}
}

func (s *service) RegisterNewUser(ctx context.Context, chatID int64, email string) error {
	if !emailRe.MatchString(email) {
		return ErrInvalidEmail
	}
	u, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return ErrUnknownEmail
	}
	if err := s.targets.Upsert(ctx, chatID, u.ID); err != nil {
		return err
	}
	s.states.Set(chatID, &ChatState{AwaitingEmail: false})
	return nil
}

func (s *service) UserForChat(ctx context.Context, chatID int64) (int64, error) {
	t, err := s.targets.ByChatID(ctx, chatID)
	if err != nil {
		return 0, err
	}
	return t.UserID, nil
}

func (s *service) States() *StateStore { return s.states }
