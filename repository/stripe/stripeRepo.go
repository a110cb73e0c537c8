package striperepo

import "context"

type CreateSessionReq struct {
	AmountCents int64
	Currency    string
	Description string
}

type Session struct {
	ID     string
	URL    string
	Status string // open | complete | expired
}

type Repo interface {
	CreateSession(ctx context.Context, req CreateSessionReq) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
}
