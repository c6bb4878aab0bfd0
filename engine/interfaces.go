package engine

import (
	"context"

	"github.com/ViniciusResende/PerguntaUFMG/core"
)

// Access abstracts the generic room verbs the engine delegates to.
type Access interface {
	Create(ctx context.Context, t core.ActionType, data any, ids ...string) (string, error)
	Delete(ctx context.Context, t core.ActionType, ids ...string) error
	Fetch(ctx context.Context, t core.ActionType, ids ...string) (any, error)
	SubscribeToChanges(ctx context.Context, t core.ActionType, cb func(any), ids ...string) (func(), error)
	Update(ctx context.Context, t core.ActionType, data any, ids ...string) error
}

// Identity reports who is making requests and records refused ones.
type Identity interface {
	UserID(ctx context.Context) string
	PublishAPIRequestUnauthorized(ctx context.Context, payload core.GeneralErrorPayload)
}
