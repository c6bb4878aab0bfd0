package access

import (
	"context"
	"fmt"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/per"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

// LikeStrategy handles core.ActionLike. Ids are
// (roomCode, questionID[, likeID]).
type LikeStrategy struct {
	*apiHolder
}

// NewLikeStrategy creates the like strategy with its own API client.
func NewLikeStrategy(u *utilities.Utilities, dial per.Dialer) *LikeStrategy {
	return &LikeStrategy{apiHolder: newAPIHolder(u, dial, string(core.ActionLike))}
}

func (s *LikeStrategy) Create(ctx context.Context, data any, ids ...string) (string, error) {
	if err := wantIDs("create like", ids, 2); err != nil {
		return "", err
	}
	var like core.Like
	switch d := data.(type) {
	case core.Like:
		like = d
	case *core.Like:
		if d == nil {
			return "", fmt.Errorf("%w: nil like", ErrInvalidArguments)
		}
		like = *d
	default:
		return "", fmt.Errorf("%w: create like expects Like, got %T", ErrInvalidArguments, data)
	}
	if like.AuthorID == "" {
		return "", fmt.Errorf("%w: like needs an author", ErrInvalidArguments)
	}
	api, err := s.current()
	if err != nil {
		return "", err
	}
	return api.CreateQuestionLike(ctx, ids[0], ids[1], like)
}

func (s *LikeStrategy) Delete(ctx context.Context, ids ...string) error {
	if err := wantIDs("delete like", ids, 3); err != nil {
		return err
	}
	api, err := s.current()
	if err != nil {
		return err
	}
	return api.DeleteQuestionLike(ctx, ids[0], ids[1], ids[2])
}

func (s *LikeStrategy) Fetch(context.Context, ...string) (any, error) {
	s.unsupported("fetch")
	return nil, nil
}

func (s *LikeStrategy) SubscribeToChanges(context.Context, func(any), ...string) (func(), error) {
	s.unsupported("subscribeToChanges")
	return func() {}, nil
}

func (s *LikeStrategy) Update(context.Context, any, ...string) error {
	s.unsupported("update")
	return nil
}
