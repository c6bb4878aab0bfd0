package access

import (
	"context"
	"fmt"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/per"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

// QuestionStrategy handles core.ActionQuestion. Ids are
// (roomCode[, questionID]). Room subscriptions already carry question
// changes, so there is no fetch or subscribe.
type QuestionStrategy struct {
	*apiHolder
}

// NewQuestionStrategy creates the question strategy with its own API client.
func NewQuestionStrategy(u *utilities.Utilities, dial per.Dialer) *QuestionStrategy {
	return &QuestionStrategy{apiHolder: newAPIHolder(u, dial, string(core.ActionQuestion))}
}

func (s *QuestionStrategy) Create(ctx context.Context, data any, ids ...string) (string, error) {
	if err := wantIDs("create question", ids, 1); err != nil {
		return "", err
	}
	var payload core.CreateQuestionData
	switch d := data.(type) {
	case core.CreateQuestionData:
		payload = d
	case *core.CreateQuestionData:
		if d == nil {
			return "", fmt.Errorf("%w: nil question data", ErrInvalidArguments)
		}
		payload = *d
	default:
		return "", fmt.Errorf("%w: create question expects CreateQuestionData, got %T", ErrInvalidArguments, data)
	}
	api, err := s.current()
	if err != nil {
		return "", err
	}
	return api.CreateQuestion(ctx, ids[0], payload)
}

func (s *QuestionStrategy) Delete(ctx context.Context, ids ...string) error {
	if err := wantIDs("delete question", ids, 2); err != nil {
		return err
	}
	api, err := s.current()
	if err != nil {
		return err
	}
	return api.DeleteQuestion(ctx, ids[0], ids[1])
}

func (s *QuestionStrategy) Fetch(context.Context, ...string) (any, error) {
	s.unsupported("fetch")
	return nil, nil
}

func (s *QuestionStrategy) SubscribeToChanges(context.Context, func(any), ...string) (func(), error) {
	s.unsupported("subscribeToChanges")
	return func() {}, nil
}

func (s *QuestionStrategy) Update(ctx context.Context, data any, ids ...string) error {
	if err := wantIDs("update question", ids, 2); err != nil {
		return err
	}
	var patch core.QuestionUpdate
	switch d := data.(type) {
	case core.QuestionUpdate:
		patch = d
	case *core.QuestionUpdate:
		if d == nil {
			return fmt.Errorf("%w: nil question update", ErrInvalidArguments)
		}
		patch = *d
	default:
		return fmt.Errorf("%w: update question expects QuestionUpdate, got %T", ErrInvalidArguments, data)
	}
	api, err := s.current()
	if err != nil {
		return err
	}
	return api.UpdateQuestion(ctx, ids[0], ids[1], patch)
}
