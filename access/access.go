// Package access translates the generic room verbs into calls against the
// domain API, one strategy per action type.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/per"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

var (
	// ErrConfigurationMissing is returned by every real verb while no usable
	// backend configuration is set.
	ErrConfigurationMissing = errors.New("access: no usable API configuration")
	// ErrInvalidArguments is returned when a verb gets the wrong ids or payload.
	ErrInvalidArguments = errors.New("access: invalid arguments")
)

// MissingStrategyError is returned for action types without a strategy.
type MissingStrategyError struct {
	Type core.ActionType
}

func (e *MissingStrategyError) Error() string {
	return fmt.Sprintf("access: no strategy registered for action type %q", e.Type)
}

// Strategy implements the five verbs for one entity. Verbs that make no
// sense for the entity log a warning and return zero values.
type Strategy interface {
	Create(ctx context.Context, data any, ids ...string) (string, error)
	Delete(ctx context.Context, ids ...string) error
	Fetch(ctx context.Context, ids ...string) (any, error)
	SubscribeToChanges(ctx context.Context, cb func(any), ids ...string) (func(), error)
	Update(ctx context.Context, data any, ids ...string) error
}

// RoomAccess dispatches verbs to the strategy of their action type.
type RoomAccess struct {
	strategies map[core.ActionType]Strategy
	closers    []func() error
}

// New builds the room, question and like strategies on u, dialing backend
// clients with dial.
func New(u *utilities.Utilities, dial per.Dialer) *RoomAccess {
	room := NewRoomStrategy(u, dial)
	question := NewQuestionStrategy(u, dial)
	like := NewLikeStrategy(u, dial)
	return &RoomAccess{
		strategies: map[core.ActionType]Strategy{
			core.ActionRoom:     room,
			core.ActionQuestion: question,
			core.ActionLike:     like,
		},
		closers: []func() error{room.Close, question.Close, like.Close},
	}
}

// NewWithStrategies builds a RoomAccess over an explicit table.
func NewWithStrategies(strategies map[core.ActionType]Strategy) *RoomAccess {
	table := make(map[core.ActionType]Strategy, len(strategies))
	for k, v := range strategies {
		table[k] = v
	}
	return &RoomAccess{strategies: table}
}

func (a *RoomAccess) strategy(t core.ActionType) (Strategy, error) {
	s, ok := a.strategies[t]
	if !ok {
		return nil, &MissingStrategyError{Type: t}
	}
	return s, nil
}

func (a *RoomAccess) Create(ctx context.Context, t core.ActionType, data any, ids ...string) (string, error) {
	s, err := a.strategy(t)
	if err != nil {
		return "", err
	}
	return s.Create(ctx, data, ids...)
}

func (a *RoomAccess) Delete(ctx context.Context, t core.ActionType, ids ...string) error {
	s, err := a.strategy(t)
	if err != nil {
		return err
	}
	return s.Delete(ctx, ids...)
}

func (a *RoomAccess) Fetch(ctx context.Context, t core.ActionType, ids ...string) (any, error) {
	s, err := a.strategy(t)
	if err != nil {
		return nil, err
	}
	return s.Fetch(ctx, ids...)
}

func (a *RoomAccess) SubscribeToChanges(ctx context.Context, t core.ActionType, cb func(any), ids ...string) (func(), error) {
	s, err := a.strategy(t)
	if err != nil {
		return nil, err
	}
	return s.SubscribeToChanges(ctx, cb, ids...)
}

func (a *RoomAccess) Update(ctx context.Context, t core.ActionType, data any, ids ...string) error {
	s, err := a.strategy(t)
	if err != nil {
		return err
	}
	return s.Update(ctx, data, ids...)
}

// Close releases the backend clients of the strategies built by New.
func (a *RoomAccess) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func wantIDs(op string, ids []string, n int) error {
	if len(ids) != n {
		return fmt.Errorf("%w: %s needs %d ids, got %d", ErrInvalidArguments, op, n, len(ids))
	}
	for _, id := range ids {
		if err := core.ValidateID(id); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidArguments, op, err)
		}
	}
	return nil
}
