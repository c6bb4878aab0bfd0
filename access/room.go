package access

import (
	"context"
	"fmt"
	"time"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/per"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

// RoomStrategy handles core.ActionRoom. Ids are (roomCode[, requesterID]).
type RoomStrategy struct {
	*apiHolder
	now func() time.Time
}

// NewRoomStrategy creates the room strategy with its own API client.
func NewRoomStrategy(u *utilities.Utilities, dial per.Dialer) *RoomStrategy {
	return &RoomStrategy{apiHolder: newAPIHolder(u, dial, string(core.ActionRoom)), now: time.Now}
}

// Create opens a room and returns its code.
func (s *RoomStrategy) Create(ctx context.Context, data any, ids ...string) (string, error) {
	if err := wantIDs("create room", ids, 0); err != nil {
		return "", err
	}
	var payload core.CreateRoomData
	switch d := data.(type) {
	case core.CreateRoomData:
		payload = d
	case *core.CreateRoomData:
		if d == nil {
			return "", fmt.Errorf("%w: nil room data", ErrInvalidArguments)
		}
		payload = *d
	default:
		return "", fmt.Errorf("%w: create room expects CreateRoomData, got %T", ErrInvalidArguments, data)
	}
	api, err := s.current()
	if err != nil {
		return "", err
	}
	return api.CreateRoom(ctx, payload)
}

// Delete ends the room by stamping endedAt; the record is kept.
func (s *RoomStrategy) Delete(ctx context.Context, ids ...string) error {
	if err := wantIDs("end room", ids, 1); err != nil {
		return err
	}
	api, err := s.current()
	if err != nil {
		return err
	}
	now := s.now().UTC()
	return api.UpdateRoom(ctx, ids[0], core.RoomUpdate{EndedAt: &now})
}

// Fetch returns the hydrated *core.Room, or nil when it does not exist.
func (s *RoomStrategy) Fetch(ctx context.Context, ids ...string) (any, error) {
	code, requester, err := roomIDs("fetch room", ids)
	if err != nil {
		return nil, err
	}
	api, err := s.current()
	if err != nil {
		return nil, err
	}
	room, err := api.FetchRoom(ctx, code, requester)
	if err != nil || room == nil {
		return nil, err
	}
	return room, nil
}

// SubscribeToChanges calls cb with a *core.Room on every change, or nil
// once the room is gone.
func (s *RoomStrategy) SubscribeToChanges(ctx context.Context, cb func(any), ids ...string) (func(), error) {
	code, requester, err := roomIDs("subscribe room", ids)
	if err != nil {
		return nil, err
	}
	if cb == nil {
		return nil, fmt.Errorf("%w: nil callback", ErrInvalidArguments)
	}
	api, err := s.current()
	if err != nil {
		return nil, err
	}
	return api.OnRoomChange(ctx, code, requester, func(room *core.Room) {
		if room == nil {
			cb(nil)
			return
		}
		cb(room)
	})
}

// Update applies a core.RoomUpdate.
func (s *RoomStrategy) Update(ctx context.Context, data any, ids ...string) error {
	if err := wantIDs("update room", ids, 1); err != nil {
		return err
	}
	var patch core.RoomUpdate
	switch d := data.(type) {
	case core.RoomUpdate:
		patch = d
	case *core.RoomUpdate:
		if d == nil {
			return fmt.Errorf("%w: nil room update", ErrInvalidArguments)
		}
		patch = *d
	default:
		return fmt.Errorf("%w: update room expects RoomUpdate, got %T", ErrInvalidArguments, data)
	}
	api, err := s.current()
	if err != nil {
		return err
	}
	return api.UpdateRoom(ctx, ids[0], patch)
}

// roomIDs accepts (code) or (code, requester); the requester may be empty
// for anonymous viewers.
func roomIDs(op string, ids []string) (string, string, error) {
	switch len(ids) {
	case 1, 2:
	default:
		return "", "", fmt.Errorf("%w: %s needs a room code and an optional requester, got %d ids", ErrInvalidArguments, op, len(ids))
	}
	if err := core.ValidateRoomCode(ids[0]); err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, op, err)
	}
	if len(ids) == 1 {
		return ids[0], "", nil
	}
	return ids[0], ids[1], nil
}
