package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is matched by every authorization refusal.
	ErrUnauthorized = errors.New("engine: unauthorized")

	ErrNotAuthenticated = fmt.Errorf("%w: not authenticated", ErrUnauthorized)
	ErrNotAuthor        = fmt.Errorf("%w: not the room author", ErrUnauthorized)
	ErrNoRoomSelected   = errors.New("engine: no room selected")
	ErrRoomNotFound     = errors.New("engine: room not found")
	ErrRoomNotCreated   = errors.New("engine: room not created")
	ErrRoomEnded        = errors.New("engine: room has ended")
)

// Error is returned by every failed engine operation. Message is meant for
// end users; Reason is one of the sentinels above, or nil when the failure
// came from the access layer, in which case Err holds the cause.
type Error struct {
	Op      string
	Reason  error
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Reason != nil {
		errs = append(errs, e.Reason)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Kind names the failure for notification keys.
func (e *Error) Kind() string {
	switch {
	case e.Reason == nil:
		return "room_engine_error"
	case errors.Is(e.Reason, ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(e.Reason, ErrNotAuthor):
		return "not_author"
	case errors.Is(e.Reason, ErrNoRoomSelected):
		return "no_room_selected"
	case errors.Is(e.Reason, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(e.Reason, ErrRoomNotCreated):
		return "room_not_created"
	case errors.Is(e.Reason, ErrRoomEnded):
		return "room_ended"
	}
	return "room_engine_error"
}
