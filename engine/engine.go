// Package engine enforces session state and authorship before delegating
// room operations to the access layer. Every failure is logged and then
// returned as an *Error.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/logging"
)

// RoomEngine holds the joined room of one session.
type RoomEngine struct {
	access   Access
	identity Identity
	log      *logging.Service

	mu   sync.RWMutex
	meta *core.RoomMetadata
}

// New creates a RoomEngine. It panics when access or identity is nil.
func New(access Access, identity Identity, log *logging.Service) *RoomEngine {
	if access == nil || identity == nil {
		panic("engine.New requires non-nil access and identity")
	}
	if log == nil {
		log = logging.New(nil)
	}
	return &RoomEngine{access: access, identity: identity, log: log}
}

// RoomMetadata returns the joined room snapshot, or nil before FetchRoom.
func (e *RoomEngine) RoomMetadata() *core.RoomMetadata {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.meta == nil {
		return nil
	}
	m := e.meta.Clone()
	return &m
}

func (e *RoomEngine) setMetadata(m core.RoomMetadata) {
	e.mu.Lock()
	e.meta = &m
	e.mu.Unlock()
}

func (e *RoomEngine) fail(op string, reason error, msg string, cause error) error {
	err := &Error{Op: op, Reason: reason, Message: msg, Err: cause}
	args := []any{"op", op}
	if cause != nil {
		args = append(args, "error", cause)
	}
	e.log.Error(msg, args...)
	return err
}

func (e *RoomEngine) failAccess(op string, cause error) error {
	return e.fail(op, nil, cause.Error(), cause)
}

func (e *RoomEngine) unauthorized(ctx context.Context, op string, reason error, msg string) error {
	e.identity.PublishAPIRequestUnauthorized(ctx, core.GeneralErrorPayload{ErrorCode: http.StatusUnauthorized, ErrorMessage: msg})
	return e.fail(op, reason, msg, nil)
}

// requireAuthor checks the requester owns the joined room.
func (e *RoomEngine) requireAuthor(ctx context.Context, op, noRoom, denied string) (*core.RoomMetadata, error) {
	meta := e.RoomMetadata()
	if meta == nil || meta.ID == "" {
		return nil, e.fail(op, ErrNoRoomSelected, noRoom, nil)
	}
	requester := e.identity.UserID(ctx)
	if requester == "" || requester != meta.AuthorID {
		return nil, e.unauthorized(ctx, op, ErrNotAuthor, denied)
	}
	return meta, nil
}

// requireRequester checks there is an authenticated user and a joined room.
func (e *RoomEngine) requireRequester(ctx context.Context, op, denied, noRoom string) (string, *core.RoomMetadata, error) {
	requester := e.identity.UserID(ctx)
	if requester == "" {
		return "", nil, e.unauthorized(ctx, op, ErrNotAuthenticated, denied)
	}
	meta := e.RoomMetadata()
	if meta == nil || meta.ID == "" {
		return "", nil, e.fail(op, ErrNoRoomSelected, noRoom, nil)
	}
	return requester, meta, nil
}

// FetchRoom loads the room as seen by the current user and joins it.
func (e *RoomEngine) FetchRoom(ctx context.Context, code string) (*core.Room, error) {
	const op = "fetchRoom"
	v, err := e.access.Fetch(ctx, core.ActionRoom, code, e.identity.UserID(ctx))
	if err != nil {
		return nil, e.failAccess(op, err)
	}
	room, _ := v.(*core.Room)
	if room == nil {
		return nil, e.fail(op, ErrRoomNotFound, fmt.Sprintf("Room with code %s not found.", code), nil)
	}
	e.setMetadata(room.Metadata())
	return room, nil
}

// CreateRoom opens a room and returns its code. It does not join it.
func (e *RoomEngine) CreateRoom(ctx context.Context, data core.CreateRoomData) (string, error) {
	const op = "createRoom"
	id, err := e.access.Create(ctx, core.ActionRoom, data)
	if err != nil {
		return "", e.failAccess(op, err)
	}
	if id == "" {
		return "", e.fail(op, ErrRoomNotCreated, "Error while creating room.", nil)
	}
	return id, nil
}

// CreateQuestion posts a question to the joined room unless it has ended.
func (e *RoomEngine) CreateQuestion(ctx context.Context, data core.CreateQuestionData) (string, error) {
	const op = "createQuestion"
	meta := e.RoomMetadata()
	if meta == nil || meta.ID == "" {
		return "", e.fail(op, ErrNoRoomSelected, "No room selected to create question at.", nil)
	}
	if meta.EndedAt != nil {
		return "", e.fail(op, ErrRoomEnded, fmt.Sprintf("Room %s has ended and no longer accepts questions.", meta.ID), nil)
	}
	id, err := e.access.Create(ctx, core.ActionQuestion, data, meta.ID)
	if err != nil {
		return "", e.failAccess(op, err)
	}
	return id, nil
}

// LikeQuestion records a like by the current user and returns its id.
func (e *RoomEngine) LikeQuestion(ctx context.Context, questionID string) (string, error) {
	const op = "likeQuestion"
	requester, meta, err := e.requireRequester(ctx, op,
		"User is not authenticated to like a question.",
		"No room selected to like question at.")
	if err != nil {
		return "", err
	}
	id, err := e.access.Create(ctx, core.ActionLike, core.Like{AuthorID: requester}, meta.ID, questionID)
	if err != nil {
		return "", e.failAccess(op, err)
	}
	return id, nil
}

// DislikeQuestion removes a like. The like is not checked against the
// requester.
func (e *RoomEngine) DislikeQuestion(ctx context.Context, questionID, likeID string) error {
	const op = "dislikeQuestion"
	_, meta, err := e.requireRequester(ctx, op,
		"User is not authenticated to dislike a question.",
		"No room selected to dislike question at.")
	if err != nil {
		return err
	}
	if err := e.access.Delete(ctx, core.ActionLike, meta.ID, questionID, likeID); err != nil {
		return e.failAccess(op, err)
	}
	return nil
}

// DeleteQuestion removes a question; only the room author may.
func (e *RoomEngine) DeleteQuestion(ctx context.Context, questionID string) error {
	const op = "deleteQuestion"
	meta, err := e.requireAuthor(ctx, op,
		"No room selected to delete question at.",
		"Only the room author can delete a question.")
	if err != nil {
		return err
	}
	if err := e.access.Delete(ctx, core.ActionQuestion, meta.ID, questionID); err != nil {
		return e.failAccess(op, err)
	}
	return nil
}

// EndRoom closes the joined room; only the room author may.
func (e *RoomEngine) EndRoom(ctx context.Context) error {
	const op = "endRoom"
	meta, err := e.requireAuthor(ctx, op,
		"No room selected to end.",
		"Only the room author can end a room.")
	if err != nil {
		return err
	}
	if err := e.access.Delete(ctx, core.ActionRoom, meta.ID); err != nil {
		return e.failAccess(op, err)
	}
	now := time.Now().UTC()
	e.mu.Lock()
	if e.meta != nil && e.meta.ID == meta.ID && e.meta.EndedAt == nil {
		e.meta.EndedAt = &now
	}
	e.mu.Unlock()
	return nil
}

// QuestionUpdate applies moderation flags; only the room author may.
func (e *RoomEngine) QuestionUpdate(ctx context.Context, data core.QuestionUpdate, questionID string) error {
	const op = "questionUpdate"
	meta, err := e.requireAuthor(ctx, op,
		"No room selected to update question at.",
		"Only the room author can update a question.")
	if err != nil {
		return err
	}
	if err := e.access.Update(ctx, core.ActionQuestion, data, meta.ID, questionID); err != nil {
		return e.failAccess(op, err)
	}
	return nil
}

// SubscribeToRoomChanges calls cb with the joined room, hydrated for the
// current (possibly anonymous) user, on every change. Live values refresh
// the cached metadata.
func (e *RoomEngine) SubscribeToRoomChanges(ctx context.Context, cb func(*core.Room)) (func(), error) {
	const op = "subscribeToRoomChanges"
	meta := e.RoomMetadata()
	if meta == nil || meta.ID == "" {
		return nil, e.fail(op, ErrNoRoomSelected, "No room selected to subscribe.", nil)
	}
	roomID := meta.ID
	cancel, err := e.access.SubscribeToChanges(ctx, core.ActionRoom, func(v any) {
		room, _ := v.(*core.Room)
		if room != nil {
			e.mu.Lock()
			if e.meta != nil && e.meta.ID == room.ID {
				m := room.Metadata()
				e.meta = &m
			}
			e.mu.Unlock()
		}
		cb(room)
	}, roomID, e.identity.UserID(ctx))
	if err != nil {
		return nil, e.failAccess(op, err)
	}
	return cancel, nil
}
