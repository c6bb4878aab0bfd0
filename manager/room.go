// Package manager is the user-facing layer over the room engine: it keeps
// the joined room's metadata, publishes room events for UI consumers and
// turns failures into toasts.
package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/engine"
	"github.com/ViniciusResende/PerguntaUFMG/notification"
	"github.com/ViniciusResende/PerguntaUFMG/pubsub"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

// Toast titles.
const (
	TitleCreateRoom     = "Error while creating room:"
	TitleDeleteQuestion = "Error while deleting question:"
	TitleDislike        = "Error while disliking question:"
	TitleEndRoom        = "Error while ending room:"
	TitleEditQuestion   = "Error while editing question:"
	TitleJoinRoom       = "Error while joining room:"
	TitleLike           = "Error while liking question:"
	TitleSendQuestion   = "Error while sending question:"
)

// RoomManager publishes core.EventRoomDataChanged with a core.Room and
// core.EventRoomMetadataChanged with a core.RoomMetadata.
type RoomManager struct {
	*pubsub.Bus

	u      *utilities.Utilities
	engine *engine.RoomEngine
	now    func() time.Time
	subs   []*pubsub.Subscription

	mu     sync.Mutex
	meta   *core.RoomMetadata
	cancel func()
	gen    uint64
}

// NewRoomManager creates a manager over eng that follows identity and
// configuration changes on u.
func NewRoomManager(u *utilities.Utilities, eng *engine.RoomEngine) *RoomManager {
	m := &RoomManager{
		Bus:    pubsub.New(),
		u:      u,
		engine: eng,
		now:    time.Now,
	}
	renew := func(ctx context.Context, _ pubsub.Event) { m.resubscribe(ctx) }
	m.subs = []*pubsub.Subscription{
		u.Security.SubscribeFunc(core.EventNewUserAuth, renew),
		u.Security.SubscribeFunc(core.EventExcludeAuthUser, renew),
		// registered after the access strategies, which rebuild their
		// clients first
		u.SubscribeFunc(core.EventConfigurationChanged, renew),
	}
	return m
}

// RoomMetadata returns the joined room snapshot, or nil.
func (m *RoomManager) RoomMetadata() *core.RoomMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meta == nil {
		return nil
	}
	cp := m.meta.Clone()
	return &cp
}

// JoinRoom fetches the room, makes it the joined room and starts following
// its changes.
func (m *RoomManager) JoinRoom(ctx context.Context, code string) (*core.Room, error) {
	room, err := m.join(ctx, code)
	if err != nil {
		m.toastError(ctx, TitleJoinRoom, err)
		return nil, err
	}
	return room, nil
}

// CreateRoom opens a room and joins it.
func (m *RoomManager) CreateRoom(ctx context.Context, data core.CreateRoomData) (*core.Room, error) {
	code, err := m.engine.CreateRoom(ctx, data)
	if err == nil {
		var room *core.Room
		room, err = m.join(ctx, code)
		if err == nil {
			return room, nil
		}
	}
	m.toastError(ctx, TitleCreateRoom, err)
	return nil, err
}

func (m *RoomManager) DeleteQuestion(ctx context.Context, questionID string) error {
	if err := m.engine.DeleteQuestion(ctx, questionID); err != nil {
		m.toastError(ctx, TitleDeleteQuestion, err)
		return err
	}
	return nil
}

// EndRoom ends the joined room. Unless a live update already delivered the
// stored timestamp, the room is marked ended locally until one does.
func (m *RoomManager) EndRoom(ctx context.Context) error {
	if err := m.engine.EndRoom(ctx); err != nil {
		m.toastError(ctx, TitleEndRoom, err)
		return err
	}
	now := m.now().UTC()
	m.mu.Lock()
	if m.meta == nil || m.meta.EndedAt != nil {
		m.mu.Unlock()
		return nil
	}
	m.meta.EndedAt = &now
	meta := m.meta.Clone()
	m.mu.Unlock()
	m.Publish(ctx, core.EventRoomMetadataChanged, meta)
	return nil
}

func (m *RoomManager) LikeQuestion(ctx context.Context, questionID string) {
	if _, err := m.engine.LikeQuestion(ctx, questionID); err != nil {
		m.toastError(ctx, TitleLike, err)
	}
}

func (m *RoomManager) DislikeQuestion(ctx context.Context, questionID, likeID string) {
	if err := m.engine.DislikeQuestion(ctx, questionID, likeID); err != nil {
		m.toastError(ctx, TitleDislike, err)
	}
}

func (m *RoomManager) CheckQuestionAsAnswered(ctx context.Context, questionID string) {
	if err := m.engine.QuestionUpdate(ctx, core.QuestionUpdate{IsAnswered: core.Bool(true)}, questionID); err != nil {
		m.toastError(ctx, TitleEditQuestion, err)
	}
}

func (m *RoomManager) HighlightQuestion(ctx context.Context, questionID string) {
	if err := m.engine.QuestionUpdate(ctx, core.QuestionUpdate{IsHighlighted: core.Bool(true)}, questionID); err != nil {
		m.toastError(ctx, TitleEditQuestion, err)
	}
}

func (m *RoomManager) SendQuestion(ctx context.Context, data core.CreateQuestionData) {
	if _, err := m.engine.CreateQuestion(ctx, data); err != nil {
		m.toastError(ctx, TitleSendQuestion, err)
	}
}

// Close stops the live subscription and the identity and configuration
// listeners.
func (m *RoomManager) Close() {
	for _, s := range m.subs {
		s.Unsubscribe()
	}
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.gen++
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *RoomManager) join(ctx context.Context, code string) (*core.Room, error) {
	room, err := m.engine.FetchRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	meta := room.Metadata()
	m.mu.Lock()
	m.meta = &meta
	m.mu.Unlock()
	m.Publish(ctx, core.EventRoomMetadataChanged, meta.Clone())
	if err := m.subscribe(ctx); err != nil {
		return nil, err
	}
	return room, nil
}

// subscribe replaces the live subscription with one for the current
// identity.
func (m *RoomManager) subscribe(ctx context.Context) error {
	m.mu.Lock()
	old := m.cancel
	m.cancel = nil
	m.gen++
	gen := m.gen
	m.mu.Unlock()
	if old != nil {
		old()
	}

	live := context.WithoutCancel(ctx)
	cancel, err := m.engine.SubscribeToRoomChanges(ctx, func(room *core.Room) { m.onRoomUpdate(live, gen, room) })
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		cancel()
		return nil
	}
	m.cancel = cancel
	m.mu.Unlock()
	return nil
}

func (m *RoomManager) resubscribe(ctx context.Context) {
	if m.RoomMetadata() == nil {
		return
	}
	if err := m.subscribe(ctx); err != nil {
		m.u.Logging.Warn("failed to renew room subscription", "error", err)
	}
}

func (m *RoomManager) onRoomUpdate(ctx context.Context, gen uint64, room *core.Room) {
	if room == nil {
		m.u.Logging.Warn("joined room is no longer available")
		return
	}
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	var changed *core.RoomMetadata
	if m.meta != nil && m.meta.ID == room.ID {
		next := room.Metadata()
		if !sameMetadata(*m.meta, next) {
			m.meta = &next
			cp := next.Clone()
			changed = &cp
		}
	}
	m.mu.Unlock()

	m.Publish(ctx, core.EventRoomDataChanged, room.Clone())
	if changed != nil {
		m.Publish(ctx, core.EventRoomMetadataChanged, *changed)
	}
}

func sameMetadata(a, b core.RoomMetadata) bool {
	if a.ID != b.ID || a.AuthorID != b.AuthorID {
		return false
	}
	if a.EndedAt == nil || b.EndedAt == nil {
		return a.EndedAt == nil && b.EndedAt == nil
	}
	return a.EndedAt.Equal(*b.EndedAt)
}

func (m *RoomManager) toastError(ctx context.Context, title string, err error) {
	key := "room_manager_error"
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		key = engErr.Kind()
	}
	if _, nerr := m.u.Notification.Toast(ctx, key, notification.StatusError, title, err.Error()); nerr != nil {
		m.u.Logging.Warn("failed to push notification", "key", key, "error", nerr)
	}
}
