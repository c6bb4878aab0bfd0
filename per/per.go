// Package per is the domain API over the realtime backend: it knows the
// path scheme of rooms, questions and likes and turns raw records into
// hydrated rooms.
package per

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ViniciusResende/PerguntaUFMG/backend"
	"github.com/ViniciusResende/PerguntaUFMG/core"
)

// ErrNoConfiguration is returned when an API is built without a backend
// configuration.
var ErrNoConfiguration = errors.New("per: no API configuration object found")

// Dialer connects a backend client for an API configuration.
type Dialer func(ctx context.Context, apiConfig map[string]any) (backend.Client, error)

// API performs domain operations against one backend client.
type API struct {
	client backend.Client
}

// New dials a backend client for apiConfig.
func New(ctx context.Context, apiConfig map[string]any, dial Dialer) (*API, error) {
	if len(apiConfig) == 0 {
		return nil, ErrNoConfiguration
	}
	if dial == nil {
		return nil, errors.New("per: dialer is required")
	}
	client, err := dial(ctx, apiConfig)
	if err != nil {
		return nil, fmt.Errorf("per: dial backend: %w", err)
	}
	return &API{client: client}, nil
}

// NewWithClient wraps an already connected client.
func NewWithClient(client backend.Client) *API { return &API{client: client} }

// Close releases the backend client and its subscriptions.
func (a *API) Close() error { return a.client.Close() }

// Authenticate runs the backend sign-in flow.
func (a *API) Authenticate(ctx context.Context) (core.AuthenticatedUser, error) {
	resp, err := a.client.Authenticate(ctx)
	if err != nil {
		return core.AuthenticatedUser{}, err
	}
	if resp.UID == "" {
		return core.AuthenticatedUser{}, backend.ErrAuthenticationFailed
	}
	return core.AuthenticatedUser{ID: resp.UID, Name: resp.DisplayName, Profile: resp.PhotoURL}, nil
}

func (a *API) SignOut(ctx context.Context) error { return a.client.SignOut(ctx) }

// CreateRoom stores a new room and returns its code.
func (a *API) CreateRoom(ctx context.Context, data core.CreateRoomData) (string, error) {
	return a.client.WriteData(ctx, "rooms/", data)
}

// CreateQuestion adds a question to a room and returns its id.
func (a *API) CreateQuestion(ctx context.Context, roomCode string, data core.CreateQuestionData) (string, error) {
	return a.client.WriteData(ctx, roomPath(roomCode)+"/questions/", questionRecord{
		Content:     data.Content,
		Author:      data.Author,
		IsAnonymous: data.IsAnonymous,
	})
}

// CreateQuestionLike adds a like to a question and returns its id.
func (a *API) CreateQuestionLike(ctx context.Context, roomCode, questionID string, data core.Like) (string, error) {
	return a.client.WriteData(ctx, questionPath(roomCode, questionID)+"/likes/", data)
}

// FetchRoom returns the room hydrated for requesterID, or nil when the room
// does not exist.
func (a *API) FetchRoom(ctx context.Context, roomCode, requesterID string) (*core.Room, error) {
	raw, err := a.client.FetchData(ctx, roomPath(roomCode))
	if errors.Is(err, backend.ErrNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return transformRoom(roomCode, raw, requesterID)
}

func (a *API) DeleteQuestion(ctx context.Context, roomCode, questionID string) error {
	return a.client.DeleteData(ctx, questionPath(roomCode, questionID))
}

func (a *API) DeleteQuestionLike(ctx context.Context, roomCode, questionID, likeID string) error {
	return a.client.DeleteData(ctx, questionPath(roomCode, questionID)+"/likes/"+likeID)
}

// OnRoomChange calls cb with the hydrated room on every change. cb receives
// nil when the room is gone or its record cannot be decoded.
func (a *API) OnRoomChange(ctx context.Context, roomCode, requesterID string, cb func(*core.Room)) (func(), error) {
	return a.client.OnDataChange(ctx, roomPath(roomCode), func(raw any) {
		if raw == nil {
			cb(nil)
			return
		}
		room, err := transformRoom(roomCode, raw, requesterID)
		if err != nil {
			cb(nil)
			return
		}
		cb(room)
	})
}

// UpdateQuestion applies the set fields of data to a question.
func (a *API) UpdateQuestion(ctx context.Context, roomCode, questionID string, data core.QuestionUpdate) error {
	return a.client.UpdateData(ctx, questionPath(roomCode, questionID), data)
}

// UpdateRoom applies the set fields of data to a room.
func (a *API) UpdateRoom(ctx context.Context, roomCode string, data core.RoomUpdate) error {
	patch := map[string]any{}
	if data.Title != nil {
		patch["title"] = *data.Title
	}
	if data.EndedAt != nil {
		patch["endedAt"] = data.EndedAt.UTC().Format(time.RFC3339Nano)
	}
	if len(patch) == 0 {
		return nil
	}
	return a.client.UpdateData(ctx, roomPath(roomCode), patch)
}

func roomPath(code string) string { return "rooms/" + code }

func questionPath(code, questionID string) string {
	return roomPath(code) + "/questions/" + questionID
}
