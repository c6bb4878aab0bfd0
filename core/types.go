package core

import (
	"errors"
	"strings"
	"time"
)

// ActionType selects which entity a generic access verb operates on.
type ActionType string

const (
	ActionRoom     ActionType = "room"
	ActionQuestion ActionType = "question"
	ActionLike     ActionType = "like"
)

// AuthenticatedUser is the identity produced by the backend auth flow.
type AuthenticatedUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Profile string `json:"profile"`
}

// QuestionAuthor is the public face of whoever asked a question.
type QuestionAuthor struct {
	Name    string `json:"name"`
	Profile string `json:"profile"`
}

// Question is a hydrated question as seen by a particular requester.
// LikeID holds the requester's own like, empty when they have not liked it.
type Question struct {
	ID            string         `json:"id"`
	Content       string         `json:"content"`
	Author        QuestionAuthor `json:"author"`
	IsAnonymous   bool           `json:"isAnonymous"`
	IsAnswered    bool           `json:"isAnswered"`
	IsHighlighted bool           `json:"isHighlighted"`
	LikesCount    int            `json:"likesCount"`
	LikeID        string         `json:"likeId,omitempty"`
}

// Like is a single vote on a question.
type Like struct {
	AuthorID string `json:"authorId"`
}

// Room is a Q&A session. A room is terminal once EndedAt is set.
type Room struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	AuthorID  string     `json:"authorId"`
	EndedAt   *time.Time `json:"endedAt"`
	Questions []Question `json:"questions"`
}

// Ended reports whether the room was closed by its author.
func (r Room) Ended() bool { return r.EndedAt != nil }

// Metadata returns the session snapshot of the room.
func (r Room) Metadata() RoomMetadata {
	return RoomMetadata{ID: r.ID, AuthorID: r.AuthorID, EndedAt: cloneTime(r.EndedAt)}
}

// Clone returns a deep copy of the room.
func (r Room) Clone() Room {
	cp := r
	cp.EndedAt = cloneTime(r.EndedAt)
	if r.Questions != nil {
		cp.Questions = make([]Question, len(r.Questions))
		copy(cp.Questions, r.Questions)
	}
	return cp
}

// RoomMetadata is the minimal snapshot cached after joining a room.
type RoomMetadata struct {
	ID       string     `json:"id"`
	AuthorID string     `json:"authorId"`
	EndedAt  *time.Time `json:"endedAt"`
}

// Clone returns a deep copy of the metadata.
func (m RoomMetadata) Clone() RoomMetadata {
	m.EndedAt = cloneTime(m.EndedAt)
	return m
}

// CreateRoomData is the payload used to open a new room.
type CreateRoomData struct {
	Title    string `json:"title"`
	AuthorID string `json:"authorId"`
}

// CreateQuestionData is the payload used to post a question.
type CreateQuestionData struct {
	Author      QuestionAuthor `json:"author"`
	Content     string         `json:"content"`
	IsAnonymous bool           `json:"isAnonymous"`
}

// QuestionUpdate is a partial question update; nil fields are left untouched.
type QuestionUpdate struct {
	IsAnswered    *bool `json:"isAnswered,omitempty"`
	IsHighlighted *bool `json:"isHighlighted,omitempty"`
}

// RoomUpdate is a partial room update; nil fields are left untouched.
type RoomUpdate struct {
	Title   *string    `json:"title,omitempty"`
	EndedAt *time.Time `json:"endedAt,omitempty"`
}

// GeneralErrorPayload is published alongside unauthorized requests.
type GeneralErrorPayload struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Bool returns a pointer to b, handy for partial updates.
func Bool(b bool) *bool { return &b }

// ValidateRoomCode rejects codes that cannot be used as a single path segment.
func ValidateRoomCode(code string) error {
	return validateKey("room code", code)
}

// ValidateID rejects ids that cannot be used as a single path segment.
func ValidateID(id string) error {
	return validateKey("id", id)
}

func validateKey(what, s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("empty " + what)
	}
	if strings.ContainsAny(s, "/.#$[]") {
		return errors.New(what + " contains forbidden characters")
	}
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
