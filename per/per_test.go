package per

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViniciusResende/PerguntaUFMG/adapters/memory"
	"github.com/ViniciusResende/PerguntaUFMG/backend"
	"github.com/ViniciusResende/PerguntaUFMG/core"
)

func newAPI(t *testing.T) (*API, *memory.DB) {
	t.Helper()
	db := memory.NewDB()
	api := NewWithClient(memory.New(db, memory.WithIDGenerator(memory.SequentialIDs("id"))))
	t.Cleanup(func() { _ = api.Close() })
	return api, db
}

func TestNewRequiresConfiguration(t *testing.T) {
	_, err := New(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoConfiguration)

	dialErr := errors.New("boom")
	_, err = New(context.Background(), map[string]any{"adapter": "x"}, func(context.Context, map[string]any) (backend.Client, error) {
		return nil, dialErr
	})
	assert.ErrorIs(t, err, dialErr)
}

func TestRoomLifecycle(t *testing.T) {
	api, db := newAPI(t)
	ctx := context.Background()

	code, err := api.CreateRoom(ctx, core.CreateRoomData{Title: "Aula", AuthorID: "u1"})
	require.NoError(t, err)

	q1, err := api.CreateQuestion(ctx, code, core.CreateQuestionData{
		Author:  core.QuestionAuthor{Name: "Ana", Profile: "p"},
		Content: "first",
	})
	require.NoError(t, err)
	q2, err := api.CreateQuestion(ctx, code, core.CreateQuestionData{Content: "second", IsAnonymous: true})
	require.NoError(t, err)

	// stored with moderation flags
	assert.Equal(t, false, db.Snapshot([]string{"rooms", code, "questions", q1, "isAnswered"}))

	likeID, err := api.CreateQuestionLike(ctx, code, q1, core.Like{AuthorID: "u2"})
	require.NoError(t, err)
	_, err = api.CreateQuestionLike(ctx, code, q1, core.Like{AuthorID: "u3"})
	require.NoError(t, err)

	room, err := api.FetchRoom(ctx, code, "u2")
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, code, room.ID)
	assert.Equal(t, "Aula", room.Title)
	assert.Equal(t, "u1", room.AuthorID)
	assert.Nil(t, room.EndedAt)
	require.Len(t, room.Questions, 2)
	assert.Equal(t, q2, room.Questions[0].ID, "newest first")
	assert.Equal(t, q1, room.Questions[1].ID)
	assert.Equal(t, 2, room.Questions[1].LikesCount)
	assert.Equal(t, likeID, room.Questions[1].LikeID)
	assert.Equal(t, "Ana", room.Questions[1].Author.Name)
	assert.True(t, room.Questions[0].IsAnonymous)

	require.NoError(t, api.UpdateQuestion(ctx, code, q1, core.QuestionUpdate{IsHighlighted: core.Bool(true)}))
	require.NoError(t, api.DeleteQuestionLike(ctx, code, q1, likeID))
	require.NoError(t, api.DeleteQuestion(ctx, code, q2))

	ended := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, api.UpdateRoom(ctx, code, core.RoomUpdate{EndedAt: &ended}))
	assert.Equal(t, "2024-05-01T12:00:00Z", db.Snapshot([]string{"rooms", code, "endedAt"}))

	room, err = api.FetchRoom(ctx, code, "u2")
	require.NoError(t, err)
	require.Len(t, room.Questions, 1)
	assert.True(t, room.Questions[0].IsHighlighted)
	assert.Equal(t, 1, room.Questions[0].LikesCount)
	assert.Empty(t, room.Questions[0].LikeID)
	require.NotNil(t, room.EndedAt)
	assert.True(t, room.EndedAt.Equal(ended))
}

func TestFetchMissingRoomReturnsNil(t *testing.T) {
	api, _ := newAPI(t)
	room, err := api.FetchRoom(context.Background(), "nope", "")
	require.NoError(t, err)
	assert.Nil(t, room)
}

func TestOnRoomChange(t *testing.T) {
	api, _ := newAPI(t)
	ctx := context.Background()
	code, err := api.CreateRoom(ctx, core.CreateRoomData{Title: "Aula", AuthorID: "u1"})
	require.NoError(t, err)

	var got []*core.Room
	cancel, err := api.OnRoomChange(ctx, code, "u1", func(r *core.Room) { got = append(got, r) })
	require.NoError(t, err)

	_, err = api.CreateQuestion(ctx, code, core.CreateQuestionData{Content: "why?"})
	require.NoError(t, err)
	cancel()
	_, err = api.CreateQuestion(ctx, code, core.CreateQuestionData{Content: "ignored"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Empty(t, got[0].Questions)
	require.Len(t, got[1].Questions, 1)
	assert.Equal(t, "why?", got[1].Questions[0].Content)
}

func TestUpdateRoomWithoutFieldsIsNoop(t *testing.T) {
	api, _ := newAPI(t)
	assert.NoError(t, api.UpdateRoom(context.Background(), "r1", core.RoomUpdate{}))
}

func TestAuthenticate(t *testing.T) {
	secret := []byte("k")
	token, err := backend.SignToken(secret, "u1", "Ana", "pic", time.Hour)
	require.NoError(t, err)
	api := NewWithClient(memory.New(nil, memory.WithAuthenticator(backend.NewTokenAuthenticator(secret, token))))

	user, err := api.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.AuthenticatedUser{ID: "u1", Name: "Ana", Profile: "pic"}, user)

	require.NoError(t, api.SignOut(context.Background()))
	_, err = api.Authenticate(context.Background())
	assert.ErrorIs(t, err, backend.ErrAuthenticationFailed)
}
