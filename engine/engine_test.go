package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViniciusResende/PerguntaUFMG/access"
	"github.com/ViniciusResende/PerguntaUFMG/adapters/memory"
	"github.com/ViniciusResende/PerguntaUFMG/backend"
	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/logging"
	"github.com/ViniciusResende/PerguntaUFMG/pubsub"
	"github.com/ViniciusResende/PerguntaUFMG/security"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

type call struct {
	verb string
	typ  core.ActionType
	data any
	ids  []string
}

// recordingAccess answers from canned values and records every call.
type recordingAccess struct {
	calls []call
	room  *core.Room
	id    string
	err   error
}

func (r *recordingAccess) Create(_ context.Context, t core.ActionType, data any, ids ...string) (string, error) {
	r.calls = append(r.calls, call{"create", t, data, ids})
	return r.id, r.err
}

func (r *recordingAccess) Delete(_ context.Context, t core.ActionType, ids ...string) error {
	r.calls = append(r.calls, call{"delete", t, nil, ids})
	return r.err
}

func (r *recordingAccess) Fetch(_ context.Context, t core.ActionType, ids ...string) (any, error) {
	r.calls = append(r.calls, call{"fetch", t, nil, ids})
	if r.err != nil || r.room == nil {
		return nil, r.err
	}
	return r.room, nil
}

func (r *recordingAccess) SubscribeToChanges(_ context.Context, t core.ActionType, cb func(any), ids ...string) (func(), error) {
	r.calls = append(r.calls, call{"subscribe", t, nil, ids})
	if r.err != nil {
		return nil, r.err
	}
	cb(r.room)
	return func() {}, nil
}

func (r *recordingAccess) Update(_ context.Context, t core.ActionType, data any, ids ...string) error {
	r.calls = append(r.calls, call{"update", t, data, ids})
	return r.err
}

type unauthorizedRecorder struct{ payloads []core.GeneralErrorPayload }

func (u *unauthorizedRecorder) OnEvent(_ context.Context, ev pubsub.Event) {
	if p, ok := ev.Payload.(core.GeneralErrorPayload); ok {
		u.payloads = append(u.payloads, p)
	}
}

func newEngine(t *testing.T, a Access) (*RoomEngine, *security.Security, *unauthorizedRecorder, *logging.Memory) {
	t.Helper()
	mem := logging.NewMemory()
	log := logging.New(mem)
	sec := security.New(nil, log)
	rec := &unauthorizedRecorder{}
	sec.Subscribe(core.EventAPIRequestUnauthorized, rec)
	return New(a, sec, log), sec, rec, mem
}

func signIn(t *testing.T, sec *security.Security, id string) {
	t.Helper()
	require.NoError(t, sec.SetUser(context.Background(), core.AuthenticatedUser{ID: id, Name: id}))
}

func TestJoinThenModerate(t *testing.T) {
	a := &recordingAccess{room: &core.Room{ID: "r1", AuthorID: "u1"}}
	e, sec, rec, mem := newEngine(t, a)
	ctx := context.Background()

	room, err := e.FetchRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", room.ID)
	assert.Equal(t, &core.RoomMetadata{ID: "r1", AuthorID: "u1"}, e.RoomMetadata())

	signIn(t, sec, "u2")
	err = e.DeleteQuestion(ctx, "q1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthor)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Only the room author can delete a question.", err.Error())
	require.Len(t, rec.payloads, 1)
	assert.Equal(t, core.GeneralErrorPayload{ErrorCode: 401, ErrorMessage: "Only the room author can delete a question."}, rec.payloads[0])
	assert.NotEmpty(t, mem.ByLevel(logging.LevelError))

	signIn(t, sec, "u1")
	require.NoError(t, e.DeleteQuestion(ctx, "q1"))
	last := a.calls[len(a.calls)-1]
	assert.Equal(t, call{"delete", core.ActionQuestion, nil, []string{"r1", "q1"}}, last)
	assert.Len(t, rec.payloads, 1)
}

func TestOperationsNeedJoinedRoom(t *testing.T) {
	a := &recordingAccess{}
	e, sec, _, _ := newEngine(t, a)
	ctx := context.Background()
	signIn(t, sec, "u1")

	_, err := e.CreateQuestion(ctx, core.CreateQuestionData{Content: "why?"})
	assert.ErrorIs(t, err, ErrNoRoomSelected)
	assert.Equal(t, "No room selected to create question at.", err.Error())
	_, err = e.LikeQuestion(ctx, "q1")
	assert.ErrorIs(t, err, ErrNoRoomSelected)
	assert.ErrorIs(t, e.DislikeQuestion(ctx, "q1", "l1"), ErrNoRoomSelected)
	assert.ErrorIs(t, e.DeleteQuestion(ctx, "q1"), ErrNoRoomSelected)
	assert.ErrorIs(t, e.EndRoom(ctx), ErrNoRoomSelected)
	assert.ErrorIs(t, e.QuestionUpdate(ctx, core.QuestionUpdate{IsAnswered: core.Bool(true)}, "q1"), ErrNoRoomSelected)
	_, err = e.SubscribeToRoomChanges(ctx, func(*core.Room) {})
	assert.ErrorIs(t, err, ErrNoRoomSelected)
	assert.Equal(t, "No room selected to subscribe.", err.Error())
	assert.Empty(t, a.calls)
}

func TestUnauthenticatedLike(t *testing.T) {
	a := &recordingAccess{room: &core.Room{ID: "r1", AuthorID: "u1"}}
	e, _, rec, _ := newEngine(t, a)
	ctx := context.Background()
	_, err := e.FetchRoom(ctx, "r1")
	require.NoError(t, err)
	calls := len(a.calls)

	_, err = e.LikeQuestion(ctx, "q1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "not authenticated")
	assert.Len(t, a.calls, calls, "access layer is not reached")
	require.Len(t, rec.payloads, 1)
	assert.Equal(t, 401, rec.payloads[0].ErrorCode)

	var engErr *Error
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, "likeQuestion", engErr.Op)
	assert.Equal(t, "not_authenticated", engErr.Kind())

	err = e.DislikeQuestion(ctx, "q1", "l1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, "User is not authenticated to dislike a question.", err.Error())
	assert.Len(t, rec.payloads, 2)
}

func TestFetchRoomNotFound(t *testing.T) {
	e, _, _, _ := newEngine(t, &recordingAccess{})
	_, err := e.FetchRoom(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Equal(t, "Room with code nope not found.", err.Error())
	assert.Nil(t, e.RoomMetadata())
}

func TestCreateRoom(t *testing.T) {
	a := &recordingAccess{id: "r9"}
	e, _, _, _ := newEngine(t, a)
	id, err := e.CreateRoom(context.Background(), core.CreateRoomData{Title: "Aula", AuthorID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "r9", id)
	assert.Nil(t, e.RoomMetadata(), "creating does not join")

	a.id = ""
	_, err = e.CreateRoom(context.Background(), core.CreateRoomData{Title: "Aula", AuthorID: "u1"})
	assert.ErrorIs(t, err, ErrRoomNotCreated)
	assert.Equal(t, "Error while creating room.", err.Error())
}

func TestAccessErrorsAreWrapped(t *testing.T) {
	a := &recordingAccess{err: access.ErrConfigurationMissing}
	e, _, rec, mem := newEngine(t, a)

	_, err := e.FetchRoom(context.Background(), "r1")
	require.Error(t, err)
	assert.ErrorIs(t, err, access.ErrConfigurationMissing)
	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, "room_engine_error", engErr.Kind())
	assert.Empty(t, rec.payloads)
	assert.Len(t, mem.ByLevel(logging.LevelError), 1)
}

func TestEndRoomMarksMetadataAndBlocksQuestions(t *testing.T) {
	a := &recordingAccess{room: &core.Room{ID: "r1", AuthorID: "u1"}}
	e, sec, _, _ := newEngine(t, a)
	ctx := context.Background()
	signIn(t, sec, "u1")
	_, err := e.FetchRoom(ctx, "r1")
	require.NoError(t, err)

	require.NoError(t, e.EndRoom(ctx))
	assert.Equal(t, call{"delete", core.ActionRoom, nil, []string{"r1"}}, a.calls[len(a.calls)-1])
	require.NotNil(t, e.RoomMetadata().EndedAt)

	_, err = e.CreateQuestion(ctx, core.CreateQuestionData{Content: "late"})
	assert.ErrorIs(t, err, ErrRoomEnded)
}

func TestQuestionUpdateRequiresAuthor(t *testing.T) {
	a := &recordingAccess{room: &core.Room{ID: "r1", AuthorID: "u1"}}
	e, sec, rec, _ := newEngine(t, a)
	ctx := context.Background()
	_, err := e.FetchRoom(ctx, "r1")
	require.NoError(t, err)

	// anonymous requester never matches
	err = e.QuestionUpdate(ctx, core.QuestionUpdate{IsHighlighted: core.Bool(true)}, "q1")
	assert.ErrorIs(t, err, ErrNotAuthor)
	assert.Equal(t, "Only the room author can update a question.", err.Error())
	assert.Len(t, rec.payloads, 1)

	signIn(t, sec, "u1")
	update := core.QuestionUpdate{IsHighlighted: core.Bool(true)}
	require.NoError(t, e.QuestionUpdate(ctx, update, "q1"))
	assert.Equal(t, call{"update", core.ActionQuestion, update, []string{"r1", "q1"}}, a.calls[len(a.calls)-1])
}

func TestSubscribeRefreshesMetadata(t *testing.T) {
	a := &recordingAccess{room: &core.Room{ID: "r1", AuthorID: "u1"}}
	e, _, _, _ := newEngine(t, a)
	ctx := context.Background()
	_, err := e.FetchRoom(ctx, "r1")
	require.NoError(t, err)

	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a.room = &core.Room{ID: "r1", AuthorID: "u1", EndedAt: &ts}

	var got []*core.Room
	cancel, err := e.SubscribeToRoomChanges(ctx, func(r *core.Room) { got = append(got, r) })
	require.NoError(t, err)
	defer cancel()
	require.Len(t, got, 1)
	assert.Equal(t, []string{"r1", ""}, a.calls[len(a.calls)-1].ids)
	require.NotNil(t, e.RoomMetadata().EndedAt)
	assert.True(t, e.RoomMetadata().EndedAt.Equal(ts))
}

// The like round trip runs against the real access layer and memory backend.
func TestLikeUnlikeRoundTrip(t *testing.T) {
	ctx := context.Background()
	u := utilities.New(utilities.WithLogger(logging.Discard()))
	db := memory.NewDB()
	dial := func(context.Context, map[string]any) (backend.Client, error) {
		return memory.New(db, memory.WithIDGenerator(memory.SequentialIDs("id"))), nil
	}
	u.SetConfiguration(ctx, utilities.Configuration{APIConfig: map[string]any{"adapter": "memory"}})
	ra := access.New(u, dial)
	defer ra.Close()

	db.Load(map[string]any{"rooms": map[string]any{"r1": map[string]any{
		"title": "Aula", "authorId": "u1",
		"questions": map[string]any{"q1": map[string]any{"content": "why?"}},
	}}})

	e := New(ra, u.Security, u.Logging)
	signIn(t, u.Security, "u2")
	_, err := e.FetchRoom(ctx, "r1")
	require.NoError(t, err)

	likeID, err := e.LikeQuestion(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"authorId": "u2"}, db.Snapshot([]string{"rooms", "r1", "questions", "q1", "likes", likeID}))

	room, err := e.FetchRoom(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, room.Questions, 1)
	assert.Equal(t, likeID, room.Questions[0].LikeID)
	assert.Equal(t, 1, room.Questions[0].LikesCount)

	require.NoError(t, e.DislikeQuestion(ctx, "q1", likeID))
	room, err = e.FetchRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, room.Questions[0].LikeID)
	assert.Equal(t, 0, room.Questions[0].LikesCount)
}
