package access

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViniciusResende/PerguntaUFMG/adapters/memory"
	"github.com/ViniciusResende/PerguntaUFMG/backend"
	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/logging"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

// fakeDialer hands out memory clients on a database per config "db" key and
// remembers every client it built.
type fakeDialer struct {
	mu      sync.Mutex
	dbs     map[string]*memory.DB
	clients []*memory.Client
	names   []string
}

func newFakeDialer() *fakeDialer { return &fakeDialer{dbs: map[string]*memory.DB{}} }

func (f *fakeDialer) Dial(_ context.Context, cfg map[string]any) (backend.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, _ := cfg["db"].(string)
	db, ok := f.dbs[name]
	if !ok {
		db = memory.NewDB()
		f.dbs[name] = db
	}
	c := memory.New(db, memory.WithIDGenerator(memory.SequentialIDs(name+"-")))
	f.clients = append(f.clients, c)
	f.names = append(f.names, name)
	return c, nil
}

func (f *fakeDialer) db(name string) *memory.DB {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dbs[name]
}

func newUtilities(t *testing.T, db string) (*utilities.Utilities, *logging.Memory) {
	t.Helper()
	mem := logging.NewMemory()
	u := utilities.New(utilities.WithLogger(mem))
	if db != "" {
		u.SetConfiguration(context.Background(), utilities.Configuration{APIConfig: map[string]any{"db": db}})
	}
	return u, mem
}

func TestMissingStrategy(t *testing.T) {
	a := NewWithStrategies(map[core.ActionType]Strategy{})
	ctx := context.Background()
	poll := core.ActionType("poll")

	var missing *MissingStrategyError
	_, err := a.Create(ctx, poll, nil)
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, poll, missing.Type)
	assert.Contains(t, err.Error(), `"poll"`)

	assert.ErrorAs(t, a.Delete(ctx, poll), &missing)
	_, err = a.Fetch(ctx, poll)
	assert.ErrorAs(t, err, &missing)
	_, err = a.SubscribeToChanges(ctx, poll, func(any) {})
	assert.ErrorAs(t, err, &missing)
	assert.ErrorAs(t, a.Update(ctx, poll, nil), &missing)
}

func TestUnsupportedVerbsNeverFail(t *testing.T) {
	u, mem := newUtilities(t, "")
	d := newFakeDialer()
	a := New(u, d.Dial)
	defer a.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v, err := a.Fetch(ctx, core.ActionLike, "r1", "q1")
		assert.NoError(t, err)
		assert.Nil(t, v)
		cancel, err := a.SubscribeToChanges(ctx, core.ActionLike, func(any) {}, "r1")
		assert.NoError(t, err)
		cancel()
		assert.NoError(t, a.Update(ctx, core.ActionLike, nil))

		v, err = a.Fetch(ctx, core.ActionQuestion)
		assert.NoError(t, err)
		assert.Nil(t, v)
		cancel, err = a.SubscribeToChanges(ctx, core.ActionQuestion, nil)
		assert.NoError(t, err)
		cancel()
	}
	assert.Len(t, mem.ByLevel(logging.LevelWarn), 15)
}

func TestVerbsWithoutConfiguration(t *testing.T) {
	u, _ := newUtilities(t, "")
	d := newFakeDialer()
	a := New(u, d.Dial)
	defer a.Close()
	ctx := context.Background()

	_, err := a.Create(ctx, core.ActionRoom, core.CreateRoomData{Title: "Aula", AuthorID: "u1"})
	assert.ErrorIs(t, err, ErrConfigurationMissing)
	_, err = a.Fetch(ctx, core.ActionRoom, "r1", "")
	assert.ErrorIs(t, err, ErrConfigurationMissing)
	assert.ErrorIs(t, a.Delete(ctx, core.ActionQuestion, "r1", "q1"), ErrConfigurationMissing)
	_, err = a.Create(ctx, core.ActionLike, core.Like{AuthorID: "u1"}, "r1", "q1")
	assert.ErrorIs(t, err, ErrConfigurationMissing)
	assert.Empty(t, d.clients)
}

func TestRoomStrategyFlow(t *testing.T) {
	u, _ := newUtilities(t, "main")
	d := newFakeDialer()
	a := New(u, d.Dial)
	defer a.Close()
	ctx := context.Background()

	rooms := a.strategies[core.ActionRoom].(*RoomStrategy)
	fixed := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	rooms.now = func() time.Time { return fixed }

	code, err := a.Create(ctx, core.ActionRoom, &core.CreateRoomData{Title: "Aula", AuthorID: "u1"})
	require.NoError(t, err)

	var updates []any
	cancel, err := a.SubscribeToChanges(ctx, core.ActionRoom, func(v any) { updates = append(updates, v) }, code, "u2")
	require.NoError(t, err)
	defer cancel()

	qid, err := a.Create(ctx, core.ActionQuestion, core.CreateQuestionData{Content: "why?"}, code)
	require.NoError(t, err)
	likeID, err := a.Create(ctx, core.ActionLike, core.Like{AuthorID: "u2"}, code, qid)
	require.NoError(t, err)
	require.NoError(t, a.Update(ctx, core.ActionQuestion, core.QuestionUpdate{IsAnswered: core.Bool(true)}, code, qid))

	v, err := a.Fetch(ctx, core.ActionRoom, code, "u2")
	require.NoError(t, err)
	room := v.(*core.Room)
	require.Len(t, room.Questions, 1)
	assert.Equal(t, likeID, room.Questions[0].LikeID)
	assert.Equal(t, 1, room.Questions[0].LikesCount)
	assert.True(t, room.Questions[0].IsAnswered)

	title := "Aula 2"
	require.NoError(t, a.Update(ctx, core.ActionRoom, core.RoomUpdate{Title: &title}, code))
	require.NoError(t, a.Delete(ctx, core.ActionLike, code, qid, likeID))
	require.NoError(t, a.Delete(ctx, core.ActionRoom, code))

	v, err = a.Fetch(ctx, core.ActionRoom, code)
	require.NoError(t, err)
	room = v.(*core.Room)
	assert.Equal(t, "Aula 2", room.Title)
	require.NotNil(t, room.EndedAt)
	assert.True(t, room.EndedAt.Equal(fixed))
	assert.Equal(t, 0, room.Questions[0].LikesCount)

	require.NoError(t, a.Delete(ctx, core.ActionQuestion, code, qid))

	// initial value plus one per write
	assert.Len(t, updates, 8)
	last := updates[len(updates)-1].(*core.Room)
	assert.Empty(t, last.Questions)
}

func TestFetchMissingRoomIsNil(t *testing.T) {
	u, _ := newUtilities(t, "main")
	a := New(u, newFakeDialer().Dial)
	defer a.Close()

	v, err := a.Fetch(context.Background(), core.ActionRoom, "nope", "")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestInvalidArguments(t *testing.T) {
	u, _ := newUtilities(t, "main")
	a := New(u, newFakeDialer().Dial)
	defer a.Close()
	ctx := context.Background()

	_, err := a.Create(ctx, core.ActionRoom, "not a room")
	assert.ErrorIs(t, err, ErrInvalidArguments)
	_, err = a.Create(ctx, core.ActionQuestion, core.CreateQuestionData{})
	assert.ErrorIs(t, err, ErrInvalidArguments)
	_, err = a.Create(ctx, core.ActionLike, core.Like{}, "r1", "q1")
	assert.ErrorIs(t, err, ErrInvalidArguments)
	assert.ErrorIs(t, a.Delete(ctx, core.ActionLike, "r1", "q1"), ErrInvalidArguments)
	assert.ErrorIs(t, a.Delete(ctx, core.ActionQuestion, "r1", "a/b"), ErrInvalidArguments)
	assert.ErrorIs(t, a.Update(ctx, core.ActionRoom, core.QuestionUpdate{}, "r1"), ErrInvalidArguments)
	_, err = a.Fetch(ctx, core.ActionRoom)
	assert.ErrorIs(t, err, ErrInvalidArguments)
	_, err = a.SubscribeToChanges(ctx, core.ActionRoom, nil, "r1")
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestConfigurationSwapRebuildsEveryStrategy(t *testing.T) {
	u, _ := newUtilities(t, "cfg1")
	d := newFakeDialer()
	a := New(u, d.Dial)
	defer a.Close()
	auth := NewAuthAccess(u, d.Dial)
	defer auth.Close()
	ctx := context.Background()

	require.Len(t, d.clients, 4)
	old := append([]*memory.Client(nil), d.clients...)

	u.SetConfiguration(ctx, utilities.Configuration{APIConfig: map[string]any{"db": "cfg2"}})
	require.Len(t, d.clients, 8)
	for _, name := range d.names[4:] {
		assert.Equal(t, "cfg2", name)
	}
	// previous clients are closed
	for _, c := range old {
		_, err := c.FetchData(ctx, "rooms")
		assert.ErrorIs(t, err, backend.ErrClosed)
	}

	code, err := a.Create(ctx, core.ActionRoom, core.CreateRoomData{Title: "Aula", AuthorID: "u1"})
	require.NoError(t, err)
	_, err = a.Create(ctx, core.ActionQuestion, core.CreateQuestionData{Content: "why?"}, code)
	require.NoError(t, err)

	assert.Nil(t, d.db("cfg1").Snapshot([]string{"rooms"}))
	assert.NotNil(t, d.db("cfg2").Snapshot([]string{"rooms", code, "questions"}))
}

func TestConfigurationClearedFailsCalls(t *testing.T) {
	u, _ := newUtilities(t, "cfg1")
	d := newFakeDialer()
	a := New(u, d.Dial)
	defer a.Close()

	u.SetConfiguration(context.Background(), utilities.Configuration{APIConfig: map[string]any{}})
	_, err := a.Create(context.Background(), core.ActionRoom, core.CreateRoomData{Title: "x", AuthorID: "u1"})
	assert.ErrorIs(t, err, ErrConfigurationMissing)
}

func TestAuthAccess(t *testing.T) {
	secret := []byte("k")
	token, err := backend.SignToken(secret, "u1", "Ana", "", time.Hour)
	require.NoError(t, err)

	u, _ := newUtilities(t, "")
	dial := func(context.Context, map[string]any) (backend.Client, error) {
		return memory.New(nil, memory.WithAuthenticator(backend.NewTokenAuthenticator(secret, token))), nil
	}
	auth := NewAuthAccess(u, dial)
	defer auth.Close()
	ctx := context.Background()

	_, err = auth.Auth(ctx)
	assert.ErrorIs(t, err, ErrConfigurationMissing)

	u.SetConfiguration(ctx, utilities.Configuration{APIConfig: map[string]any{"adapter": "memory"}})
	user, err := auth.Auth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, backend.DefaultUserProfile, user.Profile)
	require.NoError(t, auth.SignOut(ctx))
}
