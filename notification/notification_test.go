package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViniciusResende/PerguntaUFMG/bridge"
	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/logging"
	"github.com/ViniciusResende/PerguntaUFMG/pubsub"
)

type captureNotifier struct {
	pushed    []Notification
	dismissed []int64
}

func (c *captureNotifier) Push(_ context.Context, n Notification) error {
	c.pushed = append(c.pushed, n)
	return nil
}

func (c *captureNotifier) Dismiss(_ context.Context, id int64) error {
	c.dismissed = append(c.dismissed, id)
	return nil
}

func TestServicePushWithoutImplementation(t *testing.T) {
	s := New()
	id, err := s.Toast(context.Background(), "k", StatusError, "t", "c")
	assert.Equal(t, int64(1), id)
	assert.ErrorIs(t, err, bridge.ErrImplementationMissing)
}

func TestServiceAssignsIncreasingIDsAndDefaults(t *testing.T) {
	s := New()
	c := &captureNotifier{}
	require.NoError(t, s.SetImplementation(c))

	ctx := context.Background()
	id1, err := s.Push(ctx, "a", "", "", Data{Title: "one"})
	require.NoError(t, err)
	id2, err := s.Push(ctx, "b", TypeModal, StatusSuccess, Data{Title: "two"})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	require.Len(t, c.pushed, 2)
	assert.Equal(t, TypeToast, c.pushed[0].Type)
	assert.Equal(t, StatusInformational, c.pushed[0].Status)
	assert.Equal(t, TypeModal, c.pushed[1].Type)

	require.NoError(t, s.Dismiss(ctx, id1))
	assert.Equal(t, []int64{id1}, c.dismissed)
}

func TestWebPublishesSingleActiveToast(t *testing.T) {
	bus := pubsub.New()
	var dispatched []Toast
	var dismissed []int64
	bus.SubscribeFunc(core.EventNewWebToastDispatched, func(_ context.Context, ev pubsub.Event) {
		dispatched = append(dispatched, ev.Payload.(Toast))
	})
	bus.SubscribeFunc(core.EventWebToastDismissed, func(_ context.Context, ev pubsub.Event) {
		dismissed = append(dismissed, ev.Payload.(int64))
	})

	s := New()
	web := NewWeb(bus, logging.New(logging.Discard()))
	require.NoError(t, s.SetImplementation(web))

	ctx := context.Background()
	first, _ := s.Toast(ctx, "k", StatusSuccess, "Autenticado com Sucesso", "ok")
	second, _ := s.Toast(ctx, "k", StatusError, "Error while joining room:", "not found")

	require.Len(t, dispatched, 2)
	assert.Equal(t, "Error while joining room:", dispatched[1].Data.Title)
	assert.Equal(t, []int64{first}, dismissed, "first toast replaced by the second")
	assert.Equal(t, second, web.Active())

	dispatched[1].Dismiss()
	assert.Equal(t, []int64{first, second}, dismissed)
	assert.Equal(t, int64(0), web.Active())

	// dismissing a toast that is no longer visible does nothing
	dispatched[0].Dismiss()
	assert.Len(t, dismissed, 2)
}

func TestWebIgnoresModals(t *testing.T) {
	bus := pubsub.New()
	mem := logging.NewMemory()
	web := NewWeb(bus, logging.New(mem))
	require.NoError(t, web.Push(context.Background(), Notification{ID: 1, Type: TypeModal}))
	assert.Equal(t, int64(0), web.Active())
	assert.Len(t, mem.ByLevel(logging.LevelWarn), 1)
}

func TestWebhookPostsToEndpoints(t *testing.T) {
	var hits int32
	var last webhookEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = json.NewDecoder(r.Body).Decode(&last)
		_ = r.Body.Close()
	}))
	defer srv.Close()

	hook := NewWebhook([]string{srv.URL})
	err := hook.Push(context.Background(), Notification{ID: 7, Type: TypeToast, Status: StatusError, Data: Data{Title: "t"}})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, "push", last.Event)
	require.NotNil(t, last.Notification)
	assert.Equal(t, int64(7), last.Notification.ID)

	require.NoError(t, hook.Dismiss(context.Background(), 7))
	assert.Equal(t, "dismiss", last.Event)
}

func TestWebhookReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhook([]string{srv.URL}).Push(context.Background(), Notification{ID: 1})
	assert.Error(t, err)
	assert.NoError(t, NewWebhook(nil).Push(context.Background(), Notification{ID: 1}))
}

func TestRegistry(t *testing.T) {
	deps := Deps{Bus: pubsub.New(), Logging: logging.New(logging.Discard())}
	for _, typ := range []ServiceType{ServiceWeb, ServiceWebhook, ServiceLog} {
		f, ok := Lookup(typ)
		require.True(t, ok, typ)
		assert.NotNil(t, f(deps))
	}
	_, ok := Lookup("mobile")
	assert.False(t, ok)
}

func TestLogNotifier(t *testing.T) {
	mem := logging.NewMemory()
	n := NewLog(logging.New(mem))
	require.NoError(t, n.Push(context.Background(), Notification{ID: 1, Status: StatusError, Data: Data{Title: "Error while ending room:"}}))
	require.Len(t, mem.ByLevel(logging.LevelError), 1)
	assert.Equal(t, "Error while ending room:", mem.ByLevel(logging.LevelError)[0].Message)
}
