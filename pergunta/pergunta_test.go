package pergunta

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/logging"
	"github.com/ViniciusResende/PerguntaUFMG/notification"
	"github.com/ViniciusResende/PerguntaUFMG/realtime"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

func memoryConfig(name string) utilities.Configuration {
	return utilities.Configuration{
		APIConfig:           map[string]any{"adapter": "memory", "name": name},
		NotificationService: notification.ServiceWeb,
	}
}

func TestSessionStreamsToHub(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewHub()
	_, ch := hub.Subscribe(32)
	lib := New(ctx,
		WithUtilities(utilities.New(utilities.WithLogger(logging.NewMemory()))),
		WithConfiguration(memoryConfig(t.Name())),
		WithRealtime(hub),
	)
	defer lib.Close()

	require.NoError(t, lib.Utilities.Security.SetUser(ctx, core.AuthenticatedUser{ID: "u1", Name: "Ana"}))
	room, err := lib.Rooms.CreateRoom(ctx, core.CreateRoomData{Title: "Cálculo", AuthorID: "u1"})
	require.NoError(t, err)

	var types []core.EventKey
	deadline := time.After(time.Second)
	for len(types) < 2 {
		select {
		case msg := <-ch:
			types = append(types, msg.Type)
			if msg.Type == core.EventRoomMetadataChanged {
				assert.Equal(t, room.ID, msg.Metadata.ID)
			}
		case <-deadline:
			t.Fatalf("got only %v", types)
		}
	}
	assert.Contains(t, types, core.EventRoomMetadataChanged)
	assert.Contains(t, types, core.EventRoomDataChanged)
}

func TestToastsReachHub(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewHub()
	_, ch := hub.Subscribe(8)
	lib := New(ctx, WithConfiguration(memoryConfig(t.Name())), WithRealtime(hub))
	defer lib.Close()

	_, err := lib.Rooms.JoinRoom(ctx, "missing")
	require.Error(t, err)

	select {
	case msg := <-ch:
		assert.Equal(t, core.EventNewWebToastDispatched, msg.Type)
		require.NotNil(t, msg.Toast)
		assert.Equal(t, "Room with code missing not found.", msg.Toast.Data.Content)
	case <-time.After(time.Second):
		t.Fatal("no toast streamed")
	}
}

func TestAnonymousSignInFails(t *testing.T) {
	ctx := context.Background()
	lib := New(ctx, WithConfiguration(memoryConfig(t.Name())))
	defer lib.Close()

	assert.Nil(t, lib.Auth.Auth(ctx))
	assert.Nil(t, lib.Auth.AuthenticatedUser(ctx))
}

func TestCloseDetachesHub(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewHub()
	_, ch := hub.Subscribe(8)
	lib := New(ctx, WithConfiguration(memoryConfig(t.Name())), WithRealtime(hub))
	require.NoError(t, lib.Close())

	lib.Rooms.Publish(ctx, core.EventRoomMetadataChanged, core.RoomMetadata{ID: "r1"})
	assert.Empty(t, ch)
}
