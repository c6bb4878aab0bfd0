// Package realtime fans room events out to streaming subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/notification"
	"github.com/ViniciusResende/PerguntaUFMG/pubsub"
)

// Message is the streamed form of a room or toast event. Only the field
// matching Type is set; a dismissal carries a Toast with just its ID.
type Message struct {
	Type     core.EventKey       `json:"type"`
	Time     time.Time           `json:"time"`
	Room     *core.Room          `json:"room,omitempty"`
	Metadata *core.RoomMetadata  `json:"metadata,omitempty"`
	Toast    *notification.Toast `json:"toast,omitempty"`
}

// Keys lists the events a Hub forwards.
var Keys = []core.EventKey{
	core.EventRoomDataChanged,
	core.EventRoomMetadataChanged,
	core.EventNewWebToastDispatched,
	core.EventWebToastDismissed,
}

// FromEvent converts a bus event into a Message. It reports false for keys
// and payloads the hub does not stream.
func FromEvent(ev pubsub.Event) (Message, bool) {
	msg := Message{Type: ev.Key, Time: time.Now().UTC()}
	switch p := ev.Payload.(type) {
	case core.Room:
		msg.Room = &p
	case core.RoomMetadata:
		msg.Metadata = &p
	case notification.Toast:
		msg.Toast = &p
	case int64:
		if ev.Key != core.EventWebToastDismissed {
			return Message{}, false
		}
		msg.Toast = &notification.Toast{ID: p}
	default:
		return Message{}, false
	}
	return msg, true
}

// Hub broadcasts messages to buffered subscriber channels.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]chan Message
	next int
}

// NewHub creates a hub with no subscribers.
func NewHub() *Hub { return &Hub{subs: map[int]chan Message{}} }

func (h *Hub) Subscribe(buffer int) (int, <-chan Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	ch := make(chan Message, buffer)
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast sends msg to every subscriber without blocking; a full
// subscriber misses it.
func (h *Hub) Broadcast(_ context.Context, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// OnEvent lets the hub listen on a pubsub.Bus directly.
func (h *Hub) OnEvent(ctx context.Context, ev pubsub.Event) {
	if msg, ok := FromEvent(ev); ok {
		h.Broadcast(ctx, msg)
	}
}

// Attach subscribes the hub to every key in Keys on each bus.
func (h *Hub) Attach(buses ...*pubsub.Bus) []*pubsub.Subscription {
	var subs []*pubsub.Subscription
	for _, b := range buses {
		for _, k := range Keys {
			subs = append(subs, b.Subscribe(k, h))
		}
	}
	return subs
}

// MarshalJSON encodes msg for WebSocket or SSE frames.
func MarshalJSON(msg Message) []byte {
	b, _ := json.Marshal(msg)
	return b
}
