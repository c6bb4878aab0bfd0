package notification

import (
	"context"
	"sync"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/logging"
	"github.com/ViniciusResende/PerguntaUFMG/pubsub"
)

// Toast is the payload of core.EventNewWebToastDispatched.
type Toast struct {
	ID      int64  `json:"id"`
	Status  Status `json:"status"`
	Data    Data   `json:"data"`
	dismiss func()
}

// Dismiss closes the toast.
func (t Toast) Dismiss() {
	if t.dismiss != nil {
		t.dismiss()
	}
}

// Web renders toasts by publishing them on a bus for a UI layer to draw.
// Only one toast is visible at a time; a new one replaces the current.
type Web struct {
	bus *pubsub.Bus
	log *logging.Service

	mu     sync.Mutex
	active int64
}

// NewWeb creates a toast Notifier publishing on bus.
func NewWeb(bus *pubsub.Bus, log *logging.Service) *Web {
	return &Web{bus: bus, log: log}
}

func (w *Web) Push(ctx context.Context, n Notification) error {
	if n.Type != TypeToast {
		w.log.Warn("web notifier only renders toasts", "type", n.Type, "key", n.Key)
		return nil
	}
	w.mu.Lock()
	prev := w.active
	w.active = n.ID
	w.mu.Unlock()
	if prev != 0 {
		w.bus.Publish(ctx, core.EventWebToastDismissed, prev)
	}
	id := n.ID
	w.bus.Publish(ctx, core.EventNewWebToastDispatched, Toast{
		ID:      id,
		Status:  n.Status,
		Data:    n.Data,
		dismiss: func() { _ = w.Dismiss(context.Background(), id) },
	})
	return nil
}

// Dismiss closes id if it is the visible toast.
func (w *Web) Dismiss(ctx context.Context, id int64) error {
	w.mu.Lock()
	if w.active != id {
		w.mu.Unlock()
		return nil
	}
	w.active = 0
	w.mu.Unlock()
	w.bus.Publish(ctx, core.EventWebToastDismissed, id)
	return nil
}

// Active returns the id of the visible toast, or 0.
func (w *Web) Active() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}
