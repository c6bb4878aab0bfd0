// Package pubsub provides the synchronous in-process event bus every stateful
// service in the library is built on.
package pubsub

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/ViniciusResende/PerguntaUFMG/core"
)

// Event is what listeners receive on publish.
type Event struct {
	Key     core.EventKey
	Payload any
}

// Listener receives events for the keys it is subscribed to.
type Listener interface {
	OnEvent(ctx context.Context, ev Event)
}

// ListenerFunc adapts a plain function to Listener. Functions are not
// comparable, so every SubscribeFunc call yields a distinct registration.
type ListenerFunc func(ctx context.Context, ev Event)

func (f ListenerFunc) OnEvent(ctx context.Context, ev Event) { f(ctx, ev) }

// PanicHandler is told about a listener that panicked during delivery.
type PanicHandler func(key core.EventKey, recovered any)

// Subscription is a single registration of a listener under a key.
type Subscription struct {
	bus      *Bus
	key      core.EventKey
	id       int64
	listener Listener
	active   atomic.Bool
}

// Key returns the event key the subscription listens on.
func (s *Subscription) Key() core.EventKey { return s.key }

// Unsubscribe removes the registration. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.remove(s)
}

// Bus is a thread-safe synchronous pub/sub keyed by core.EventKey.
// Delivery follows registration order over a snapshot taken at publish time.
type Bus struct {
	mu      sync.RWMutex
	subs    map[core.EventKey][]*Subscription
	nextID  int64
	onPanic PanicHandler
}

// Option configures a Bus.
type Option func(*Bus)

// WithPanicHandler overrides how recovered listener panics are reported.
func WithPanicHandler(h PanicHandler) Option {
	return func(b *Bus) {
		if h != nil {
			b.onPanic = h
		}
	}
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs: make(map[core.EventKey][]*Subscription),
		onPanic: func(key core.EventKey, recovered any) {
			slog.Error("pubsub listener panicked", "key", key, "panic", recovered)
		},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Subscribe registers l under key. Registering an identical comparable
// listener twice under the same key returns the existing subscription.
func (b *Bus) Subscribe(key core.EventKey, l Listener) *Subscription {
	if l == nil {
		return &Subscription{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing := b.find(key, l); existing != nil {
		return existing
	}
	b.nextID++
	s := &Subscription{bus: b, key: key, id: b.nextID, listener: l}
	s.active.Store(true)
	b.subs[key] = append(b.subs[key], s)
	return s
}

// SubscribeFunc registers fn under key.
func (b *Bus) SubscribeFunc(key core.EventKey, fn func(ctx context.Context, ev Event)) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	return b.Subscribe(key, ListenerFunc(fn))
}

// Unsubscribe removes l from key. Unknown listeners are ignored.
func (b *Bus) Unsubscribe(key core.EventKey, l Listener) {
	if l == nil {
		return
	}
	b.mu.RLock()
	s := b.find(key, l)
	b.mu.RUnlock()
	if s != nil {
		b.remove(s)
	}
}

// Publish delivers payload to every listener registered under key.
// A listener removed while delivery is underway is skipped; a listener that
// panics is reported and does not stop delivery to the rest.
func (b *Bus) Publish(ctx context.Context, key core.EventKey, payload any) {
	b.mu.RLock()
	subs := b.subs[key]
	// copy to avoid holding lock during callbacks
	snapshot := make([]*Subscription, len(subs))
	copy(snapshot, subs)
	b.mu.RUnlock()

	ev := Event{Key: key, Payload: payload}
	for _, s := range snapshot {
		if !s.active.Load() {
			continue
		}
		b.deliver(ctx, s, ev)
	}
}

// Len reports how many listeners are registered under key.
func (b *Bus) Len(key core.EventKey) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[key])
}

func (b *Bus) deliver(ctx context.Context, s *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.onPanic(ev.Key, r)
		}
	}()
	s.listener.OnEvent(ctx, ev)
}

func (b *Bus) remove(s *Subscription) {
	if !s.active.Swap(false) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[s.key]
	for i, cur := range subs {
		if cur == s {
			next := make([]*Subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			b.subs[s.key] = append(next, subs[i+1:]...)
			break
		}
	}
	if len(b.subs[s.key]) == 0 {
		delete(b.subs, s.key)
	}
}

// find must be called with b.mu held.
func (b *Bus) find(key core.EventKey, l Listener) *Subscription {
	if !isComparable(l) {
		return nil
	}
	for _, s := range b.subs[key] {
		if isComparable(s.listener) && sameListener(s.listener, l) {
			return s
		}
	}
	return nil
}

func isComparable(l Listener) bool {
	return reflect.TypeOf(l).Comparable()
}

// sameListener compares two listeners whose types are comparable. Struct
// listeners holding func fields still panic on ==, which counts as different.
func sameListener(a, b Listener) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
