// Package pergunta assembles a library session: utilities, accesses,
// engine and managers, built in the order they depend on each other.
//
//	lib := pergunta.New(ctx,
//		pergunta.WithConfiguration(cfg),
//		pergunta.WithRealtime(hub),
//	)
//	defer lib.Close()
//	room, err := lib.Rooms.JoinRoom(ctx, code)
package pergunta

import (
	"context"
	"errors"

	"github.com/ViniciusResende/PerguntaUFMG/access"
	"github.com/ViniciusResende/PerguntaUFMG/adapters"
	"github.com/ViniciusResende/PerguntaUFMG/engine"
	"github.com/ViniciusResende/PerguntaUFMG/manager"
	"github.com/ViniciusResende/PerguntaUFMG/per"
	"github.com/ViniciusResende/PerguntaUFMG/pubsub"
	"github.com/ViniciusResende/PerguntaUFMG/realtime"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

// Option configures the library builder.
type Option func(*options)

type options struct {
	u    *utilities.Utilities
	dial per.Dialer
	hub  *realtime.Hub
	cfg  *utilities.Configuration
}

// WithUtilities uses u instead of a fresh utilities.New().
func WithUtilities(u *utilities.Utilities) Option { return func(o *options) { o.u = u } }

// WithDialer replaces adapters.Dial as the backend dialer.
func WithDialer(d per.Dialer) Option { return func(o *options) { o.dial = d } }

// WithRealtime forwards room and toast events to h.
func WithRealtime(h *realtime.Hub) Option { return func(o *options) { o.hub = h } }

// WithConfiguration applies cfg before any access is built.
func WithConfiguration(cfg utilities.Configuration) Option {
	return func(o *options) { o.cfg = &cfg }
}

// Lib is one user session.
type Lib struct {
	Utilities *utilities.Utilities
	Rooms     *manager.RoomManager
	Auth      *manager.AuthManager

	roomAccess *access.RoomAccess
	authAccess *access.AuthAccess
	subs       []*pubsub.Subscription
}

// New builds a session. Defaults: fresh utilities, adapters.Dial, no hub.
func New(ctx context.Context, opts ...Option) *Lib {
	o := &options{dial: adapters.Dial}
	for _, opt := range opts {
		opt(o)
	}
	if o.u == nil {
		o.u = utilities.New()
	}
	if o.cfg != nil {
		o.u.SetConfiguration(ctx, *o.cfg)
	}

	ra := access.New(o.u, o.dial)
	aa := access.NewAuthAccess(o.u, o.dial)
	eng := engine.New(ra, o.u.Security, o.u.Logging)
	lib := &Lib{
		Utilities:  o.u,
		Rooms:      manager.NewRoomManager(o.u, eng),
		Auth:       manager.NewAuthManager(o.u, aa),
		roomAccess: ra,
		authAccess: aa,
	}
	if o.hub != nil {
		lib.subs = o.hub.Attach(lib.Rooms.Bus, o.u.Bus)
	}
	return lib
}

// Close releases subscriptions and backend clients.
func (l *Lib) Close() error {
	for _, s := range l.subs {
		s.Unsubscribe()
	}
	l.Rooms.Close()
	return errors.Join(l.roomAccess.Close(), l.authAccess.Close())
}
