// Package security holds the authenticated identity of the session and
// publishes its lifecycle events.
package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ViniciusResende/PerguntaUFMG/core"
	"github.com/ViniciusResende/PerguntaUFMG/logging"
	"github.com/ViniciusResende/PerguntaUFMG/pubsub"
)

// StorageKey is where the authenticated user record is persisted.
const StorageKey = "@PerguntaUFMG:authUser"

// failEvents are the keys covered by SubscribeSecurityFailEvents.
var failEvents = []core.EventKey{core.EventAPIRequestUnauthorized, core.EventNoAuthUserStored}

// Security caches and persists the authenticated user.
type Security struct {
	*pubsub.Bus

	store Store
	log   *logging.Service

	mu   sync.RWMutex
	user *core.AuthenticatedUser
}

// New creates a Security backed by store, or by a MemoryStore when nil.
func New(store Store, log *logging.Service) *Security {
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = logging.New(nil)
	}
	return &Security{Bus: pubsub.New(), store: store, log: log}
}

// User returns the authenticated user, loading it from the store on a cache
// miss. When nobody is stored it publishes core.EventNoAuthUserStored and
// returns nil.
func (s *Security) User(ctx context.Context) *core.AuthenticatedUser {
	s.mu.RLock()
	cached := s.user
	s.mu.RUnlock()
	if cached != nil {
		cp := *cached
		return &cp
	}

	user, err := s.load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("discarding unreadable stored user", "error", err)
			_ = s.store.Delete(ctx, StorageKey)
		}
		s.Publish(ctx, core.EventNoAuthUserStored, nil)
		return nil
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	cp := *user
	return &cp
}

// UserID returns the authenticated user id, or "" when anonymous.
func (s *Security) UserID(ctx context.Context) string {
	if u := s.User(ctx); u != nil {
		return u.ID
	}
	return ""
}

// SetUser caches and persists user, then publishes core.EventNewUserAuth.
func (s *Security) SetUser(ctx context.Context, user core.AuthenticatedUser) error {
	if user.ID == "" {
		return errors.New("security: user id is required")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("security: encode user: %w", err)
	}
	if err := s.store.Save(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("security: persist user: %w", err)
	}
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	s.Publish(ctx, core.EventNewUserAuth, user)
	return nil
}

// ExcludeAuthenticatedUser forgets the user and publishes core.EventExcludeAuthUser.
func (s *Security) ExcludeAuthenticatedUser(ctx context.Context) error {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	err := s.store.Delete(ctx, StorageKey)
	s.Publish(ctx, core.EventExcludeAuthUser, nil)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("security: delete stored user: %w", err)
	}
	return nil
}

// PublishAPIRequestUnauthorized announces a rejected request.
func (s *Security) PublishAPIRequestUnauthorized(ctx context.Context, payload core.GeneralErrorPayload) {
	s.Publish(ctx, core.EventAPIRequestUnauthorized, payload)
}

// SubscribeSecurityFailEvents registers l for unauthorized requests and
// missing identities.
func (s *Security) SubscribeSecurityFailEvents(l pubsub.Listener) []*pubsub.Subscription {
	subs := make([]*pubsub.Subscription, 0, len(failEvents))
	for _, key := range failEvents {
		subs = append(subs, s.Subscribe(key, l))
	}
	return subs
}

func (s *Security) UnsubscribeSecurityFailEvents(l pubsub.Listener) {
	for _, key := range failEvents {
		s.Unsubscribe(key, l)
	}
}

func (s *Security) load(ctx context.Context) (*core.AuthenticatedUser, error) {
	raw, err := s.store.Load(ctx, StorageKey)
	if err != nil {
		return nil, err
	}
	var user core.AuthenticatedUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, errors.New("stored user has no id")
	}
	return &user, nil
}
