// Package memory is the in-process realtime backend. It is the default
// adapter and the one tests run against.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ViniciusResende/PerguntaUFMG/backend"
)

// Client implements backend.Client on a DB.
type Client struct {
	db    *DB
	auth  backend.Authenticator
	newID func() string

	mu      sync.Mutex
	closed  bool
	cancels map[int]func()
	next    int
}

// Option configures a Client.
type Option func(*Client)

// WithAuthenticator sets the sign-in flow; defaults to backend.Anonymous.
func WithAuthenticator(a backend.Authenticator) Option {
	return func(c *Client) {
		if a != nil {
			c.auth = a
		}
	}
}

// WithIDGenerator overrides how child ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New creates a client on db, or on a private DB when nil.
func New(db *DB, opts ...Option) *Client {
	if db == nil {
		db = NewDB()
	}
	c := &Client{db: db, auth: backend.Anonymous{}, newID: backend.NewID, cancels: map[int]func(){}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// DB returns the database the client writes to.
func (c *Client) DB() *DB { return c.db }

func (c *Client) Authenticate(ctx context.Context) (backend.AuthResponse, error) {
	if err := c.check(); err != nil {
		return backend.AuthResponse{}, err
	}
	return c.auth.Authenticate(ctx)
}

func (c *Client) SignOut(ctx context.Context) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.auth.SignOut(ctx)
}

func (c *Client) WriteData(_ context.Context, path string, data any) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	segs, err := backend.SplitPath(path)
	if err != nil {
		return "", err
	}
	value, err := backend.Normalize(data)
	if err != nil {
		return "", err
	}
	id := c.newID()
	child := append(append([]string{}, segs...), id)
	err = c.db.Mutate(child, func(root map[string]any) map[string]any {
		return backend.Set(root, child, value)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (c *Client) UpdateData(_ context.Context, path string, data any) error {
	if err := c.check(); err != nil {
		return err
	}
	segs, err := backend.SplitPath(path)
	if err != nil {
		return err
	}
	value, err := backend.Normalize(data)
	if err != nil {
		return err
	}
	patch, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("memory: update at %q needs an object, got %T", path, value)
	}
	return c.db.Mutate(segs, func(root map[string]any) map[string]any {
		return backend.Merge(root, segs, patch)
	})
}

func (c *Client) DeleteData(_ context.Context, path string) error {
	if err := c.check(); err != nil {
		return err
	}
	segs, err := backend.SplitPath(path)
	if err != nil {
		return err
	}
	return c.db.Mutate(segs, func(root map[string]any) map[string]any {
		return backend.Remove(root, segs)
	})
}

func (c *Client) FetchData(_ context.Context, path string) (any, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	segs, err := backend.SplitPath(path)
	if err != nil {
		return nil, err
	}
	v := c.db.Snapshot(segs)
	if v == nil {
		return nil, backend.ErrNoData
	}
	return v, nil
}

func (c *Client) OnDataChange(_ context.Context, path string, cb func(any)) (func(), error) {
	segs, err := backend.SplitPath(path)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, backend.ErrClosed
	}
	c.next++
	key := c.next
	var active atomic.Bool
	active.Store(true)
	remove := c.db.feed.Add(segs, func(v any) {
		if active.Load() {
			cb(v)
		}
	})
	cancel := func() {
		active.Store(false)
		remove()
		c.mu.Lock()
		delete(c.cancels, key)
		c.mu.Unlock()
	}
	c.cancels[key] = cancel
	c.mu.Unlock()

	cb(c.db.Snapshot(segs))
	return cancel, nil
}

// Close cancels every live subscription made through the client.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancels := make([]func(), 0, len(c.cancels))
	for _, fn := range c.cancels {
		cancels = append(cancels, fn)
	}
	c.mu.Unlock()
	for _, fn := range cancels {
		fn()
	}
	return nil
}

func (c *Client) check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return backend.ErrClosed
	}
	return nil
}

// SequentialIDs returns a generator yielding prefix1, prefix2, ... for
// deterministic ids.
func SequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("%s%d", prefix, n.Add(1)) }
}
