package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ViniciusResende/PerguntaUFMG/backend"
)

// ErrConflict is returned when a record kept changing under a write.
var ErrConflict = errors.New("redis: too many concurrent modifications")

const maxTxRetries = 16

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" mapstructure:"addr" env:"PERGUNTA_REDIS_ADDR"`
	Password     string        `json:"password" mapstructure:"password" env:"PERGUNTA_REDIS_PASSWORD"`
	DB           int           `json:"db" mapstructure:"db" env:"PERGUNTA_REDIS_DB"`
	PoolSize     int           `json:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `json:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	Prefix       string        `json:"prefix" mapstructure:"prefix" env:"PERGUNTA_REDIS_PREFIX"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		Prefix:       "pergunta",
	}
}

// Client implements backend.Client on Redis.
// Data structure:
//   - {prefix}:{collection}:{id} -> JSON document of one record (e.g. a room
//     with its questions and likes)
//   - {prefix}:changes -> pub/sub channel carrying the path of every write
type Client struct {
	rdb      *redis.Client
	ownsConn bool
	prefix   string
	auth     backend.Authenticator
	newID    func() string
	feed     *backend.Feed

	mu     sync.Mutex
	sub    *redis.PubSub
	closed bool
	wg     sync.WaitGroup
	// set while the listener goroutine runs feed callbacks
	dispatching atomic.Bool
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

// WithPrefix namespaces every key the client touches.
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// New connects to Redis with the provided configuration
func New(ctx context.Context, config Config, opts ...Option) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewWithClient(rdb, append([]Option{WithPrefix(config.Prefix)}, opts...)...)
	c.ownsConn = true
	return c, nil
}

// NewWithClient creates a Client using an existing Redis client (useful for testing)
func NewWithClient(rdb *redis.Client, opts ...Option) *Client {
	c := &Client{
		rdb:    rdb,
		prefix: "pergunta",
		auth:   backend.Anonymous{},
		newID:  backend.NewID,
		feed:   backend.NewFeed(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Close stops the change listener and, when the client dialed its own
// connection, closes it. Called from a change callback, Close returns
// without waiting for the listener; the connection is closed once the
// listener exits.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sub := c.sub
	c.mu.Unlock()

	var errs []error
	if sub != nil {
		errs = append(errs, sub.Close())
	}
	if c.dispatching.Load() {
		go func() {
			c.wg.Wait()
			if c.ownsConn {
				_ = c.rdb.Close()
			}
		}()
		return errors.Join(errs...)
	}
	c.wg.Wait()
	if c.ownsConn {
		errs = append(errs, c.rdb.Close())
	}
	return errors.Join(errs...)
}

func (c *Client) Authenticate(ctx context.Context) (backend.AuthResponse, error) {
	return c.auth.Authenticate(ctx)
}

func (c *Client) SignOut(ctx context.Context) error { return c.auth.SignOut(ctx) }

func (c *Client) WriteData(ctx context.Context, path string, data any) (string, error) {
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
	err = c.mutate(ctx, child, func(rec map[string]any, rel []string) map[string]any {
		if len(rel) == 0 {
			m, _ := value.(map[string]any)
			return m
		}
		return backend.Set(rec, rel, value)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (c *Client) UpdateData(ctx context.Context, path string, data any) error {
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
		return fmt.Errorf("redis: update at %q needs an object, got %T", path, value)
	}
	return c.mutate(ctx, segs, func(rec map[string]any, rel []string) map[string]any {
		return backend.Merge(rec, rel, patch)
	})
}

func (c *Client) DeleteData(ctx context.Context, path string) error {
	segs, err := backend.SplitPath(path)
	if err != nil {
		return err
	}
	return c.mutate(ctx, segs, func(rec map[string]any, rel []string) map[string]any {
		if len(rel) == 0 {
			return nil
		}
		return backend.Remove(rec, rel)
	})
}

func (c *Client) FetchData(ctx context.Context, path string) (any, error) {
	segs, err := backend.SplitPath(path)
	if err != nil {
		return nil, err
	}
	v, err := c.snapshot(ctx, segs)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, backend.ErrNoData
	}
	return v, nil
}

func (c *Client) OnDataChange(ctx context.Context, path string, cb func(any)) (func(), error) {
	segs, err := backend.SplitPath(path)
	if err != nil {
		return nil, err
	}
	if err := c.listen(ctx); err != nil {
		return nil, err
	}
	cancel := c.feed.Add(segs, cb)
	v, err := c.snapshot(ctx, segs)
	if err != nil {
		cancel()
		return nil, err
	}
	cb(v)
	return cancel, nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) channel() string { return c.prefix + ":changes" }

// recordKey maps the first two path segments to a Redis key.
func (c *Client) recordKey(segs []string) string {
	return c.prefix + ":" + segs[0] + ":" + segs[1]
}

func (c *Client) mutate(ctx context.Context, segs []string, fn func(rec map[string]any, rel []string) map[string]any) error {
	if len(segs) < 2 {
		return fmt.Errorf("%w: writes need a record path, got %q", backend.ErrInvalidPath, backend.JoinPath(segs))
	}
	key := c.recordKey(segs)
	rel := segs[2:]
	txf := func(tx *redis.Tx) error {
		rec, err := loadRecord(ctx, tx, key)
		if err != nil {
			return err
		}
		next := fn(rec, rel)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(next) == 0 {
				pipe.Del(ctx, key)
				return nil
			}
			b, err := json.Marshal(next)
			if err != nil {
				return err
			}
			pipe.Set(ctx, key, b, 0)
			return nil
		})
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err := c.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		if err := c.rdb.Publish(ctx, c.channel(), backend.JoinPath(segs)).Err(); err != nil {
			return fmt.Errorf("failed to publish change: %w", err)
		}
		return nil
	}
	return ErrConflict
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func loadRecord(ctx context.Context, g getter, key string) (map[string]any, error) {
	b, err := g.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	var rec map[string]any
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("corrupt record %s: %w", key, err)
	}
	return rec, nil
}

// snapshot reads the value at segs. A single segment reads a whole
// collection by scanning its records.
func (c *Client) snapshot(ctx context.Context, segs []string) (any, error) {
	if len(segs) == 1 {
		return c.collection(ctx, segs[0])
	}
	rec, err := loadRecord(ctx, c.rdb, c.recordKey(segs))
	if err != nil || rec == nil {
		return nil, err
	}
	v, ok := backend.Lookup(rec, segs[2:])
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (c *Client) collection(ctx context.Context, name string) (any, error) {
	prefix := c.prefix + ":" + name + ":"
	out := map[string]any{}
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		rec, err := loadRecord(ctx, c.rdb, key)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out[strings.TrimPrefix(key, prefix)] = rec
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", name, err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// listen starts the change listener once per client.
func (c *Client) listen(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return backend.ErrClosed
	}
	if c.sub != nil {
		return nil
	}
	sub := c.rdb.Subscribe(ctx, c.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("failed to subscribe to changes: %w", err)
	}
	c.sub = sub
	ch := sub.Channel()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for msg := range ch {
			changed, err := backend.SplitPath(msg.Payload)
			if err != nil {
				continue
			}
			if c.isClosed() {
				continue
			}
			c.dispatching.Store(true)
			c.feed.Notify(changed, func(segs []string) any {
				readCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				v, _ := c.snapshot(readCtx, segs)
				return v
			})
			c.dispatching.Store(false)
		}
	}()
	return nil
}
