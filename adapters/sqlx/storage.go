// Package sqlx stores the realtime tree in a relational database. Each
// record (the first two path segments, e.g. rooms/{code}) is one row
// holding the record's JSON document.
package sqlx

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ViniciusResende/PerguntaUFMG/backend"
)

type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
)

// Config holds database connection configuration
type Config struct {
	Driver          Driver        `json:"driver" mapstructure:"driver" env:"PERGUNTA_SQL_DRIVER"`
	DSN             string        `json:"dsn" mapstructure:"dsn" env:"PERGUNTA_SQL_DSN"`
	MaxOpenConns    int           `json:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	MigrateOnStart  bool          `json:"migrate_on_start" mapstructure:"migrate_on_start" env:"PERGUNTA_SQL_MIGRATE"`
}

// DefaultConfig returns defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	cfg := Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		MigrateOnStart:  true,
	}
	if driver == DriverSQLite {
		cfg.DSN = "file:pergunta.db?_pragma=busy_timeout(5000)"
		cfg.MaxOpenConns = 1
	}
	return cfg
}

func (d Driver) valid() bool {
	switch d {
	case DriverPostgres, DriverMySQL, DriverSQLite:
		return true
	}
	return false
}

const schema = `CREATE TABLE IF NOT EXISTS realtime_records (
	path VARCHAR(512) PRIMARY KEY,
	value TEXT NOT NULL
)`

// Client implements backend.Client on a SQL database. Change notifications
// are delivered to clients of the same process sharing the feed.
type Client struct {
	db       *sqlx.DB
	driver   Driver
	ownsConn bool
	auth     backend.Authenticator
	newID    func() string
	feed     *backend.Feed

	mu      sync.Mutex
	closed  bool
	cancels []func()
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

// WithFeed sets the change feed shared with other clients of the database.
func WithFeed(f *backend.Feed) Option {
	return func(c *Client) {
		if f != nil {
			c.feed = f
		}
	}
}

// New connects using cfg and, when asked, creates the schema.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if !cfg.Driver.valid() {
		return nil, fmt.Errorf("sqlx: unsupported driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, errors.New("sqlx: dsn is required")
	}
	db, err := sqlx.ConnectContext(ctx, string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	c := NewWithDB(db, cfg.Driver, append([]Option{WithFeed(backend.SharedFeed(string(cfg.Driver) + ":" + cfg.DSN))}, opts...)...)
	c.ownsConn = true
	if cfg.MigrateOnStart {
		if err := c.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return c, nil
}

// NewWithDB wraps an existing connection (useful for testing).
func NewWithDB(db *sqlx.DB, driver Driver, opts ...Option) *Client {
	c := &Client{
		db:     db,
		driver: driver,
		auth:   backend.Anonymous{},
		newID:  backend.NewID,
		feed:   backend.NewFeed(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Migrate creates the records table when missing.
func (c *Client) Migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancels := c.cancels
	c.cancels = nil
	c.mu.Unlock()
	for _, fn := range cancels {
		fn()
	}
	if c.ownsConn {
		return c.db.Close()
	}
	return nil
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
		return fmt.Errorf("sqlx: update at %q needs an object, got %T", path, value)
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
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, backend.ErrClosed
	}
	cancel := c.feed.Add(segs, cb)
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()

	v, err := c.snapshot(ctx, segs)
	if err != nil {
		cancel()
		return nil, err
	}
	cb(v)
	return cancel, nil
}

func recordPath(segs []string) string { return segs[0] + "/" + segs[1] }

func (c *Client) upsertQuery() string {
	if c.driver == DriverMySQL {
		return `INSERT INTO realtime_records (path, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)`
	}
	return c.db.Rebind(`INSERT INTO realtime_records (path, value) VALUES (?, ?) ON CONFLICT (path) DO UPDATE SET value = excluded.value`)
}

func (c *Client) mutate(ctx context.Context, segs []string, fn func(rec map[string]any, rel []string) map[string]any) error {
	if len(segs) < 2 {
		return fmt.Errorf("%w: writes need a record path, got %q", backend.ErrInvalidPath, backend.JoinPath(segs))
	}
	key := recordPath(segs)

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := c.loadRecord(ctx, tx, key)
	if err != nil {
		return err
	}
	next := fn(rec, segs[2:])
	if len(next) == 0 {
		if _, err := tx.ExecContext(ctx, c.db.Rebind(`DELETE FROM realtime_records WHERE path = ?`), key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	} else {
		b, err := json.Marshal(next)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, c.upsertQuery(), key, string(b)); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", key, err)
	}

	c.feed.Notify(segs, func(s []string) any {
		readCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		v, _ := c.snapshot(readCtx, s)
		return v
	})
	return nil
}

func (c *Client) loadRecord(ctx context.Context, q sqlx.QueryerContext, key string) (map[string]any, error) {
	var raw string
	err := sqlx.GetContext(ctx, q, &raw, c.db.Rebind(`SELECT value FROM realtime_records WHERE path = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("corrupt record %s: %w", key, err)
	}
	return rec, nil
}

type recordRow struct {
	Path  string `db:"path"`
	Value string `db:"value"`
}

func (c *Client) snapshot(ctx context.Context, segs []string) (any, error) {
	if len(segs) == 1 {
		return c.collection(ctx, segs[0])
	}
	rec, err := c.loadRecord(ctx, c.db, recordPath(segs))
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
	var rows []recordRow
	prefix := name + "/"
	err := c.db.SelectContext(ctx, &rows, c.db.Rebind(`SELECT path, value FROM realtime_records WHERE path LIKE ?`), prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", name, err)
	}
	out := map[string]any{}
	for _, r := range rows {
		var rec map[string]any
		if err := json.Unmarshal([]byte(r.Value), &rec); err != nil {
			return nil, fmt.Errorf("corrupt record %s: %w", r.Path, err)
		}
		out[strings.TrimPrefix(r.Path, prefix)] = rec
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
