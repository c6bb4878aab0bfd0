// Package adapters turns the opaque backend configuration carried by the
// library configuration into a connected backend.Client.
//
// The configuration is a JSON-like map:
//
//	{
//	  "adapter": "memory" | "file" | "redis" | "sql",
//	  "name":    "default",              // memory: shared database name
//	  "path":    "pergunta.json",        // file
//	  "redis":   {"addr": "...", ...},  // redis.Config
//	  "sql":     {"driver": "...", "dsn": "..."},
//	  "auth":    {"secret": "...", "token": "..."}
//	}
package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/ViniciusResende/PerguntaUFMG/adapters/jsonfile"
	"github.com/ViniciusResende/PerguntaUFMG/adapters/memory"
	"github.com/ViniciusResende/PerguntaUFMG/adapters/redis"
	"github.com/ViniciusResende/PerguntaUFMG/adapters/sqlx"
	"github.com/ViniciusResende/PerguntaUFMG/backend"
)

type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindRedis  Kind = "redis"
	KindSQL    Kind = "sql"
)

var ErrUnknownAdapter = errors.New("adapters: unknown adapter")

// AuthConfig selects the sign-in flow. An empty secret means anonymous
// sign-in.
type AuthConfig struct {
	Secret string `json:"secret,omitempty"`
	Token  string `json:"token,omitempty"`
}

type apiConfig struct {
	Adapter Kind          `json:"adapter"`
	Name    string        `json:"name"`
	Path    string        `json:"path"`
	Redis   *redis.Config `json:"redis"`
	SQL     *sqlx.Config  `json:"sql"`
	Auth    AuthConfig    `json:"auth"`
}

// Dial connects the adapter named by cfg. It satisfies per.Dialer.
func Dial(ctx context.Context, cfg map[string]any) (backend.Client, error) {
	var c apiConfig
	if err := backend.Decode(cfg, &c); err != nil {
		return nil, fmt.Errorf("adapters: invalid api config: %w", err)
	}
	auth := c.Auth.authenticator()

	switch c.Adapter {
	case "", KindMemory:
		name := c.Name
		if name == "" {
			name = "default"
		}
		return memory.New(memory.Open(name), memory.WithAuthenticator(auth)), nil
	case KindFile:
		if c.Path == "" {
			return nil, errors.New("adapters: file adapter needs a path")
		}
		return jsonfile.New(c.Path, memory.WithAuthenticator(auth))
	case KindRedis:
		rc := redis.DefaultConfig()
		if c.Redis != nil {
			rc = mergeRedis(rc, *c.Redis)
		}
		return redis.New(ctx, rc, redis.WithAuthenticator(auth))
	case KindSQL:
		if c.SQL == nil {
			return nil, errors.New("adapters: sql adapter needs a sql section")
		}
		sc := sqlx.DefaultConfig(c.SQL.Driver)
		if c.SQL.DSN != "" {
			sc.DSN = c.SQL.DSN
		}
		if c.SQL.MaxOpenConns > 0 {
			sc.MaxOpenConns = c.SQL.MaxOpenConns
		}
		if c.SQL.MaxIdleConns > 0 {
			sc.MaxIdleConns = c.SQL.MaxIdleConns
		}
		if c.SQL.ConnMaxLifetime > 0 {
			sc.ConnMaxLifetime = c.SQL.ConnMaxLifetime
		}
		return sqlx.New(ctx, sc, sqlx.WithAuthenticator(auth))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, c.Adapter)
	}
}

func (a AuthConfig) authenticator() backend.Authenticator {
	if a.Secret == "" {
		return backend.Anonymous{}
	}
	return backend.NewTokenAuthenticator([]byte(a.Secret), a.Token)
}

// mergeRedis overlays the fields set in o onto the defaults.
func mergeRedis(d, o redis.Config) redis.Config {
	if o.Addr != "" {
		d.Addr = o.Addr
	}
	if o.Password != "" {
		d.Password = o.Password
	}
	if o.DB != 0 {
		d.DB = o.DB
	}
	if o.PoolSize > 0 {
		d.PoolSize = o.PoolSize
	}
	if o.MinIdleConns > 0 {
		d.MinIdleConns = o.MinIdleConns
	}
	if o.DialTimeout > 0 {
		d.DialTimeout = o.DialTimeout
	}
	if o.ReadTimeout > 0 {
		d.ReadTimeout = o.ReadTimeout
	}
	if o.WriteTimeout > 0 {
		d.WriteTimeout = o.WriteTimeout
	}
	if o.Prefix != "" {
		d.Prefix = o.Prefix
	}
	return d
}
