package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ViniciusResende/PerguntaUFMG/security"
)

// IdentityStore keeps identity records as plain Redis strings under
// {prefix}:identity:{key}.
type IdentityStore struct {
	rdb    *redis.Client
	prefix string
}

// NewIdentityStore creates a store on rdb; prefix defaults to "pergunta".
func NewIdentityStore(rdb *redis.Client, prefix string) *IdentityStore {
	if prefix == "" {
		prefix = "pergunta"
	}
	return &IdentityStore{rdb: rdb, prefix: prefix}
}

func (s *IdentityStore) key(k string) string { return s.prefix + ":identity:" + k }

func (s *IdentityStore) Load(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, security.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	return b, nil
}

func (s *IdentityStore) Save(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}

func (s *IdentityStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	return nil
}
