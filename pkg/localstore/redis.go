package localstore

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront/pkg/redis"
)

// RedisStore scopes every key to one cart token so the BFF can keep a
// server-side cart per shopper.
type RedisStore struct {
	client redis.CartStore
	token  string
	ttl    time.Duration
}

// NewRedisStore returns a store whose keys live under the token's cart namespace.
func NewRedisStore(client redis.CartStore, token string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, token: token, ttl: ttl}
}

func (s *RedisStore) key(key string) string {
	return s.client.CartKey(s.token) + ":" + key
}

func (s *RedisStore) GetItem(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key))
	if redis.IsNil(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

// SetItem refreshes the TTL on every write.
func (s *RedisStore) SetItem(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) RemoveItem(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key))
}
