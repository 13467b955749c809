package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "gocollab:"

// RedisStore keeps blobs as plain redis string values.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already connected client. The store owns the
// client and closes it on Close.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get %s: %v", ErrUnavailable, key, err)
	}
	return value, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
