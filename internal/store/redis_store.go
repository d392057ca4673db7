package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisOpTimeout bounds each redis round-trip so a dead redis does not hang
// the widget load path.
const redisOpTimeout = 5 * time.Second

// RedisStore keeps widget state in a single redis hash per property. Used by
// multi-kiosk deployments where several widget instances share guest state.
type RedisStore struct {
	rdb        *redis.Client
	propertyID string
}

// NewRedisStore creates a RedisStore scoped to the given property id.
func NewRedisStore(rdb *redis.Client, propertyID string) (*RedisStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("store: redis client is required")
	}
	if propertyID == "" {
		return nil, fmt.Errorf("store: property id is required")
	}
	return &RedisStore{rdb: rdb, propertyID: propertyID}, nil
}

func (s *RedisStore) hashKey() string {
	return "guest_state:" + s.propertyID
}

// Get returns the value for key, or "" if unset.
func (s *RedisStore) Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := s.rdb.HGet(ctx, s.hashKey(), key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: redis get %s: %w", key, err)
	}
	return val, nil
}

// Set writes the value for key.
func (s *RedisStore) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.rdb.HSet(ctx, s.hashKey(), key, value).Err(); err != nil {
		return fmt.Errorf("store: redis set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (s *RedisStore) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.rdb.HDel(ctx, s.hashKey(), key).Err(); err != nil {
		return fmt.Errorf("store: redis remove %s: %w", key, err)
	}
	return nil
}

// Clear removes all the given keys.
func (s *RedisStore) Clear(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.rdb.HDel(ctx, s.hashKey(), keys...).Err(); err != nil {
		return fmt.Errorf("store: redis clear: %w", err)
	}
	return nil
}
