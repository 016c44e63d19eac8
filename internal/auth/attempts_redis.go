package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// reserveScript trims the attempt set to the window and adds the new attempt
// only while the set is under the limit. It runs atomically on the server.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local since = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
redis.call('ZREMRANGEBYSCORE', key, '-inf', since)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[5])
redis.call('PEXPIRE', key, ttl)
return 1
`)

// RedisAttemptStore shares attempt counters between instances through a
// sorted set per account.
type RedisAttemptStore struct {
	client *redis.Client
	prefix string
}

// NewRedisAttemptStore connects to url and verifies the connection.
func NewRedisAttemptStore(ctx context.Context, url, prefix string) (*RedisAttemptStore, error) {
	if url == "" {
		return nil, errors.New("redis URL is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisAttemptStoreFromClient(client, prefix), nil
}

// NewRedisAttemptStoreFromClient wraps an existing client.
func NewRedisAttemptStoreFromClient(client *redis.Client, prefix string) *RedisAttemptStore {
	if prefix == "" {
		prefix = "siteworks:login:"
	}
	return &RedisAttemptStore{client: client, prefix: prefix}
}

func (s *RedisAttemptStore) key(k string) string {
	return s.prefix + k
}

// Reserve implements AttemptStore.
func (s *RedisAttemptStore) Reserve(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, error) {
	n, err := reserveScript.Run(ctx, s.client, []string{s.key(key)},
		now.UnixMilli(),
		now.Add(-window).UnixMilli(),
		limit,
		window.Milliseconds(),
		uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("reserving login attempt: %w", err)
	}
	return n == 1, nil
}

// Clear implements AttemptStore.
func (s *RedisAttemptStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Close closes the Redis client.
func (s *RedisAttemptStore) Close() error {
	return s.client.Close()
}
