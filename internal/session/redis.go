package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps each session as a hash under session:<sid>. Every write
// pushes the expiry forward by ttl.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(sid string) string {
	return fmt.Sprintf("session:%s", sid)
}

func (s *RedisStore) Get(ctx context.Context, sid, key string) (string, bool, error) {
	val, err := s.client.HGet(ctx, redisKey(sid), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session: %w", err)
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, sid, key, value string) error {
	k := redisKey(sid)
	if err := s.client.HSet(ctx, k, key, value).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := s.client.Expire(ctx, k, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh session expiry: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sid string, keys ...string) error {
	if err := s.client.HDel(ctx, redisKey(sid), keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
