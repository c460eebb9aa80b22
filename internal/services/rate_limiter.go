package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/tiptop/backend/internal/logger"
	"go.uber.org/zap"
)

type RateLimiter interface {
	Allow(ctx context.Context, subject string) error
}

// RedisRateLimiter counts events per subject in a fixed window. The counter
// key is <prefix>:ratelimit:<subject>.
type RedisRateLimiter struct {
	redis  *redis.Client
	prefix string
	max    int
	window time.Duration
}

func NewRedisRateLimiter(client *redis.Client, prefix string, max int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{redis: client, prefix: prefix, max: max, window: window}
}

func (l *RedisRateLimiter) key(subject string) string {
	return fmt.Sprintf("%s:ratelimit:%s", l.prefix, subject)
}

// Allow records one event and returns ErrTooManyRequests once the window
// holds more than max. Redis failures are logged and let the request through.
func (l *RedisRateLimiter) Allow(ctx context.Context, subject string) error {
	if l == nil || l.redis == nil || l.max <= 0 {
		return nil
	}

	key := l.key(subject)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		logger.Log.Error("Rate limit check failed", zap.String("key", key), zap.Error(err))
		return nil
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			logger.Log.Error("Failed to set rate limit window", zap.String("key", key), zap.Error(err))
		}
	}

	if count > int64(l.max) {
		return ErrTooManyRequests
	}
	return nil
}
