package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindowLimiter is a fixed-window counter shared through Redis. The TTL
// is set on the first hit of each window.
type RedisWindowLimiter struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisWindowLimiter namespaces every counter under prefix, which is
// terminated with a colon when it lacks one.
func NewRedisWindowLimiter(client redis.UniversalClient, prefix string) *RedisWindowLimiter {
	if prefix == "" {
		prefix = "videotube:ratelimit"
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &RedisWindowLimiter{client: client, prefix: prefix, now: time.Now}
}

func (l *RedisWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := windowKey(l.prefix, key, window, l.now())

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("increment %s: %w", redisKey, err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", redisKey, err)
		}
	}

	return count <= int64(limit), nil
}
