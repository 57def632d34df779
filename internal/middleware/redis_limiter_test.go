package middleware

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisWindowLimiter(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)

	limiter := NewRedisWindowLimiter(client, "test:")
	fixed := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return fixed }

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "auth:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, allowed, "hit %d", i)
	}

	allowed, err := limiter.Allow(ctx, "auth:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)

	key := windowKey("test:", "auth:1.2.3.4", time.Minute, fixed)
	require.True(t, mr.Exists(key))
	require.Equal(t, time.Minute, mr.TTL(key))

	allowed, err = limiter.Allow(ctx, "auth:5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	limiter.now = func() time.Time { return fixed.Add(time.Minute) }
	allowed, err = limiter.Allow(ctx, "auth:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestRedisWindowLimiterReportsOutage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, err = NewRedisWindowLimiter(client, "").Allow(context.Background(), "k", 1, time.Minute)
	require.Error(t, err)
}

func TestRedisWindowLimiterSeparatesPrefixFromKey(t *testing.T) {
	ctx := context.Background()

	for _, prefix := range []string{"videotube:ratelimit", "videotube:ratelimit:", ""} {
		t.Run(prefix, func(t *testing.T) {
			mr, client := newTestRedis(t)
			limiter := NewRedisWindowLimiter(client, prefix)

			_, err := limiter.Allow(ctx, "auth:1.2.3.4", 1, time.Minute)
			require.NoError(t, err)

			keys := mr.Keys()
			require.Len(t, keys, 1)
			require.True(t, strings.HasPrefix(keys[0], "videotube:ratelimit:auth:1.2.3.4"), keys[0])
		})
	}
}
