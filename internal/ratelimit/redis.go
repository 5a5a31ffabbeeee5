package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
)

// RedisRateLimiter is a sliding-window limiter shared by every instance.
// Each request is a member of a sorted set scored by its timestamp.
type RedisRateLimiter struct {
	client     redis.UniversalClient
	rejections metric.Int64Counter
	now        func() time.Time
}

// NewRedisRateLimiter creates a limiter. rejections may be nil.
func NewRedisRateLimiter(client redis.UniversalClient, rejections metric.Int64Counter) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, rejections: rejections, now: time.Now}
}

// Allow records the request and counts the requests inside the window.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	now := rl.now()
	windowStart := now.Add(-window)
	redisKey := "ratelimit:workspace:" + key

	pipe := rl.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixMilli(), 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, 2*window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count, err := countCmd.Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to get count: %w", err)
	}

	remaining := max(limit-int(count), 0)
	allowed := count <= int64(limit)
	if !allowed && rl.rejections != nil {
		rl.rejections.Add(ctx, 1)
	}
	return allowed, remaining, nil
}
