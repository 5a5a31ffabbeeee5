package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

const idleSweepInterval = 5 * time.Minute

// LocalRateLimiter is a per-process token bucket limiter, used when no Redis
// is configured. The bucket refills limit tokens per window with a burst of limit.
type LocalRateLimiter struct {
	rejections metric.Int64Counter

	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	lastSweep time.Time
}

// NewLocalRateLimiter creates a limiter. rejections may be nil.
func NewLocalRateLimiter(rejections metric.Int64Counter) *LocalRateLimiter {
	return &LocalRateLimiter{
		rejections: rejections,
		limiters:   make(map[string]*rate.Limiter),
		lastSweep:  time.Now(),
	}
}

// Allow takes one token from the bucket of key.
func (l *LocalRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	lim := l.limiter(key, limit, window)

	allowed := lim.Allow()
	remaining := max(int(lim.Tokens()), 0)
	if !allowed && l.rejections != nil {
		l.rejections.Add(ctx, 1)
	}
	return allowed, remaining, nil
}

func (l *LocalRateLimiter) limiter(key string, limit int, window time.Duration) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	every := rate.Every(window / time.Duration(max(limit, 1)))
	lim, ok := l.limiters[key]
	if !ok || lim.Burst() != limit || lim.Limit() != every {
		lim = rate.NewLimiter(every, limit)
		l.limiters[key] = lim
	}

	if time.Since(l.lastSweep) >= idleSweepInterval {
		l.lastSweep = time.Now()
		for k, v := range l.limiters {
			// a full bucket has been idle for at least a window
			if k != key && v.Tokens() >= float64(v.Burst()) {
				delete(l.limiters, k)
			}
		}
	}
	return lim
}

// Len returns the number of tracked keys.
func (l *LocalRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
