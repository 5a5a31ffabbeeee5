// Package ratelimit limits request rates per workspace.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether one more request for key fits into the window.
// remaining is the number of requests still available in the window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
}
