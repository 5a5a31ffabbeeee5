package middleware

import (
	"net/http"
	"strconv"
	"time"

	"meetspace-api/internal/http/httperr"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/ratelimit"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const rateLimitWindow = time.Minute

// RateLimitMiddleware enforces limitPerMin requests per workspace. It must
// run after WorkspaceMiddleware. Limiter failures fail open.
func RateLimitMiddleware(limiter ratelimit.Limiter, limitPerMin int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.GetLogger(ctx)

			workspaceID, ok := GetWorkspaceID(ctx)
			if !ok {
				log.Error(ctx, "workspace_id not found in context for rate limiting",
					logger.Module("http"), logger.Action("rate_limit"))
				httperr.InternalError500(w, ctx, "internal server error")
				return
			}

			allowed, remaining, err := limiter.Allow(ctx, "workspace:"+workspaceID, limitPerMin, rateLimitWindow)
			if err != nil {
				log.Error(ctx, "rate limit check failed",
					logger.Module("http"), logger.Action("rate_limit"), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limitPerMin))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(rateLimitWindow).Unix(), 10))

			if !allowed {
				trace.SpanFromContext(ctx).AddEvent("rate_limit_exceeded")
				log.Warn(ctx, "rate limit exceeded",
					logger.Module("http"),
					logger.Action("rate_limit"),
					zap.Int("limit", limitPerMin),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(rateLimitWindow.Seconds())))
				httperr.TooManyRequests429(w, ctx, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
