package auth

import (
	"context"
	"net/http"
	"strings"

	"meetspace-api/internal/http/httperr"
	"meetspace-api/internal/observability/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// Middleware authenticates bearer tokens and stores the claims and the
// actor's user id in the request context.
func Middleware(resolver *KeyResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.GetLogger(ctx)

			fail := func(reason AuthFailureReason, message string, err error, token string) {
				fields := []zap.Field{
					logger.Module("auth"),
					logger.Action("authenticate"),
					zap.String("auth_failure_reason", string(reason)),
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				}
				if token != "" {
					fields = append(fields, zap.String("token_prefix", maskToken(token)))
				}
				if err != nil {
					fields = append(fields, zap.Error(err))
				}
				log.Warn(ctx, "authentication failed", fields...)
				httperr.Unauthorized401(w, ctx, reason.Code(), message)
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				fail(AuthFailureMissingAuthorization, "missing authorization header", nil, "")
				return
			}
			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || scheme != "Bearer" || tokenString == "" {
				fail(AuthFailureInvalidScheme, "invalid authorization scheme, expected Bearer", nil, "")
				return
			}

			claims, err := resolver.Resolve(ctx, tokenString)
			if err != nil {
				fail(failureReason(err), "invalid or expired token", err, tokenString)
				return
			}

			trace.SpanFromContext(ctx).SetAttributes(attribute.String("actor_id", claims.ActorID))
			ctx = context.WithValue(ctx, claimsContextKey, claims)
			ctx = logger.SetUserIDInContext(ctx, claims.ActorID)

			log.Debug(ctx, "authenticated request",
				logger.Module("auth"),
				logger.Action("authenticate"),
				zap.String("issuer", claims.Issuer),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims retrieves claims from context
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// ActorID returns the authenticated user id.
func ActorID(ctx context.Context) (string, bool) {
	claims, ok := GetClaims(ctx)
	if !ok {
		return "", false
	}
	return claims.ActorID, true
}
