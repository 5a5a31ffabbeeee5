package requestid

import (
	"context"

	"meetspace-api/internal/idgen"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// Prefix marks generated request ids.
const Prefix = "req_"

// NewRequestID returns "req_" followed by a ULID, so ids sort by creation time.
func NewRequestID() string {
	return Prefix + idgen.New()
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// SetRequestID stores request ID in context
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}
