package logger

import (
	"context"

	"meetspace-api/internal/observability/requestid"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey      contextKey = "logger"
	workspaceIDKey contextKey = "workspace_id"
	userIDKey      contextKey = "user_id"
	memberIDKey    contextKey = "member_id"
	rootErrorKey   contextKey = "root_err"
)

// scopedKeys are the context ids copied onto every entry, in output order.
var scopedKeys = []contextKey{workspaceIDKey, userIDKey, memberIDKey}

func contextFields(ctx context.Context) []Field {
	fields := make([]Field, 0, len(scopedKeys)+1)
	if id := requestid.GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	for _, key := range scopedKeys {
		if id := stringValue(ctx, key); id != "" {
			fields = append(fields, zap.String(string(key), id))
		}
	}
	return fields
}

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

func GetRequestIDFromContext(ctx context.Context) string { return requestid.GetRequestID(ctx) }

func GetWorkspaceIDFromContext(ctx context.Context) string { return stringValue(ctx, workspaceIDKey) }

func GetUserIDFromContext(ctx context.Context) string { return stringValue(ctx, userIDKey) }

func GetMemberIDFromContext(ctx context.Context) string { return stringValue(ctx, memberIDKey) }

func SetRequestIDInContext(ctx context.Context, requestID string) context.Context {
	return requestid.SetRequestID(ctx, requestID)
}

func SetWorkspaceIDInContext(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, workspaceIDKey, workspaceID)
}

func SetUserIDInContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func SetMemberIDInContext(ctx context.Context, memberID string) context.Context {
	return context.WithValue(ctx, memberIDKey, memberID)
}

// GetLogger returns the request logger, or a fresh info logger when none
// was installed.
func GetLogger(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	l, err := New(defaultServiceName, "info")
	if err != nil {
		return Nop()
	}
	return l
}

// SetLoggerInContext installs l as the request logger.
func SetLoggerInContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

type rootError struct{ err error }

// InitRootErrorContext installs a holder for the request's root cause error.
func InitRootErrorContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, rootErrorKey, &rootError{})
}

// SetRootError records err as the root cause when a holder is present.
func SetRootError(ctx context.Context, err error) {
	if h, ok := ctx.Value(rootErrorKey).(*rootError); ok {
		h.err = err
	}
}

// GetRootError returns the recorded root cause error.
func GetRootError(ctx context.Context) error {
	if h, ok := ctx.Value(rootErrorKey).(*rootError); ok {
		return h.err
	}
	return nil
}
