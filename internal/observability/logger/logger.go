// Package logger is the structured JSON logger used across the service.
// Entries always carry service, module and action, plus the request,
// workspace, user and member ids found in the context. Secret and personal
// fields are redacted by key.
package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultServiceName = "meetspace-api"
	unknownValue       = "unknown"
	redacted           = "[REDACTED]"
)

// Field is a structured log field.
type Field = zapcore.Field

// Logger wraps zap.Logger.
type Logger struct {
	zap         *zap.Logger
	serviceName string
}

// New creates a JSON logger writing to stdout at level ("debug", "info",
// "warn" or "error"; anything else is info).
func New(serviceName string, level string) (*Logger, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("serviceName is required")
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig = enc
	cfg.Sampling = nil
	cfg.OutputPaths = []string{"stdout"}

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return wrap(z, serviceName), nil
}

// NewWithCore builds a logger on an existing core. Tests pass an observer core.
func NewWithCore(serviceName string, core zapcore.Core) *Logger {
	return wrap(zap.New(core), serviceName)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop(), serviceName: defaultServiceName}
}

func wrap(z *zap.Logger, serviceName string) *Logger {
	return &Logger{zap: z.With(zap.String("service", serviceName)), serviceName: serviceName}
}

// WithContext returns a logger bound to the ids carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return l
	}
	return &Logger{zap: l.zap.With(fields...), serviceName: l.serviceName}
}

// Module names the component emitting the entry.
func Module(name string) Field { return zap.String("module", name) }

// Action names the operation being performed.
func Action(name string) Field { return zap.String("action", name) }

// Info logs at info level. Missing module/action fields default to "unknown".
func (l *Logger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields)
}

// Warn logs at warn level.
func (l *Logger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields)
}

// Error logs at error level.
func (l *Logger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields)
}

// Debug logs at debug level.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields)
}

func (l *Logger) log(ctx context.Context, level zapcore.Level, msg string, fields []Field) {
	ce := l.zap.Check(level, msg)
	if ce == nil {
		return
	}

	out := contextFields(ctx)
	var hasModule, hasAction bool
	for _, f := range fields {
		switch f.Key {
		case "module":
			hasModule = true
		case "action":
			hasAction = true
		}
		out = append(out, redact(f))
	}
	if !hasModule {
		out = append(out, Module(unknownValue))
	}
	if !hasAction {
		out = append(out, Action(unknownValue))
	}
	ce.Write(out...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Zap exposes the underlying zap logger for libraries that need one.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// sensitiveKeys are field keys whose values never reach the output.
var sensitiveKeys = map[string]struct{}{
	"authorization": {}, "bearer": {}, "token": {}, "jwt": {},
	"password": {}, "secret": {}, "api_key": {}, "credential": {},
	"database_url": {}, "redis_url": {},
	"email": {}, "phone": {}, "name": {}, "full_name": {}, "address": {},
	"text": {}, "transcript": {}, "message_body": {},
}

func redact(f Field) Field {
	if _, ok := sensitiveKeys[strings.ToLower(f.Key)]; ok {
		return zap.String(f.Key, redacted)
	}
	return f
}

func parseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel
	}
	if lvl < zapcore.DebugLevel || lvl > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return lvl
}
