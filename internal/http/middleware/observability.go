package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/http/httperr"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/observability/requestid"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-Id"

	maxLoggedQuery     = 200
	maxLoggedUserAgent = 100

	panicPrefix = "panic: "
)

// RequestIDMiddleware propagates X-Request-Id, generating one when absent,
// and echoes it on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = requestid.NewRequestID()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(requestid.SetRequestID(r.Context(), id)))
	})
}

// RequestLoggingMiddleware stores log in the request context and writes one
// access entry per request, plus an http_error entry for 5xx responses.
// Headers and bodies are never logged.
func RequestLoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ctx := logger.InitRootErrorContext(logger.SetLoggerInContext(r.Context(), log))
			r = r.WithContext(ctx)

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log.Info(ctx, "http request completed", accessFields(r, rec, time.Since(started))...)
			if rec.status >= http.StatusInternalServerError {
				log.Error(ctx, "http_error", serverErrorFields(r, rec.status, logger.GetRootError(ctx))...)
			}
		})
	}
}

// RecoveryMiddleware turns panics into a 500 envelope and logs the stack.
// http.ErrAbortHandler is re-raised.
func RecoveryMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				switch {
				case v == nil:
					return
				case v == http.ErrAbortHandler:
					panic(v)
				}
				ctx := r.Context()
				logger.SetRootError(ctx, fmt.Errorf(panicPrefix+"%v", v))
				log.Error(ctx, "panic_recovered",
					logger.Module("http"),
					logger.Action("panic_recovery"),
					zap.Any("panic", v),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", r.Method),
					zap.String("route", routeOf(r)),
				)
				httperr.InternalError500(w, ctx, "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func accessFields(r *http.Request, rec *recorder, elapsed time.Duration) []zap.Field {
	return []zap.Field{
		logger.Module("http"),
		logger.Action("request"),
		zap.String("method", r.Method),
		zap.String("route", routeOf(r)),
		zap.String("path", r.URL.Path),
		zap.String("query", clip(r.URL.RawQuery, maxLoggedQuery)),
		zap.Int("status", rec.status),
		zap.Int("bytes", rec.bytes),
		zap.Float64("latency_ms", float64(elapsed.Microseconds())/1000),
		zap.String("remote_addr", hostOnly(r.RemoteAddr)),
		zap.String("user_agent", clip(r.UserAgent(), maxLoggedUserAgent)),
	}
}

func serverErrorFields(r *http.Request, status int, rootErr error) []zap.Field {
	fields := []zap.Field{
		logger.Module("http"),
		logger.Action("http_error"),
		zap.Int("status", status),
		zap.String("method", r.Method),
		zap.String("route", routeOf(r)),
		zap.String("kind", errorKind(rootErr)),
	}
	if rootErr == nil {
		return append(fields, zap.String("err", "internal server error (unspecified cause)"))
	}
	fields = append(fields, zap.String("err", rootErr.Error()))
	var pgErr *pgconn.PgError
	if errors.As(rootErr, &pgErr) {
		fields = append(fields, zap.String("pgcode", pgErr.Code))
	}
	return fields
}

// errorKind buckets the root cause of a 5xx for alerting.
func errorKind(err error) string {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, domain.ErrInternalInconsistency):
		return "inconsistency"
	case errors.As(err, &pgErr):
		return "db"
	case strings.HasPrefix(err.Error(), panicPrefix):
		return "panic"
	}
	return "unknown"
}

// recorder keeps the first status written and counts body bytes.
type recorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (rec *recorder) WriteHeader(status int) {
	if !rec.wroteHeader {
		rec.status = status
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *recorder) Write(b []byte) (int, error) {
	rec.wroteHeader = true
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

func (rec *recorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// hostOnly strips the port from a remote address.
func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
