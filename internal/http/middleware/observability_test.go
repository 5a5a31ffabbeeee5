package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/http/httperr"
	"meetspace-api/internal/http/middleware"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/observability/requestid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.NewWithCore("test-service", core), logs
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantSame bool
	}{
		{name: "generates id", header: ""},
		{name: "preserves existing id", header: "test-request-id-123", wantSame: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inCtx string
			handler := middleware.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				inCtx = requestid.GetRequestID(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-Id", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get("X-Request-Id")
			assert.Equal(t, inCtx, got)
			if tt.wantSame {
				assert.Equal(t, tt.header, got)
			} else {
				assert.True(t, strings.HasPrefix(got, requestid.Prefix), got)
			}
		})
	}
}

func TestRequestLoggingMiddleware_CapturesStatusCode(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			log, logs := observedLogger()
			handler := middleware.RequestLoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Same(t, log, logger.GetLogger(r.Context()))
				w.WriteHeader(status)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test?foo=bar", nil))
			assert.Equal(t, status, rec.Code)

			completed := logs.FilterMessage("http request completed").All()
			require.Len(t, completed, 1)
			assert.EqualValues(t, status, completed[0].ContextMap()["status"])
			assert.Equal(t, "foo=bar", completed[0].ContextMap()["query"])

			httpErrors := logs.FilterMessage("http_error").Len()
			if status >= 500 {
				assert.Equal(t, 1, httpErrors)
			} else {
				assert.Zero(t, httpErrors)
			}
		})
	}
}

func TestRequestLoggingMiddleware_ClassifiesRootError(t *testing.T) {
	log, logs := observedLogger()
	handler := middleware.RequestLoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httperr.WriteDomainError(w, r.Context(), errors.Join(errors.New("version 3 != 4"), domain.ErrInternalInconsistency))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/workspaces/ws/members", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	entries := logs.FilterMessage("http_error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "inconsistency", entries[0].ContextMap()["kind"])
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers panic", func(t *testing.T) {
		log, logs := observedLogger()
		handler := middleware.RecoveryMiddleware(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("test panic")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"ok":false,"error":{"code":"INTERNAL_ERROR","message":"Internal Server Error"}}`, rec.Body.String())
		assert.Equal(t, 1, logs.FilterMessage("panic_recovered").Len())
	})

	t.Run("dev mode includes error id", func(t *testing.T) {
		t.Setenv("APP_ENV", "dev")
		log, _ := observedLogger()
		handler := middleware.RequestIDMiddleware(
			middleware.RecoveryMiddleware(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic("dev panic")
			})),
		)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error_id":"`+rec.Header().Get("X-Request-Id")+`"`)
	})

	t.Run("normal flow untouched", func(t *testing.T) {
		log, _ := observedLogger()
		handler := middleware.RecoveryMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("success"))
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "success", rec.Body.String())
	})
}

func BenchmarkRequestIDMiddleware(b *testing.B) {
	handler := middleware.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
