package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"meetspace-api/internal/config"
	"meetspace-api/internal/observability/logger"

	"github.com/stretchr/testify/assert"
)

func TestMetricsEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		headers  map[string]string
		want     int
		contains string
	}{
		{name: "open when no token set", want: http.StatusOK, contains: "go_info"},
		{name: "missing header", token: "secret-token", want: http.StatusUnauthorized, contains: "unauthorized"},
		{
			name:    "header mismatch",
			token:   "secret-token",
			headers: map[string]string{"X-Metrics-Token": "wrong-token"},
			want:    http.StatusUnauthorized,
		},
		{
			name:     "header matches",
			token:    "secret-token",
			headers:  map[string]string{"X-Metrics-Token": "secret-token"},
			want:     http.StatusOK,
			contains: "go_goroutines",
		},
		{
			name:     "bearer matches",
			token:    "secret-token",
			headers:  map[string]string{"Authorization": "Bearer secret-token"},
			want:     http.StatusOK,
			contains: "go_gc_duration_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := buildRouter(RouterDeps{
				Cfg: &config.Config{MetricsToken: tt.token},
				Log: logger.Nop(),
			})

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.contains != "" {
				assert.Contains(t, w.Body.String(), tt.contains)
			}
		})
	}
}
