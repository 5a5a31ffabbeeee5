package docs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlers(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.Handler
		path        string
		contentType string
		contains    []string
	}{
		{
			name:        "openapi document",
			handler:     OpenAPIHandler(),
			path:        "/openapi.yaml",
			contentType: "application/yaml",
			contains:    []string{"openapi: 3.0.3", "Meetspace API"},
		},
		{
			name:        "reference page",
			handler:     ScalarDocsHandler("/openapi.yaml"),
			path:        "/docs",
			contentType: "text/html",
			contains:    []string{"@scalar/api-reference", `data-url="/openapi.yaml"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Header().Get("Content-Type"), tt.contentType)
			for _, s := range tt.contains {
				assert.Contains(t, rr.Body.String(), s)
			}
		})
	}
}
