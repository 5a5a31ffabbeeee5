package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meetspace-api/internal/http/httperr"
	"meetspace-api/internal/observability/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	valid := signWith(t, "", jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := signWith(t, "", jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{name: "valid bearer", header: "Bearer " + valid, wantCode: http.StatusOK},
		{name: "missing header", wantCode: http.StatusUnauthorized, wantErr: httperr.ErrCodeMissingAuthorization},
		{name: "basic scheme", header: "Basic abc", wantCode: http.StatusUnauthorized, wantErr: httperr.ErrCodeInvalidScheme},
		{name: "empty bearer", header: "Bearer ", wantCode: http.StatusUnauthorized, wantErr: httperr.ErrCodeInvalidScheme},
		{name: "expired", header: "Bearer " + expired, wantCode: http.StatusUnauthorized, wantErr: httperr.ErrCodeTokenExpired},
		{name: "garbage", header: "Bearer nope", wantCode: http.StatusUnauthorized, wantErr: httperr.ErrCodeInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotActor, gotLogUser string
			h := Middleware(newTestResolver())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotActor, _ = ActorID(r.Context())
				gotLogUser = logger.GetUserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
			req = req.WithContext(logger.SetLoggerInContext(req.Context(), logger.Nop()))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr == "" {
				assert.Equal(t, testActor, gotActor)
				assert.Equal(t, testActor, gotLogUser)
				return
			}
			var body httperr.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.wantErr, body.Error.Code)
		})
	}
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "***", maskToken("short"))
	assert.Equal(t, "eyJhbGciOiJI...", maskToken("eyJhbGciOiJIUzI1NiJ9.payload.sig"))
}
