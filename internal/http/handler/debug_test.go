package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meetspace-api/internal/auth"
	"meetspace-api/internal/observability/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int)) = 1
	return nil
}

type fakePool struct{ err error }

func (p fakePool) QueryRow(context.Context, string, ...any) pgx.Row { return fakeRow{err: p.err} }

func debugRequest(path string, claims *auth.Claims) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	ctx := logger.SetLoggerInContext(req.Context(), logger.Nop())
	if claims != nil {
		ctx = auth.SetClaimsForTesting(ctx, claims)
	}
	return req.WithContext(ctx)
}

func TestDebugHandler_GetAuthDebug(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims := &auth.Claims{
		ActorID: "user-456",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "meetspace-web",
			Audience:  jwt.ClaimStrings{"meetspace-api"},
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	tests := []struct {
		name     string
		env      string
		claims   *auth.Claims
		wantCode int
	}{
		{name: "production hidden", env: "production", claims: claims, wantCode: http.StatusNotFound},
		{name: "empty env defaults to production", env: "", claims: claims, wantCode: http.StatusNotFound},
		{name: "dev allowed", env: "dev", claims: claims, wantCode: http.StatusOK},
		{name: "dev without claims", env: "development", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewDebugHandler(tt.env, nil).GetAuthDebug(rec, debugRequest("/debug/auth", tt.claims))
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp debugAuthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.True(t, resp.OK)
			assert.Equal(t, "user-456", resp.Data.ActorID)
			assert.Equal(t, "meetspace-web", resp.Data.TokenIssuer)
			assert.Equal(t, []string{"meetspace-api"}, resp.Data.Audience)
			require.NotNil(t, resp.Data.ExpiresAt)
			assert.True(t, exp.Equal(*resp.Data.ExpiresAt))
			assert.Empty(t, resp.Data.MemberID)
		})
	}
}

func TestDebugHandler_PingDB(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		pool     DBPool
		wantCode int
	}{
		{name: "production hidden", env: "production", pool: fakePool{}, wantCode: http.StatusNotFound},
		{name: "ok", env: "dev", pool: fakePool{}, wantCode: http.StatusOK},
		{name: "query fails", env: "dev", pool: fakePool{err: errors.New("connection refused")}, wantCode: http.StatusInternalServerError},
		{name: "no database", env: "dev", wantCode: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewDebugHandler(tt.env, tt.pool).PingDB(rec, debugRequest("/debug/db/ping", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
