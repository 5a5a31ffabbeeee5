package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meetspace-api/internal/access"
	"meetspace-api/internal/auth"
	"meetspace-api/internal/domain"
	"meetspace-api/internal/http/httperr"
	"meetspace-api/internal/http/middleware"
	"meetspace-api/internal/identity"
	"meetspace-api/internal/ledger"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/workspace"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workspaceFixture struct {
	dir     *workspace.Directory
	wsID    string
	ownerID string
	adminID string
	otherID string
}

func newWorkspaceFixture(t *testing.T) *workspaceFixture {
	t.Helper()
	ctx := context.Background()
	users := identity.NewStore(nil)
	dir := workspace.NewDirectory(ledger.New(), access.NewDefaultRegistry(), users)

	owner, err := users.Register(ctx, "Owner", "owner@example.com", "")
	require.NoError(t, err)
	other, err := users.Register(ctx, "Other", "other@example.com", "")
	require.NoError(t, err)

	ws, adminID, err := dir.CreateDefaultWorkspace(ctx, owner.ID, "team")
	require.NoError(t, err)
	return &workspaceFixture{dir: dir, wsID: ws.ID(), ownerID: owner.ID, adminID: adminID, otherID: other.ID}
}

func workspaceRouter(lookup middleware.WorkspaceLookup, next http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.With(middleware.WorkspaceMiddleware(lookup)).Get("/v1/workspaces/{workspaceId}", next)
	return r
}

func requestAs(actorID, path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	ctx := logger.SetLoggerInContext(req.Context(), logger.Nop())
	if actorID != "" {
		ctx = auth.SetClaimsForTesting(ctx, &auth.Claims{ActorID: actorID})
	}
	return req.WithContext(ctx)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httperr.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotNil(t, body.Error)
	assert.False(t, body.OK)
	return body.Error.Code
}

func TestWorkspaceMiddleware(t *testing.T) {
	f := newWorkspaceFixture(t)

	tests := []struct {
		name     string
		actor    string
		path     string
		wantCode int
		wantErr  string
	}{
		{name: "member resolved", actor: f.ownerID, path: "/v1/workspaces/" + f.wsID, wantCode: http.StatusOK},
		{name: "not a member", actor: f.otherID, path: "/v1/workspaces/" + f.wsID, wantCode: http.StatusForbidden, wantErr: httperr.ErrCodeNotMember},
		{name: "unknown workspace", actor: f.ownerID, path: "/v1/workspaces/does-not-exist", wantCode: http.StatusNotFound, wantErr: httperr.ErrCodeNotFound},
		{name: "no claims", path: "/v1/workspaces/" + f.wsID, wantCode: http.StatusUnauthorized, wantErr: httperr.ErrCodeMissingAuthorization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotWorkspace, gotMember, logMember string
			h := workspaceRouter(f.dir, func(w http.ResponseWriter, r *http.Request) {
				gotWorkspace, _ = middleware.GetWorkspaceID(r.Context())
				gotMember, _ = middleware.GetMemberID(r.Context())
				logMember = logger.GetMemberIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestAs(tt.actor, tt.path))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errorCode(t, rec))
				return
			}
			assert.Equal(t, f.wsID, gotWorkspace)
			assert.Equal(t, f.adminID, gotMember)
			assert.Equal(t, f.adminID, logMember)
		})
	}
}

func TestWorkspaceMiddleware_DeletedWorkspace(t *testing.T) {
	f := newWorkspaceFixture(t)
	require.NoError(t, f.dir.Delete(context.Background(), f.wsID))

	ws, err := f.dir.Get(f.wsID)
	require.NoError(t, err)
	require.Equal(t, domain.WorkspaceDeleted, ws.Status())

	h := workspaceRouter(f.dir, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a deleted workspace")
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestAs(f.ownerID, "/v1/workspaces/"+f.wsID))

	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, httperr.ErrCodeWorkspaceDeleted, errorCode(t, rec))
}

type stubLimiter struct {
	allowed   bool
	remaining int
	err       error
	keys      []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, int, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.remaining, s.err
}

func TestRateLimitMiddleware(t *testing.T) {
	f := newWorkspaceFixture(t)

	tests := []struct {
		name        string
		limiter     *stubLimiter
		wantCode    int
		wantHeaders bool
	}{
		{name: "allowed", limiter: &stubLimiter{allowed: true, remaining: 9}, wantCode: http.StatusOK, wantHeaders: true},
		{name: "rejected", limiter: &stubLimiter{allowed: false}, wantCode: http.StatusTooManyRequests, wantHeaders: true},
		{name: "limiter failure fails open", limiter: &stubLimiter{err: assert.AnError}, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.With(
				middleware.WorkspaceMiddleware(f.dir),
				middleware.RateLimitMiddleware(tt.limiter, 10),
			).Get("/v1/workspaces/{workspaceId}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, requestAs(f.ownerID, "/v1/workspaces/"+f.wsID))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, []string{"workspace:" + f.wsID}, tt.limiter.keys)
			if tt.wantHeaders {
				assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
			} else {
				assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
			}
			if tt.wantCode == http.StatusTooManyRequests {
				assert.Equal(t, "60", rec.Header().Get("Retry-After"))
				assert.Equal(t, httperr.ErrCodeRateLimited, errorCode(t, rec))
			}
		})
	}
}

func TestRateLimitMiddleware_RequiresWorkspace(t *testing.T) {
	h := middleware.RateLimitMiddleware(&stubLimiter{allowed: true}, 10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestAs("", "/"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
