package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"meetspace-api/internal/auth"
	"meetspace-api/internal/http/httperr"
	"meetspace-api/internal/http/middleware"
	"meetspace-api/internal/observability/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DBPool is the part of the pool used by the database ping.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DebugHandler serves diagnostics in development environments only.
type DebugHandler struct {
	appEnv string
	pool   DBPool
}

// NewDebugHandler creates a debug handler. pool may be nil when the service
// runs without PostgreSQL.
func NewDebugHandler(appEnv string, pool DBPool) *DebugHandler {
	if appEnv == "" {
		appEnv = "production"
	}
	return &DebugHandler{appEnv: appEnv, pool: pool}
}

// DebugAuthData describes the authenticated caller.
type DebugAuthData struct {
	ActorID     string     `json:"actorId"`
	TokenIssuer string     `json:"tokenIssuer,omitempty"`
	Audience    []string   `json:"audience,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	WorkspaceID string     `json:"workspaceId,omitempty"`
	MemberID    string     `json:"memberId,omitempty"`
}

type debugAuthResponse struct {
	OK   bool           `json:"ok"`
	Data *DebugAuthData `json:"data"`
}

func (h *DebugHandler) enabled(w http.ResponseWriter, r *http.Request) bool {
	if h.appEnv == "dev" || h.appEnv == "development" {
		return true
	}
	ctx := r.Context()
	logger.GetLogger(ctx).Warn(ctx, "debug endpoint accessed in non-dev environment",
		logger.Module("debug"),
		logger.Action("guard"),
		zap.String("app_env", h.appEnv),
	)
	http.NotFound(w, r)
	return false
}

// GetAuthDebug handles GET /debug/auth and
// GET /debug/auth/workspaces/{workspaceId}. The workspace variant runs
// behind the membership middleware and reports the resolved member.
func (h *DebugHandler) GetAuthDebug(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w, r) {
		return
	}
	ctx := r.Context()

	claims, ok := auth.GetClaims(ctx)
	if !ok {
		httperr.Unauthorized401(w, ctx, httperr.ErrCodeInvalidToken, "authentication required")
		return
	}

	data := &DebugAuthData{
		ActorID:     claims.ActorID,
		TokenIssuer: claims.Issuer,
		Audience:    claims.Audience,
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		data.ExpiresAt = &exp
	}
	data.WorkspaceID, _ = middleware.GetWorkspaceID(ctx)
	data.MemberID, _ = middleware.GetMemberID(ctx)

	writeJSON(w, http.StatusOK, debugAuthResponse{OK: true, Data: data})
}

// PingDB handles GET /debug/db/ping with SELECT 1.
func (h *DebugHandler) PingDB(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w, r) {
		return
	}
	ctx := r.Context()
	if h.pool == nil {
		httperr.WriteError(w, ctx, http.StatusServiceUnavailable, httperr.ErrCodeServiceUnavailable, "database not configured")
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var result int
	if err := h.pool.QueryRow(pingCtx, "SELECT 1").Scan(&result); err != nil {
		fields := []zap.Field{logger.Module("debug"), logger.Action("db_ping"), zap.Error(err)}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			fields = append(fields, zap.String("pgcode", pgErr.Code))
		}
		logger.GetLogger(ctx).Error(ctx, "db_ping_failed", fields...)
		logger.SetRootError(ctx, err)
		httperr.InternalError500(w, ctx, "database ping failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
