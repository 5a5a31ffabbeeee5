package middleware

import (
	"context"
	"errors"
	"net/http"

	"meetspace-api/internal/auth"
	"meetspace-api/internal/domain"
	"meetspace-api/internal/http/httperr"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/workspace"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	workspaceIDKey contextKey = "workspace_id"
	memberIDKey    contextKey = "member_id"
)

// WorkspaceLookup finds workspaces by id. workspace.Directory implements it.
type WorkspaceLookup interface {
	Get(workspaceID string) (*workspace.Workspace, error)
}

// WorkspaceMiddleware resolves the authenticated actor's member record in
// the workspace named by the {workspaceId} path parameter. Requests from
// users who are not members are rejected with 403.
func WorkspaceMiddleware(workspaces WorkspaceLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.GetLogger(ctx)

			workspaceID := chi.URLParam(r, "workspaceId")
			if workspaceID == "" {
				httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidWorkspaceID, "workspace id not found in path")
				return
			}

			actorID, ok := auth.ActorID(ctx)
			if !ok {
				log.Error(ctx, "claims not found in context", logger.Module("http"), logger.Action("resolve_member"))
				httperr.Unauthorized401(w, ctx, httperr.ErrCodeMissingAuthorization, "unauthorized")
				return
			}

			ws, err := workspaces.Get(workspaceID)
			if err != nil {
				httperr.WriteDomainError(w, ctx, err)
				return
			}
			if ws.Status() != domain.WorkspaceActive {
				httperr.WriteDomainError(w, ctx, domain.ErrWorkspaceDeleted)
				return
			}

			member, err := ws.MemberByUser(actorID)
			if err != nil {
				if !errors.Is(err, domain.ErrMemberNotFound) {
					httperr.WriteDomainError(w, ctx, err)
					return
				}
				log.Warn(ctx, "workspace access denied: actor is not a member",
					logger.Module("http"),
					logger.Action("resolve_member"),
					zap.String("path_workspace_id", workspaceID),
					zap.String("actor_id", actorID),
				)
				httperr.Forbidden403(w, ctx, httperr.ErrCodeNotMember, "not a member of this workspace")
				return
			}

			trace.SpanFromContext(ctx).SetAttributes(
				attribute.String("workspace_id", workspaceID),
				attribute.String("member_id", member.ID),
			)

			ctx = context.WithValue(ctx, workspaceIDKey, workspaceID)
			ctx = context.WithValue(ctx, memberIDKey, member.ID)
			ctx = logger.SetWorkspaceIDInContext(ctx, workspaceID)
			ctx = logger.SetMemberIDInContext(ctx, member.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetWorkspaceID retrieves the resolved workspace id from context
func GetWorkspaceID(ctx context.Context) (string, bool) {
	workspaceID, ok := ctx.Value(workspaceIDKey).(string)
	return workspaceID, ok
}

// GetMemberID retrieves the actor's member id in the resolved workspace.
func GetMemberID(ctx context.Context) (string, bool) {
	memberID, ok := ctx.Value(memberIDKey).(string)
	return memberID, ok
}
