package handler

import (
	"net/http"
	"net/url"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/http/httperr"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type MemberHandler struct {
	service *service.MembershipService
}

func NewMemberHandler(service *service.MembershipService) *MemberHandler {
	return &MemberHandler{service: service}
}

// ListMembers handles GET /v1/workspaces/{workspaceId}/members
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, actorMemberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	resp, err := h.service.ListMembers(ctx, workspaceID, actorMemberID)
	if err != nil {
		handleServiceError(w, ctx, "list_members", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddMember handles POST /v1/workspaces/{workspaceId}/members
func (h *MemberHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, actorMemberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	var req domain.AddMemberRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	m, err := h.service.AddMember(ctx, workspaceID, actorMemberID, &req)
	if err != nil {
		handleServiceError(w, ctx, "add_member", err)
		return
	}

	logger.GetLogger(ctx).Info(ctx, "member added",
		logger.Module("membership"),
		logger.Action("add_member"),
		zap.String("new_member_id", m.ID),
		zap.String("role", req.Role.String()),
	)
	w.Header().Set("Location", "/v1/workspaces/"+workspaceID+"/members/"+m.ID)
	writeJSON(w, http.StatusCreated, m)
}

// DeleteMember handles DELETE /v1/workspaces/{workspaceId}/members/{memberId}
func (h *MemberHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, actorMemberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	if err := h.service.DeleteMember(ctx, workspaceID, actorMemberID, chi.URLParam(r, "memberId")); err != nil {
		handleServiceError(w, ctx, "delete_member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignPermission handles POST /v1/workspaces/{workspaceId}/members/{memberId}/permissions
func (h *MemberHandler) AssignPermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, actorMemberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	var req domain.AssignPermissionRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	m, err := h.service.AssignPermission(ctx, workspaceID, actorMemberID, chi.URLParam(r, "memberId"), &req)
	if err != nil {
		handleServiceError(w, ctx, "assign_permission", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// RevokePermission handles DELETE /v1/workspaces/{workspaceId}/members/{memberId}/permissions/{permission}
func (h *MemberHandler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, actorMemberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	permission, ok := pathValue(w, r, "permission")
	if !ok {
		return
	}

	m, err := h.service.RevokePermission(ctx, workspaceID, actorMemberID, chi.URLParam(r, "memberId"), domain.Permission(permission))
	if err != nil {
		handleServiceError(w, ctx, "revoke_permission", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// AssignRole handles POST /v1/workspaces/{workspaceId}/members/{memberId}/roles
func (h *MemberHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, actorMemberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	var req domain.AssignRoleRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	m, err := h.service.AssignRole(ctx, workspaceID, actorMemberID, chi.URLParam(r, "memberId"), &req)
	if err != nil {
		handleServiceError(w, ctx, "assign_role", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// RevokeRole handles DELETE /v1/workspaces/{workspaceId}/members/{memberId}/roles/{role}
// A member left without roles is removed and the response is 204.
func (h *MemberHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, actorMemberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	role, ok := pathValue(w, r, "role")
	if !ok {
		return
	}

	m, err := h.service.RevokeRole(ctx, workspaceID, actorMemberID, chi.URLParam(r, "memberId"), domain.Role(role))
	if err != nil {
		handleServiceError(w, ctx, "revoke_role", err)
		return
	}
	if m.ID == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// pathValue returns an unescaped URL parameter.
func pathValue(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil || v == "" {
		httperr.BadRequest400(w, r.Context(), httperr.ErrCodeInvalidParameter, "invalid "+name)
		return "", false
	}
	return v, true
}
