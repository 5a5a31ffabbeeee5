package handler

import (
	"net/http"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/service"
)

type WorkspaceHandler struct {
	service *service.MembershipService
}

func NewWorkspaceHandler(service *service.MembershipService) *WorkspaceHandler {
	return &WorkspaceHandler{service: service}
}

// CreateWorkspaceResponse is returned by POST /v1/workspaces.
type CreateWorkspaceResponse struct {
	Workspace domain.WorkspaceInfo `json:"workspace"`
	MemberID  string               `json:"memberId"`
}

// CreateWorkspace handles POST /v1/workspaces. The actor becomes the
// workspace's first admin.
func (h *WorkspaceHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actor(w, ctx)
	if !ok {
		return
	}

	var req domain.CreateWorkspaceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	info, memberID, err := h.service.CreateWorkspace(ctx, actorID, &req)
	if err != nil {
		handleServiceError(w, ctx, "create_workspace", err)
		return
	}
	w.Header().Set("Location", "/v1/workspaces/"+info.ID)
	writeJSON(w, http.StatusCreated, CreateWorkspaceResponse{Workspace: info, MemberID: memberID})
}

// GetWorkspace handles GET /v1/workspaces/{workspaceId}
func (h *WorkspaceHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	info, err := h.service.GetWorkspace(ctx, workspaceID, memberID)
	if err != nil {
		handleServiceError(w, ctx, "get_workspace", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// DeleteWorkspace handles DELETE /v1/workspaces/{workspaceId}
func (h *WorkspaceHandler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	if err := h.service.DeleteWorkspace(ctx, workspaceID, memberID); err != nil {
		handleServiceError(w, ctx, "delete_workspace", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
