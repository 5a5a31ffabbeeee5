package handler

import (
	"net/http"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/service"
)

type AccessHandler struct {
	service *service.MembershipService
}

func NewAccessHandler(service *service.MembershipService) *AccessHandler {
	return &AccessHandler{service: service}
}

// CheckAccess handles POST /v1/workspaces/{workspaceId}/access:check
// A denied decision is still a 200; only the actor's own authorization
// failures produce 403.
func (h *AccessHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, actorMemberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	var req domain.AccessCheckRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	resp, err := h.service.CheckAccess(ctx, workspaceID, actorMemberID, &req)
	if err != nil {
		handleServiceError(w, ctx, "check_access", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
