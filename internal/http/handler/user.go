package handler

import (
	"net/http"
	"time"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/http/httperr"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Register handles POST /v1/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.RegisterUserRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	u, err := h.service.Register(ctx, &req)
	if err != nil {
		handleServiceError(w, ctx, "register_user", err)
		return
	}

	logger.GetLogger(ctx).Info(ctx, "user registered",
		logger.Module("user"),
		logger.Action("register"),
		zap.String("registered_user_id", u.ID),
	)
	writeJSON(w, http.StatusCreated, u)
}

// GetMe handles GET /v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actor(w, ctx)
	if !ok {
		return
	}

	u, err := h.service.Get(ctx, actorID)
	if err != nil {
		handleServiceError(w, ctx, "get_user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateMe handles PATCH /v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actor(w, ctx)
	if !ok {
		return
	}

	var upd domain.ProfileUpdate
	if !decodeRequest(w, r, &upd) {
		return
	}

	u, err := h.service.UpdateProfile(ctx, actorID, &upd)
	if err != nil {
		handleServiceError(w, ctx, "update_user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ListEvents handles GET /v1/users/me/calendar/events?from=&to=
// Bounds are RFC 3339 timestamps; a missing bound is open.
func (h *UserHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actor(w, ctx)
	if !ok {
		return
	}

	from, okFrom := parseTimeParam(r, "from")
	to, okTo := parseTimeParam(r, "to")
	if !okFrom || !okTo {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidParameter, "from and to must be RFC 3339 timestamps")
		return
	}

	events, err := h.service.ListEvents(ctx, actorID, from, to)
	if err != nil {
		handleServiceError(w, ctx, "list_events", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": events})
}

// CreateEvent handles POST /v1/users/me/calendar/events
func (h *UserHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actor(w, ctx)
	if !ok {
		return
	}

	var req domain.CreateEventRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	event, err := h.service.AddEvent(ctx, actorID, &req)
	if err != nil {
		handleServiceError(w, ctx, "create_event", err)
		return
	}
	w.Header().Set("Location", "/v1/users/me/calendar/events/"+event.ID)
	writeJSON(w, http.StatusCreated, event)
}

// DeleteEvent handles DELETE /v1/users/me/calendar/events/{eventId}
func (h *UserHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actor(w, ctx)
	if !ok {
		return
	}

	if err := h.service.DeleteEvent(ctx, actorID, chi.URLParam(r, "eventId")); err != nil {
		handleServiceError(w, ctx, "delete_event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseTimeParam(r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, err == nil
}
