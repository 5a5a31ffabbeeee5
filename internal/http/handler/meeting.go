package handler

import (
	"net/http"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/service"

	"github.com/go-chi/chi/v5"
)

type MeetingHandler struct {
	service *service.MeetingService
}

func NewMeetingHandler(service *service.MeetingService) *MeetingHandler {
	return &MeetingHandler{service: service}
}

// CreateMeeting handles POST /v1/workspaces/{workspaceId}/meetings
func (h *MeetingHandler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	var req domain.CreateMeetingRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	info, err := h.service.CreateMeeting(ctx, workspaceID, memberID, &req)
	if err != nil {
		handleServiceError(w, ctx, "create_meeting", err)
		return
	}
	w.Header().Set("Location", "/v1/workspaces/"+workspaceID+"/meetings/"+info.ID)
	writeJSON(w, http.StatusCreated, info)
}

// ListMeetings handles GET /v1/workspaces/{workspaceId}/meetings
func (h *MeetingHandler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, _, ok := membership(w, ctx)
	if !ok {
		return
	}

	meetings, err := h.service.ListMeetings(ctx, workspaceID)
	if err != nil {
		handleServiceError(w, ctx, "list_meetings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": meetings})
}

// Join handles POST /v1/workspaces/{workspaceId}/meetings/{meetingId}/participants
func (h *MeetingHandler) Join(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	var req domain.JoinMeetingRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	participants, err := h.service.Join(ctx, workspaceID, memberID, chi.URLParam(r, "meetingId"), &req)
	if err != nil {
		handleServiceError(w, ctx, "join_meeting", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": participants})
}

// Leave handles DELETE /v1/workspaces/{workspaceId}/meetings/{meetingId}/participants/me
func (h *MeetingHandler) Leave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	if err := h.service.Leave(ctx, workspaceID, memberID, chi.URLParam(r, "meetingId")); err != nil {
		handleServiceError(w, ctx, "leave_meeting", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartRecording handles POST /v1/workspaces/{workspaceId}/meetings/{meetingId}/recording:start
func (h *MeetingHandler) StartRecording(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	state, err := h.service.StartRecording(ctx, workspaceID, memberID, chi.URLParam(r, "meetingId"))
	if err != nil {
		handleServiceError(w, ctx, "start_recording", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// StopRecording handles POST /v1/workspaces/{workspaceId}/meetings/{meetingId}/recording:stop
func (h *MeetingHandler) StopRecording(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	state, err := h.service.StopRecording(ctx, workspaceID, memberID, chi.URLParam(r, "meetingId"))
	if err != nil {
		handleServiceError(w, ctx, "stop_recording", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// SaveRecording handles POST /v1/workspaces/{workspaceId}/meetings/{meetingId}/recordings
func (h *MeetingHandler) SaveRecording(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	var req domain.SaveRecordingRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	rec, err := h.service.SaveRecording(ctx, workspaceID, memberID, chi.URLParam(r, "meetingId"), &req)
	if err != nil {
		handleServiceError(w, ctx, "save_recording", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListRecordings handles GET /v1/workspaces/{workspaceId}/meetings/{meetingId}/recordings
func (h *MeetingHandler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	recs, err := h.service.ListRecordings(ctx, workspaceID, memberID, chi.URLParam(r, "meetingId"))
	if err != nil {
		handleServiceError(w, ctx, "list_recordings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": recs})
}

// Translate handles POST /v1/workspaces/{workspaceId}/meetings/{meetingId}/translate
func (h *MeetingHandler) Translate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	var req domain.TranslateRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	text, err := h.service.Translate(ctx, workspaceID, memberID, chi.URLParam(r, "meetingId"), &req)
	if err != nil {
		handleServiceError(w, ctx, "translate", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// VoiceCommand handles POST /v1/workspaces/{workspaceId}/meetings/{meetingId}/voice
func (h *MeetingHandler) VoiceCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	var req domain.VoiceCommandRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.service.VoiceCommand(ctx, workspaceID, memberID, chi.URLParam(r, "meetingId"), &req)
	if err != nil {
		handleServiceError(w, ctx, "voice_command", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CreateLog handles POST /v1/workspaces/{workspaceId}/meetings/{meetingId}/logs
func (h *MeetingHandler) CreateLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}
	actorID, ok := actor(w, ctx)
	if !ok {
		return
	}

	var req domain.CreateLogRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	entry, err := h.service.CreateLog(ctx, workspaceID, memberID, actorID, chi.URLParam(r, "meetingId"), &req)
	if err != nil {
		handleServiceError(w, ctx, "create_log", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// ListLogs handles GET /v1/workspaces/{workspaceId}/meetings/{meetingId}/logs
func (h *MeetingHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	entries, err := h.service.ListLogs(ctx, workspaceID, memberID, chi.URLParam(r, "meetingId"))
	if err != nil {
		handleServiceError(w, ctx, "list_logs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}

// DeleteLog handles DELETE /v1/workspaces/{workspaceId}/meetings/{meetingId}/logs/{logId}
func (h *MeetingHandler) DeleteLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID, memberID, ok := membership(w, ctx)
	if !ok {
		return
	}

	if err := h.service.DeleteLog(ctx, workspaceID, memberID, chi.URLParam(r, "meetingId"), chi.URLParam(r, "logId")); err != nil {
		handleServiceError(w, ctx, "delete_log", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
