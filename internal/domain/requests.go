package domain

import "time"

// RegisterUserRequest represents the payload for POST /v1/users.
type RegisterUserRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=200"`
	Email string `json:"email" validate:"required,email,max=255"`
	Phone string `json:"phone" validate:"omitempty,max=40"`
}

// CreateWorkspaceRequest represents the payload for POST /v1/workspaces.
type CreateWorkspaceRequest struct {
	Description string `json:"description" validate:"max=500"`
}

// AddMemberRequest represents the payload for POST /members.
type AddMemberRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	Role   Role   `json:"role" validate:"required,max=64"`
}

// AssignPermissionRequest represents the payload for POST /members/{memberId}/permissions.
type AssignPermissionRequest struct {
	Permission Permission `json:"permission" validate:"required,max=200"`
}

// AssignRoleRequest represents the payload for POST /members/{memberId}/roles.
type AssignRoleRequest struct {
	Role Role `json:"role" validate:"required,max=64"`
}

// AccessCheckRequest represents the payload for POST /access:check.
// MemberID defaults to the caller's own member when empty.
type AccessCheckRequest struct {
	MemberID   string `json:"memberId" validate:"omitempty,max=64"`
	ResourceID string `json:"resourceId" validate:"required,max=300"`
	Action     string `json:"action" validate:"required,max=200"`
}

// AccessCheckResponse is the body returned by POST /access:check.
type AccessCheckResponse struct {
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason"`
	Permission string `json:"permission,omitempty"`
	Matched    string `json:"matched,omitempty"`
	Version    uint64 `json:"version"`
}

// MemberListResponse is the body returned by GET /members.
type MemberListResponse struct {
	Data    []Member `json:"data"`
	Version uint64   `json:"version"`
}

// CreateMeetingRequest represents the payload for POST /meetings.
type CreateMeetingRequest struct {
	ID   string `json:"id" validate:"required,max=100,excludesall=:/ "`
	Name string `json:"name" validate:"required,max=200"`
}

// JoinMeetingRequest represents the payload for POST /meetings/{meetingId}/participants.
type JoinMeetingRequest struct {
	Role string `json:"role" validate:"omitempty,oneof=host attendee"`
}

// TranslateRequest represents the payload for POST /meetings/{meetingId}/translate.
type TranslateRequest struct {
	SourceLanguage string `json:"sourceLanguage" validate:"required,min=2,max=16"`
	TargetLanguage string `json:"targetLanguage" validate:"required,min=2,max=16"`
	Text           string `json:"text" validate:"required,max=10000"`
}

// VoiceCommandRequest represents the payload for POST /meetings/{meetingId}/voice.
type VoiceCommandRequest struct {
	Command string `json:"command" validate:"required,max=10000"`
}

// SaveRecordingRequest represents the payload for POST /meetings/{meetingId}/recordings.
type SaveRecordingRequest struct {
	Location string `json:"location" validate:"required,max=1000"`
}

// CreateLogRequest represents the payload for POST /meetings/{meetingId}/logs.
type CreateLogRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// CreateEventRequest represents the payload for POST /v1/users/me/calendar/events.
type CreateEventRequest struct {
	Title     string    `json:"title" validate:"required,max=200"`
	MeetingID *string   `json:"meetingId,omitempty" validate:"omitempty,max=100"`
	StartsAt  time.Time `json:"startsAt" validate:"required"`
	EndsAt    time.Time `json:"endsAt" validate:"required,gtfield=StartsAt"`
}
