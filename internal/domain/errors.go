package domain

import "errors"

// Caller-correctable errors. All are returned, never panicked, and are
// matched with errors.Is after wrapping.
var (
	ErrDuplicateMember    = errors.New("member already exists in workspace")
	ErrMemberNotFound     = errors.New("member not found in workspace")
	ErrUnknownRole        = errors.New("role has no permission definition")
	ErrLastAdminViolation = errors.New("workspace must retain at least one administrator")
	ErrWorkspaceDeleted   = errors.New("workspace is deleted")
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrWorkspaceExists    = errors.New("workspace already exists")
	ErrWorkspaceNotEmpty  = errors.New("workspace still has members")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidPermission  = errors.New("invalid permission")
	ErrAccessDenied       = errors.New("access denied")
)

// Meeting and calendar errors.
var (
	ErrMeetingNotFound        = errors.New("meeting not found")
	ErrMeetingExists          = errors.New("meeting already exists")
	ErrInvalidMeetingID       = errors.New("invalid meeting id")
	ErrAlreadyRecording       = errors.New("meeting is already being recorded")
	ErrNotRecording           = errors.New("meeting is not being recorded")
	ErrUnknownCommand         = errors.New("unknown voice command")
	ErrLogEntryNotFound       = errors.New("meeting log entry not found")
	ErrEventNotFound          = errors.New("calendar event not found")
	ErrInvalidEvent           = errors.New("invalid calendar event")
	ErrTranslationUnavailable = errors.New("translation service unavailable")
	ErrInvalidLocation        = errors.New("invalid recording location")
)

// ErrInternalInconsistency marks a broken internal invariant such as a
// ledger version mismatch. Callers log it as a bug and never retry.
var ErrInternalInconsistency = errors.New("internal inconsistency")
