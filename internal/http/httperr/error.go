// Package httperr writes the JSON error envelope and maps domain errors onto it.
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/observability/logger"

	"go.uber.org/zap"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	OK    bool         `json:"ok"`
	Error *ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	ErrorID string            `json:"error_id,omitempty"`
}

// Error codes for 401 Unauthorized (authentication failures)
const (
	ErrCodeMissingAuthorization = "MISSING_AUTHORIZATION"
	ErrCodeInvalidScheme        = "INVALID_SCHEME"
	ErrCodeInvalidToken         = "INVALID_TOKEN"
	ErrCodeInvalidSignature     = "INVALID_SIGNATURE"
	ErrCodeTokenExpired         = "TOKEN_EXPIRED"
	ErrCodeInvalidIssuer        = "INVALID_ISSUER"
	ErrCodeInvalidAudience      = "INVALID_AUDIENCE"
)

// Error codes for 403 Forbidden
const (
	ErrCodeForbidden = "FORBIDDEN"
	ErrCodeNotMember = "NOT_A_MEMBER"
)

// Error codes for 4xx client errors
const (
	ErrCodeInvalidWorkspaceID = "INVALID_WORKSPACE_ID"
	ErrCodeInvalidParameter   = "INVALID_PARAMETER"
	ErrCodeInvalidFormat      = "INVALID_FORMAT"
	ErrCodeValidationError    = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeLastAdmin          = "LAST_ADMIN"
	ErrCodeWorkspaceDeleted   = "WORKSPACE_DELETED"
	ErrCodeRateLimited        = "RATE_LIMITED"
)

// Error codes for 5xx server errors
const (
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// WriteError writes the error envelope. 5xx responses are logged at error
// level, everything else at warn.
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	write(w, ctx, status, &ErrorDetail{Code: code, Message: message}, zap.String("message", message))
}

// WriteErrorWithFields writes the envelope with per-field details.
func WriteErrorWithFields(w http.ResponseWriter, ctx context.Context, status int, code, message string, fields map[string]string) {
	extra := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		extra = append(extra, zap.String("field_"+k, v))
	}
	write(w, ctx, status, &ErrorDetail{Code: code, Message: message, Fields: fields}, extra...)
}

func Unauthorized401(w http.ResponseWriter, ctx context.Context, code, message string) {
	WriteError(w, ctx, http.StatusUnauthorized, code, message)
}

func Forbidden403(w http.ResponseWriter, ctx context.Context, code, message string) {
	WriteError(w, ctx, http.StatusForbidden, code, message)
}

func BadRequest400(w http.ResponseWriter, ctx context.Context, code, message string) {
	WriteError(w, ctx, http.StatusBadRequest, code, message)
}

func UnprocessableEntity422WithFields(w http.ResponseWriter, ctx context.Context, message string, fields map[string]string) {
	WriteErrorWithFields(w, ctx, http.StatusUnprocessableEntity, ErrCodeValidationError, message, fields)
}

func TooManyRequests429(w http.ResponseWriter, ctx context.Context, message string) {
	WriteError(w, ctx, http.StatusTooManyRequests, ErrCodeRateLimited, message)
}

// InternalError500 answers with a generic message; message only goes to the
// log. In dev the request id is echoed as error_id.
func InternalError500(w http.ResponseWriter, ctx context.Context, message string) {
	detail := &ErrorDetail{Code: ErrCodeInternalError, Message: http.StatusText(http.StatusInternalServerError)}
	if os.Getenv("APP_ENV") == "dev" {
		detail.ErrorID = logger.GetRequestIDFromContext(ctx)
	}
	write(w, ctx, http.StatusInternalServerError, detail, zap.String("message", message))
}

func write(w http.ResponseWriter, ctx context.Context, status int, detail *ErrorDetail, extra ...zap.Field) {
	fields := append([]zap.Field{
		logger.Module("http"),
		logger.Action("write_error"),
		zap.Int("status_code", status),
		zap.String("error_code", detail.Code),
	}, extra...)

	log := logger.GetLogger(ctx)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", fields...)
	} else {
		log.Warn(ctx, "request failed", fields...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{OK: false, Error: detail})
}

// Mapping is the HTTP rendering of a domain error.
type Mapping struct {
	Status  int
	Code    string
	Message string
}

var mappings = []struct {
	err error
	Mapping
}{
	{domain.ErrAccessDenied, Mapping{http.StatusForbidden, ErrCodeForbidden, "access denied"}},
	{domain.ErrLastAdminViolation, Mapping{http.StatusConflict, ErrCodeLastAdmin, "workspace must keep at least one admin"}},
	{domain.ErrWorkspaceDeleted, Mapping{http.StatusGone, ErrCodeWorkspaceDeleted, "workspace is deleted"}},
	{domain.ErrDuplicateMember, Mapping{http.StatusConflict, ErrCodeConflict, "user is already a member"}},
	{domain.ErrWorkspaceExists, Mapping{http.StatusConflict, ErrCodeConflict, "workspace already exists"}},
	{domain.ErrWorkspaceNotEmpty, Mapping{http.StatusConflict, ErrCodeConflict, "workspace still has members"}},
	{domain.ErrEmailTaken, Mapping{http.StatusConflict, ErrCodeConflict, "email already registered"}},
	{domain.ErrMeetingExists, Mapping{http.StatusConflict, ErrCodeConflict, "meeting already exists"}},
	{domain.ErrAlreadyRecording, Mapping{http.StatusConflict, ErrCodeConflict, "meeting is already recording"}},
	{domain.ErrNotRecording, Mapping{http.StatusConflict, ErrCodeConflict, "meeting is not recording"}},
	{domain.ErrMemberNotFound, Mapping{http.StatusNotFound, ErrCodeNotFound, "member not found"}},
	{domain.ErrWorkspaceNotFound, Mapping{http.StatusNotFound, ErrCodeNotFound, "workspace not found"}},
	{domain.ErrUserNotFound, Mapping{http.StatusNotFound, ErrCodeNotFound, "user not found"}},
	{domain.ErrMeetingNotFound, Mapping{http.StatusNotFound, ErrCodeNotFound, "meeting not found"}},
	{domain.ErrLogEntryNotFound, Mapping{http.StatusNotFound, ErrCodeNotFound, "log entry not found"}},
	{domain.ErrEventNotFound, Mapping{http.StatusNotFound, ErrCodeNotFound, "event not found"}},
	{domain.ErrUnknownRole, Mapping{http.StatusUnprocessableEntity, ErrCodeValidationError, "unknown role"}},
	{domain.ErrInvalidPermission, Mapping{http.StatusUnprocessableEntity, ErrCodeValidationError, "invalid permission"}},
	{domain.ErrInvalidMeetingID, Mapping{http.StatusUnprocessableEntity, ErrCodeValidationError, "invalid meeting id"}},
	{domain.ErrUnknownCommand, Mapping{http.StatusUnprocessableEntity, ErrCodeValidationError, "unknown voice command"}},
	{domain.ErrInvalidEvent, Mapping{http.StatusUnprocessableEntity, ErrCodeValidationError, "invalid event"}},
	{domain.ErrInvalidLocation, Mapping{http.StatusUnprocessableEntity, ErrCodeValidationError, "invalid recording location"}},
	{domain.ErrTranslationUnavailable, Mapping{http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "translation unavailable"}},
}

// FromError maps err to its HTTP rendering. The boolean is false for errors
// with no mapping, which callers render as 500.
func FromError(err error) (Mapping, bool) {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return m.Mapping, true
		}
	}
	return Mapping{}, false
}

// WriteDomainError renders a service error. Unmapped errors and internal
// inconsistencies are logged at error level and answered with 500.
func WriteDomainError(w http.ResponseWriter, ctx context.Context, err error) {
	logger.SetRootError(ctx, err)

	if m, ok := FromError(err); ok {
		WriteError(w, ctx, m.Status, m.Code, m.Message)
		return
	}
	if errors.Is(err, domain.ErrInternalInconsistency) {
		logger.GetLogger(ctx).Error(ctx, "membership invariant violated",
			logger.Module("http"),
			logger.Action("write_error"),
			zap.Error(err),
		)
	}
	InternalError500(w, ctx, err.Error())
}
