package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/observability/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	ctx := logger.SetLoggerInContext(context.Background(), logger.Nop())
	return logger.InitRootErrorContext(ctx)
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	require.NotNil(t, response.Error)
	return response
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		code    string
		message string
	}{
		{"401 Unauthorized", http.StatusUnauthorized, ErrCodeInvalidToken, "invalid token provided"},
		{"403 Forbidden", http.StatusForbidden, ErrCodeNotMember, "not a member of this workspace"},
		{"400 Bad Request", http.StatusBadRequest, ErrCodeInvalidWorkspaceID, "invalid workspace ID format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, testContext(), tt.status, tt.code, tt.message)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			response := decode(t, rr)
			assert.False(t, response.OK)
			assert.Equal(t, tt.code, response.Error.Code)
			assert.Equal(t, tt.message, response.Error.Message)
		})
	}
}

func TestUnprocessableEntity422WithFields(t *testing.T) {
	rr := httptest.NewRecorder()
	fields := map[string]string{"role": "required", "userId": "uuid"}

	UnprocessableEntity422WithFields(rr, testContext(), "validation failed", fields)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	response := decode(t, rr)
	assert.Equal(t, ErrCodeValidationError, response.Error.Code)
	assert.Equal(t, fields, response.Error.Fields)
}

func TestInternalError500_HidesMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	InternalError500(rr, testContext(), "database connection failed")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	response := decode(t, rr)
	assert.Equal(t, ErrCodeInternalError, response.Error.Code)
	assert.Equal(t, "Internal Server Error", response.Error.Message)
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrDuplicateMember, http.StatusConflict, ErrCodeConflict},
		{domain.ErrMemberNotFound, http.StatusNotFound, ErrCodeNotFound},
		{domain.ErrWorkspaceNotFound, http.StatusNotFound, ErrCodeNotFound},
		{domain.ErrUnknownRole, http.StatusUnprocessableEntity, ErrCodeValidationError},
		{domain.ErrInvalidPermission, http.StatusUnprocessableEntity, ErrCodeValidationError},
		{domain.ErrLastAdminViolation, http.StatusConflict, ErrCodeLastAdmin},
		{domain.ErrWorkspaceDeleted, http.StatusGone, ErrCodeWorkspaceDeleted},
		{domain.ErrAccessDenied, http.StatusForbidden, ErrCodeForbidden},
		{domain.ErrTranslationUnavailable, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{fmt.Errorf("save: %w", domain.ErrInvalidLocation), http.StatusUnprocessableEntity, ErrCodeValidationError},
		{domain.ErrInternalInconsistency, http.StatusInternalServerError, ErrCodeInternalError},
		{errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			ctx := testContext()
			wrapped := fmt.Errorf("op: %w", tt.err)

			rr := httptest.NewRecorder()
			WriteDomainError(rr, ctx, wrapped)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCode, decode(t, rr).Error.Code)
			assert.Equal(t, wrapped, logger.GetRootError(ctx))
		})
	}
}

// Access denial wraps a deeper not-found in some paths; the first match in
// the table wins.
func TestFromError_AccessDeniedWins(t *testing.T) {
	err := fmt.Errorf("%w: %w", domain.ErrAccessDenied, domain.ErrMemberNotFound)
	m, ok := FromError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, m.Status)
}
