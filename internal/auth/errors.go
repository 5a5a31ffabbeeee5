package auth

import (
	"errors"
	"fmt"

	"meetspace-api/internal/http/httperr"
)

// AuthFailureReason says why a request could not be authenticated. It is
// logged as auth_failure_reason and selects the 401 error code.
type AuthFailureReason string

const (
	AuthFailureMissingAuthorization AuthFailureReason = "missing_authorization"
	AuthFailureInvalidScheme        AuthFailureReason = "invalid_scheme"
	AuthFailureInvalidSignature     AuthFailureReason = "invalid_signature"
	AuthFailureInvalidIssuer        AuthFailureReason = "invalid_issuer"
	AuthFailureInvalidAudience      AuthFailureReason = "invalid_audience"
	AuthFailureTokenExpired         AuthFailureReason = "token_expired"
	AuthFailureUnknown              AuthFailureReason = "unknown"
)

var reasonCodes = map[AuthFailureReason]string{
	AuthFailureMissingAuthorization: httperr.ErrCodeMissingAuthorization,
	AuthFailureInvalidScheme:        httperr.ErrCodeInvalidScheme,
	AuthFailureInvalidSignature:     httperr.ErrCodeInvalidSignature,
	AuthFailureInvalidIssuer:        httperr.ErrCodeInvalidIssuer,
	AuthFailureInvalidAudience:      httperr.ErrCodeInvalidAudience,
	AuthFailureTokenExpired:         httperr.ErrCodeTokenExpired,
}

// Code returns the error code sent to the client. Reasons without a
// dedicated code report INVALID_TOKEN.
func (r AuthFailureReason) Code() string {
	if code, ok := reasonCodes[r]; ok {
		return code
	}
	return httperr.ErrCodeInvalidToken
}

// AuthError is a categorized authentication failure.
type AuthError struct {
	Reason  AuthFailureReason
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError creates an AuthError. err may be nil.
func NewAuthError(reason AuthFailureReason, message string, err error) *AuthError {
	return &AuthError{Reason: reason, Message: message, Err: err}
}

// IsAuthError finds an AuthError in err's chain.
func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// failureReason is the reason carried by err, or unknown.
func failureReason(err error) AuthFailureReason {
	if authErr, ok := IsAuthError(err); ok {
		return authErr.Reason
	}
	return AuthFailureUnknown
}

// maskToken keeps only the first 12 characters of a token for logging.
func maskToken(token string) string {
	if len(token) <= 12 {
		return "***"
	}
	return token[:12] + "..."
}
