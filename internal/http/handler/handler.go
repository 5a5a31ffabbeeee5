// Package handler implements the JSON HTTP endpoints of the API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"meetspace-api/internal/auth"
	"meetspace-api/internal/http/httperr"
	"meetspace-api/internal/http/middleware"
	"meetspace-api/internal/observability/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// decodeRequest reads a JSON body into dst and validates it. On failure the
// error response is already written and false is returned.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	// An empty body decodes as {} so optional payloads can be omitted.
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		log.Warn(ctx, "invalid request body", logger.Module("http"), logger.Action("decode"), zap.Error(err))
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidFormat, "request body must be valid JSON")
		return false
	}
	return validateRequest(w, ctx, dst)
}

func validateRequest(w http.ResponseWriter, ctx context.Context, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidParameter, err.Error())
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	httperr.UnprocessableEntity422WithFields(w, ctx, "request validation failed", fields)
	return false
}

// actor returns the authenticated user id or writes a 401.
func actor(w http.ResponseWriter, ctx context.Context) (string, bool) {
	actorID, ok := auth.ActorID(ctx)
	if !ok {
		httperr.Unauthorized401(w, ctx, httperr.ErrCodeMissingAuthorization, "authentication required")
	}
	return actorID, ok
}

// membership returns the workspace and the actor's member id resolved by
// middleware.WorkspaceMiddleware.
func membership(w http.ResponseWriter, ctx context.Context) (workspaceID, memberID string, ok bool) {
	workspaceID, wsOK := middleware.GetWorkspaceID(ctx)
	memberID, memberOK := middleware.GetMemberID(ctx)
	if !wsOK || !memberOK {
		logger.GetLogger(ctx).Error(ctx, "workspace membership missing from context",
			logger.Module("http"), logger.Action("resolve_member"))
		httperr.InternalError500(w, ctx, "workspace membership missing from context")
		return "", "", false
	}
	return workspaceID, memberID, true
}

// handleServiceError renders a service error through the domain mapping.
func handleServiceError(w http.ResponseWriter, ctx context.Context, action string, err error) {
	if _, mapped := httperr.FromError(err); mapped {
		logger.GetLogger(ctx).Debug(ctx, "request rejected",
			logger.Module("http"), logger.Action(action), zap.Error(err))
	} else {
		logger.GetLogger(ctx).Error(ctx, "service error",
			logger.Module("http"), logger.Action(action), zap.Error(err))
	}
	httperr.WriteDomainError(w, ctx, err)
}
