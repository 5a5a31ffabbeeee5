// Package service authorizes actors and records the audit trail around the
// workspace, meeting and identity operations exposed over HTTP.
package service

import (
	"context"
	"fmt"

	"meetspace-api/internal/access"
	"meetspace-api/internal/domain"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/repo"

	"go.uber.org/zap"
)

// Actor permissions checked against the workspace resource.
const (
	PermMemberManage    = "workspace.member.manage"
	PermMemberRead      = "workspace.member.read"
	PermWorkspaceDelete = "workspace.delete"
)

// Mutation results reported to the MutationRecorder.
const (
	ResultOK       = "ok"
	ResultDenied   = "denied"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// AuditLogger appends audit entries. repo.AuditRepo implements it.
type AuditLogger interface {
	LogAction(ctx context.Context, e repo.AuditEntry) error
}

// MutationRecorder counts membership mutations by operation and result.
type MutationRecorder interface {
	ObserveMutation(operation, result string)
}

type nopAudit struct{}

func (nopAudit) LogAction(context.Context, repo.AuditEntry) error { return nil }

type nopRecorder struct{}

func (nopRecorder) ObserveMutation(string, string) {}

// Option configures a service.
type Option func(*options)

type options struct {
	audit   AuditLogger
	metrics MutationRecorder
	log     *logger.Logger
}

// WithAudit sets the audit sink.
func WithAudit(a AuditLogger) Option {
	return func(o *options) {
		if a != nil {
			o.audit = a
		}
	}
}

// WithMutationRecorder sets the mutation counter.
func WithMutationRecorder(m MutationRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{audit: nopAudit{}, metrics: nopRecorder{}, log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// authorizeActor checks that actorMemberID holds permission on the workspace.
func authorizeActor(ctx context.Context, log *logger.Logger, engine *access.Engine, workspaceID, actorMemberID, permission string) error {
	resource := access.ResourceID(access.KindWorkspace, workspaceID)
	d, err := engine.Evaluate(workspaceID, actorMemberID, resource, permission)
	if err != nil {
		return err
	}
	if !d.Allowed {
		log.Warn(ctx, "actor not authorized",
			logger.Module("service"),
			logger.Action("authorization"),
			zap.String("workspace_id", workspaceID),
			zap.String("actor_member_id", actorMemberID),
			zap.String("permission", permission),
			zap.String("reason", string(d.Reason)),
		)
		return fmt.Errorf("%s: %w", permission, domain.ErrAccessDenied)
	}
	return nil
}
