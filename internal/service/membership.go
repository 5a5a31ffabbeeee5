package service

import (
	"context"
	"errors"
	"fmt"

	"meetspace-api/internal/access"
	"meetspace-api/internal/domain"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/repo"
	"meetspace-api/internal/workspace"

	"go.uber.org/zap"
)

// MeetingCleaner keeps meetings in step with membership: removed members
// leave their rooms and deleted workspaces lose their meetings.
type MeetingCleaner interface {
	ForgetMember(workspaceID, memberID string) int
	DropWorkspace(workspaceID string) int
}

// MembershipService authorizes and audits membership changes.
type MembershipService struct {
	dir      *workspace.Directory
	engine   *access.Engine
	meetings MeetingCleaner
	audit    AuditLogger
	metrics  MutationRecorder
	log      *logger.Logger
}

// NewMembershipService creates a MembershipService. meetings may be nil.
func NewMembershipService(dir *workspace.Directory, engine *access.Engine, meetings MeetingCleaner, opts ...Option) *MembershipService {
	o := buildOptions(opts)
	return &MembershipService{
		dir:      dir,
		engine:   engine,
		meetings: meetings,
		audit:    o.audit,
		metrics:  o.metrics,
		log:      o.log,
	}
}

// CreateWorkspace creates a workspace with the actor as its first admin.
func (s *MembershipService) CreateWorkspace(ctx context.Context, actorUserID string, req *domain.CreateWorkspaceRequest) (domain.WorkspaceInfo, string, error) {
	ws, memberID, err := s.dir.CreateDefaultWorkspace(ctx, actorUserID, req.Description)
	s.record("workspace.create", err)
	if err != nil {
		return domain.WorkspaceInfo{}, "", fmt.Errorf("create workspace: %w", err)
	}
	s.writeAudit(ctx, ws.ID(), actorUserID, "workspace.create", "workspace", ws.ID(), nil)
	return ws.Info(), memberID, nil
}

// GetWorkspace returns the workspace record. Any member may read it.
func (s *MembershipService) GetWorkspace(ctx context.Context, workspaceID, actorMemberID string) (domain.WorkspaceInfo, error) {
	ws, err := s.dir.Get(workspaceID)
	if err != nil {
		return domain.WorkspaceInfo{}, err
	}
	if _, err := ws.Member(actorMemberID); err != nil {
		return domain.WorkspaceInfo{}, fmt.Errorf("actor %s: %w", actorMemberID, domain.ErrAccessDenied)
	}
	return ws.Info(), nil
}

// DeleteWorkspace dissolves a workspace and drops its meetings.
// Permission: workspace.delete.
func (s *MembershipService) DeleteWorkspace(ctx context.Context, workspaceID, actorMemberID string) error {
	if err := s.authorize(ctx, "workspace.delete", workspaceID, actorMemberID, PermWorkspaceDelete); err != nil {
		return err
	}
	err := s.dir.Delete(ctx, workspaceID)
	s.record("workspace.delete", err)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}

	dropped := 0
	if s.meetings != nil {
		dropped = s.meetings.DropWorkspace(workspaceID)
	}
	s.log.Info(ctx, "workspace deleted",
		logger.Module("service"),
		logger.Action("workspace.delete"),
		zap.String("workspace_id", workspaceID),
		zap.Int("meetings_dropped", dropped),
	)
	s.writeAudit(ctx, workspaceID, actorMemberID, "workspace.delete", "workspace", workspaceID, nil)
	return nil
}

// ListMembers returns the committed member list and its version.
// Permission: workspace.member.read.
func (s *MembershipService) ListMembers(ctx context.Context, workspaceID, actorMemberID string) (*domain.MemberListResponse, error) {
	ws, err := s.dir.Get(workspaceID)
	if err != nil {
		return nil, err
	}
	if err := authorizeActor(ctx, s.log, s.engine, workspaceID, actorMemberID, PermMemberRead); err != nil {
		return nil, err
	}
	snap, err := ws.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return &domain.MemberListResponse{Data: snap.Members(), Version: snap.Version()}, nil
}

// AddMember adds a user to the workspace with one role.
// Permission: workspace.member.manage.
func (s *MembershipService) AddMember(ctx context.Context, workspaceID, actorMemberID string, req *domain.AddMemberRequest) (domain.Member, error) {
	ws, err := s.managedWorkspace(ctx, "member.add", workspaceID, actorMemberID)
	if err != nil {
		return domain.Member{}, err
	}

	memberID, err := ws.AddMember(ctx, req.UserID, req.Role)
	s.record("member.add", err)
	if err != nil {
		return domain.Member{}, fmt.Errorf("add member: %w", err)
	}
	m, err := ws.Member(memberID)
	if err != nil {
		return domain.Member{}, fmt.Errorf("load added member: %w", err)
	}
	s.writeAudit(ctx, workspaceID, actorMemberID, "member.add", "member", memberID, map[string]any{
		"user_id": m.UserID,
		"role":    string(req.Role),
	})
	return m, nil
}

// DeleteMember removes a member. Members may always remove themselves;
// removing anyone else needs workspace.member.manage.
func (s *MembershipService) DeleteMember(ctx context.Context, workspaceID, actorMemberID, memberID string) error {
	var ws *workspace.Workspace
	var err error
	if memberID == actorMemberID {
		ws, err = s.dir.Get(workspaceID)
	} else {
		ws, err = s.managedWorkspace(ctx, "member.delete", workspaceID, actorMemberID)
	}
	if err != nil {
		return err
	}

	err = ws.DeleteMember(ctx, memberID)
	s.record("member.delete", err)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	s.forgetMember(ctx, workspaceID, memberID)
	s.writeAudit(ctx, workspaceID, actorMemberID, "member.delete", "member", memberID, nil)
	return nil
}

// AssignPermission grants a permission directly to a member.
// Permission: workspace.member.manage.
func (s *MembershipService) AssignPermission(ctx context.Context, workspaceID, actorMemberID, memberID string, req *domain.AssignPermissionRequest) (domain.Member, error) {
	return s.mutateMember(ctx, "permission.assign", workspaceID, actorMemberID, memberID,
		map[string]any{"permission": string(req.Permission)},
		func(ws *workspace.Workspace) error { return ws.AssignPermission(ctx, memberID, req.Permission) })
}

// RevokePermission removes a direct grant.
// Permission: workspace.member.manage.
func (s *MembershipService) RevokePermission(ctx context.Context, workspaceID, actorMemberID, memberID string, permission domain.Permission) (domain.Member, error) {
	return s.mutateMember(ctx, "permission.revoke", workspaceID, actorMemberID, memberID,
		map[string]any{"permission": string(permission)},
		func(ws *workspace.Workspace) error { return ws.RevokePermission(ctx, memberID, permission) })
}

// AssignRole adds a role to a member.
// Permission: workspace.member.manage.
func (s *MembershipService) AssignRole(ctx context.Context, workspaceID, actorMemberID, memberID string, req *domain.AssignRoleRequest) (domain.Member, error) {
	return s.mutateMember(ctx, "role.assign", workspaceID, actorMemberID, memberID,
		map[string]any{"role": string(req.Role)},
		func(ws *workspace.Workspace) error { return ws.AssignRole(ctx, memberID, req.Role) })
}

// RevokeRole removes a role. Revoking the last role removes the member, in
// which case the returned member is the zero value.
// Permission: workspace.member.manage.
func (s *MembershipService) RevokeRole(ctx context.Context, workspaceID, actorMemberID, memberID string, role domain.Role) (domain.Member, error) {
	return s.mutateMember(ctx, "role.revoke", workspaceID, actorMemberID, memberID,
		map[string]any{"role": string(role)},
		func(ws *workspace.Workspace) error { return ws.RevokeRole(ctx, memberID, role) })
}

// CheckAccess evaluates an access request. Checking another member needs
// workspace.member.manage; an empty MemberID checks the actor.
func (s *MembershipService) CheckAccess(ctx context.Context, workspaceID, actorMemberID string, req *domain.AccessCheckRequest) (*domain.AccessCheckResponse, error) {
	target := req.MemberID
	if target == "" {
		target = actorMemberID
	}
	if target != actorMemberID {
		if err := authorizeActor(ctx, s.log, s.engine, workspaceID, actorMemberID, PermMemberManage); err != nil {
			return nil, err
		}
	}

	d, err := s.engine.Evaluate(workspaceID, target, req.ResourceID, req.Action)
	if err != nil {
		return nil, fmt.Errorf("check access: %w", err)
	}
	return &domain.AccessCheckResponse{
		Allowed:    d.Allowed,
		Reason:     string(d.Reason),
		Permission: d.Permission,
		Matched:    d.MatchedPattern,
		Version:    d.Version,
	}, nil
}

func (s *MembershipService) mutateMember(ctx context.Context, action, workspaceID, actorMemberID, memberID string, meta map[string]any, fn func(*workspace.Workspace) error) (domain.Member, error) {
	ws, err := s.managedWorkspace(ctx, action, workspaceID, actorMemberID)
	if err != nil {
		return domain.Member{}, err
	}

	err = fn(ws)
	s.record(action, err)
	if err != nil {
		return domain.Member{}, fmt.Errorf("%s: %w", action, err)
	}
	s.writeAudit(ctx, workspaceID, actorMemberID, action, "member", memberID, meta)

	m, err := ws.Member(memberID)
	if errors.Is(err, domain.ErrMemberNotFound) {
		s.forgetMember(ctx, workspaceID, memberID)
		return domain.Member{}, nil
	}
	return m, err
}

func (s *MembershipService) forgetMember(ctx context.Context, workspaceID, memberID string) {
	if s.meetings == nil {
		return
	}
	if n := s.meetings.ForgetMember(workspaceID, memberID); n > 0 {
		s.log.Info(ctx, "removed member left meetings",
			logger.Module("service"),
			logger.Action("member.forget"),
			zap.String("member_id", memberID),
			zap.Int("meetings", n),
		)
	}
}

func (s *MembershipService) managedWorkspace(ctx context.Context, action, workspaceID, actorMemberID string) (*workspace.Workspace, error) {
	ws, err := s.dir.Get(workspaceID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, action, workspaceID, actorMemberID, PermMemberManage); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *MembershipService) authorize(ctx context.Context, action, workspaceID, actorMemberID, permission string) error {
	if err := authorizeActor(ctx, s.log, s.engine, workspaceID, actorMemberID, permission); err != nil {
		if errors.Is(err, domain.ErrAccessDenied) {
			s.metrics.ObserveMutation(action, ResultDenied)
		}
		return err
	}
	return nil
}

func (s *MembershipService) record(operation string, err error) {
	s.metrics.ObserveMutation(operation, mutationResult(err))
}

// mutationResult buckets an error for the mutation counter.
func mutationResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, domain.ErrAccessDenied):
		return ResultDenied
	case errors.Is(err, domain.ErrDuplicateMember),
		errors.Is(err, domain.ErrLastAdminViolation),
		errors.Is(err, domain.ErrWorkspaceDeleted),
		errors.Is(err, domain.ErrWorkspaceNotEmpty):
		return ResultConflict
	default:
		return ResultError
	}
}

func (s *MembershipService) writeAudit(ctx context.Context, workspaceID, actorID, action, resourceType, resourceID string, meta map[string]any) {
	rid := resourceID
	err := s.audit.LogAction(ctx, repo.AuditEntry{
		WorkspaceID:  workspaceID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   &rid,
		Metadata:     meta,
	})
	if err != nil {
		// the mutation is already committed
		s.log.Warn(ctx, "audit write failed",
			logger.Module("service"),
			logger.Action(action),
			zap.String("workspace_id", workspaceID),
			zap.Error(err),
		)
	}
}
