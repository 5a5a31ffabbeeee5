// Package workspace is the consistency boundary for membership changes.
//
// A Workspace serializes every mutation behind its own mutex before handing
// it to the ledger, and the Directory creates, restores and deletes
// workspaces. Access checks never go through here; they read committed
// ledger snapshots directly.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"meetspace-api/internal/access"
	"meetspace-api/internal/domain"
	"meetspace-api/internal/idgen"
	"meetspace-api/internal/ledger"
	"meetspace-api/internal/observability/logger"

	"go.uber.org/zap"
)

// UserDirectory resolves the weak user reference of a member.
type UserDirectory interface {
	Exists(userID string) bool
}

// errUnchanged aborts a ledger update that would not change anything.
var errUnchanged = errors.New("unchanged")

// Workspace is the aggregate root owning one membership partition.
type Workspace struct {
	mu   sync.Mutex
	info atomic.Pointer[domain.WorkspaceInfo]

	ledger   *ledger.Ledger
	registry *access.Registry
	users    UserDirectory
	log      *logger.Logger
	now      func() time.Time
}

func newWorkspace(info domain.WorkspaceInfo, d *Directory) *Workspace {
	ws := &Workspace{
		ledger:   d.ledger,
		registry: d.registry,
		users:    d.users,
		log:      d.log,
		now:      d.now,
	}
	ws.info.Store(&info)
	return ws
}

// ID returns the workspace id.
func (w *Workspace) ID() string { return w.info.Load().ID }

// Info returns a copy of the workspace record.
func (w *Workspace) Info() domain.WorkspaceInfo { return *w.info.Load() }

// Status returns the lifecycle state.
func (w *Workspace) Status() domain.WorkspaceStatus { return w.info.Load().Status }

// Snapshot returns the latest committed membership.
func (w *Workspace) Snapshot() (*ledger.Snapshot, error) {
	return w.ledger.Snapshot(w.ID())
}

// Member returns a member of the latest snapshot.
func (w *Workspace) Member(memberID string) (domain.Member, error) {
	snap, err := w.Snapshot()
	if err != nil {
		return domain.Member{}, err
	}
	m, ok := snap.Member(memberID)
	if !ok {
		return domain.Member{}, fmt.Errorf("member %s: %w", memberID, domain.ErrMemberNotFound)
	}
	return m, nil
}

// MemberByUser returns the member record of userID.
func (w *Workspace) MemberByUser(userID string) (domain.Member, error) {
	snap, err := w.Snapshot()
	if err != nil {
		return domain.Member{}, err
	}
	m, ok := snap.MemberByUser(userID)
	if !ok {
		return domain.Member{}, fmt.Errorf("user %s: %w", userID, domain.ErrMemberNotFound)
	}
	return m, nil
}

// AddMember makes userID a member holding role and returns the new member id.
func (w *Workspace) AddMember(ctx context.Context, userID string, role domain.Role) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkActive(); err != nil {
		return "", err
	}
	if !w.users.Exists(userID) {
		return "", fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
	}
	if !w.registry.IsDefined(role) {
		return "", fmt.Errorf("role %q: %w", role, domain.ErrUnknownRole)
	}

	now := w.now()
	m := domain.Member{
		ID:        idgen.NewAt(now),
		UserID:    userID,
		JoinedAt:  now,
		UpdatedAt: now,
	}
	version, err := w.ledger.AddMember(ctx, w.ID(), m, role)
	if err != nil {
		return "", err
	}

	w.log.Info(ctx, "member added",
		logger.Module("workspace"),
		logger.Action("add_member"),
		zap.String("member_id", m.ID),
		zap.String("role", role.String()),
		zap.Uint64("version", version),
	)
	return m.ID, nil
}

// DeleteMember removes a member. The last administrator cannot be deleted.
func (w *Workspace) DeleteMember(ctx context.Context, memberID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkActive(); err != nil {
		return err
	}
	version, err := w.ledger.RemoveMember(ctx, w.ID(), memberID)
	if err != nil {
		return err
	}

	w.log.Info(ctx, "member deleted",
		logger.Module("workspace"),
		logger.Action("delete_member"),
		zap.String("member_id", memberID),
		zap.Uint64("version", version),
	)
	return nil
}

// AssignPermission grants permission directly to a member. Granting a
// permission the member already holds directly is a no-op.
func (w *Workspace) AssignPermission(ctx context.Context, memberID string, permission domain.Permission) error {
	valid := func() error {
		if !permission.IsValid() {
			return fmt.Errorf("permission %q: %w", permission, domain.ErrInvalidPermission)
		}
		return nil
	}
	return w.update(ctx, "assign_permission", memberID, valid, func(m *domain.Member) bool {
		return m.AddGrant(permission)
	}, zap.String("permission", permission.String()))
}

// RevokePermission removes a direct grant. Role permissions are unaffected.
func (w *Workspace) RevokePermission(ctx context.Context, memberID string, permission domain.Permission) error {
	return w.update(ctx, "revoke_permission", memberID, nil, func(m *domain.Member) bool {
		return m.RemoveGrant(permission)
	}, zap.String("permission", permission.String()))
}

// AssignRole adds a defined role to a member.
func (w *Workspace) AssignRole(ctx context.Context, memberID string, role domain.Role) error {
	defined := func() error {
		if !w.registry.IsDefined(role) {
			return fmt.Errorf("role %q: %w", role, domain.ErrUnknownRole)
		}
		return nil
	}
	return w.update(ctx, "assign_role", memberID, defined, func(m *domain.Member) bool {
		return m.AddRole(role)
	}, zap.String("role", role.String()))
}

// RevokeRole removes a role. A member left without roles is removed.
func (w *Workspace) RevokeRole(ctx context.Context, memberID string, role domain.Role) error {
	return w.update(ctx, "revoke_role", memberID, nil, func(m *domain.Member) bool {
		return m.RemoveRole(role)
	}, zap.String("role", role.String()))
}

// update applies change to one member. The deleted state is reported before
// any input error from check.
func (w *Workspace) update(ctx context.Context, action, memberID string, check func() error, change func(*domain.Member) bool, fields ...zap.Field) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkActive(); err != nil {
		return err
	}
	if check != nil {
		if err := check(); err != nil {
			return err
		}
	}

	now := w.now()
	version, err := w.ledger.UpdateMember(ctx, w.ID(), memberID, func(m *domain.Member) error {
		if !change(m) {
			return errUnchanged
		}
		m.UpdatedAt = now
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}

	w.log.Info(ctx, "member updated", append(fields,
		logger.Module("workspace"),
		logger.Action(action),
		zap.String("member_id", memberID),
		zap.Uint64("version", version),
	)...)
	return nil
}

// dissolve removes the final member, if any, and marks the workspace
// deleted. It is only called by the Directory.
func (w *Workspace) dissolve(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkActive(); err != nil {
		return err
	}
	deletedAt := w.now()
	version, err := w.ledger.Dissolve(ctx, w.ID(), 1, deletedAt)
	if err != nil {
		return err
	}

	info := w.Info()
	info.Status = domain.WorkspaceDeleted
	info.DeletedAt = &deletedAt
	w.info.Store(&info)

	w.log.Info(ctx, "workspace deleted",
		logger.Module("workspace"),
		logger.Action("delete_workspace"),
		zap.Uint64("version", version),
	)
	return nil
}

func (w *Workspace) checkActive() error {
	if w.Status() == domain.WorkspaceDeleted {
		return fmt.Errorf("workspace %s: %w", w.ID(), domain.ErrWorkspaceDeleted)
	}
	return nil
}
