package workspace

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"meetspace-api/internal/access"
	"meetspace-api/internal/domain"
	"meetspace-api/internal/ledger"
	"meetspace-api/internal/observability/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists workspace records. Deletion of a live workspace is persisted
// by the ledger commit that dissolves it; DiscardWorkspace only removes a
// record whose creation was rolled back before any member was committed.
type Store interface {
	CreateWorkspace(ctx context.Context, info domain.WorkspaceInfo) error
	DiscardWorkspace(ctx context.Context, workspaceID string) error
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithStore persists new workspaces through s.
func WithStore(s Store) DirectoryOption {
	return func(d *Directory) { d.store = s }
}

// WithLogger sets the logger used by the directory and its workspaces.
func WithLogger(log *logger.Logger) DirectoryOption {
	return func(d *Directory) { d.log = log }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) DirectoryOption {
	return func(d *Directory) { d.now = now }
}

// Directory finds workspaces by id. Its lock only guards the map; it never
// spans a mutation of any single workspace.
type Directory struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace

	ledger   *ledger.Ledger
	registry *access.Registry
	users    UserDirectory
	store    Store
	log      *logger.Logger
	now      func() time.Time
}

// NewDirectory creates an empty directory over l.
func NewDirectory(l *ledger.Ledger, registry *access.Registry, users UserDirectory, opts ...DirectoryOption) *Directory {
	d := &Directory{
		workspaces: make(map[string]*Workspace),
		ledger:     l,
		registry:   registry,
		users:      users,
		log:        logger.Nop(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Create makes an empty active workspace owned by ownerUserID. The owner is
// not added as a member.
func (d *Directory) Create(ctx context.Context, ownerUserID, description string) (*Workspace, error) {
	if !d.users.Exists(ownerUserID) {
		return nil, fmt.Errorf("owner %s: %w", ownerUserID, domain.ErrUserNotFound)
	}

	info := domain.WorkspaceInfo{
		ID:          uuid.NewString(),
		Description: strings.TrimSpace(description),
		OwnerUserID: ownerUserID,
		Status:      domain.WorkspaceActive,
		CreatedAt:   d.now(),
	}
	if d.store != nil {
		if err := d.store.CreateWorkspace(ctx, info); err != nil {
			return nil, fmt.Errorf("persist workspace: %w", err)
		}
	}
	if _, err := d.ledger.Open(info.ID); err != nil {
		return nil, err
	}

	ws := newWorkspace(info, d)
	d.mu.Lock()
	d.workspaces[info.ID] = ws
	d.mu.Unlock()

	d.log.Info(ctx, "workspace created",
		logger.Module("workspace"),
		logger.Action("create_workspace"),
		zap.String("workspace_id", info.ID),
	)
	return ws, nil
}

// CreateDefaultWorkspace creates a workspace whose single member is the
// owner holding the admin role. Each call yields an independent workspace.
func (d *Directory) CreateDefaultWorkspace(ctx context.Context, ownerUserID, description string) (*Workspace, string, error) {
	if !d.registry.IsDefined(domain.RoleAdmin) {
		return nil, "", fmt.Errorf("role %q: %w", domain.RoleAdmin, domain.ErrUnknownRole)
	}
	ws, err := d.Create(ctx, ownerUserID, description)
	if err != nil {
		return nil, "", err
	}
	memberID, err := ws.AddMember(ctx, ownerUserID, domain.RoleAdmin)
	if err != nil {
		d.discard(ctx, ws.ID())
		return nil, "", fmt.Errorf("add owner to %s: %w", ws.ID(), err)
	}
	return ws, memberID, nil
}

// discard undoes Create for a workspace that never got its first member.
// Failures are logged; the caller already reports the original error.
func (d *Directory) discard(ctx context.Context, workspaceID string) {
	d.mu.Lock()
	delete(d.workspaces, workspaceID)
	d.mu.Unlock()

	fields := []zap.Field{
		logger.Module("workspace"),
		logger.Action("discard_workspace"),
		zap.String("workspace_id", workspaceID),
	}
	if err := d.ledger.Discard(workspaceID); err != nil {
		d.log.Error(ctx, "failed to discard workspace partition", append(fields, zap.Error(err))...)
	}
	if d.store != nil {
		if err := d.store.DiscardWorkspace(ctx, workspaceID); err != nil {
			d.log.Error(ctx, "failed to discard workspace record", append(fields, zap.Error(err))...)
			return
		}
	}
	d.log.Warn(ctx, "workspace creation rolled back", fields...)
}

// Get returns the workspace, including deleted ones.
func (d *Directory) Get(workspaceID string) (*Workspace, error) {
	d.mu.RLock()
	ws, ok := d.workspaces[workspaceID]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("workspace %s: %w", workspaceID, domain.ErrWorkspaceNotFound)
	}
	return ws, nil
}

// List returns every workspace record ordered by creation time.
func (d *Directory) List() []domain.WorkspaceInfo {
	d.mu.RLock()
	out := make([]domain.WorkspaceInfo, 0, len(d.workspaces))
	for _, ws := range d.workspaces {
		out = append(out, ws.Info())
	}
	d.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.WorkspaceInfo) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Delete moves the workspace to the terminal Deleted state. At most one
// member may remain; it is removed in the same commit.
func (d *Directory) Delete(ctx context.Context, workspaceID string) error {
	ws, err := d.Get(workspaceID)
	if err != nil {
		return err
	}
	return ws.dissolve(ctx)
}

// Restore installs a persisted workspace and its membership snapshot.
func (d *Directory) Restore(info domain.WorkspaceInfo, snap *ledger.Snapshot) error {
	if snap == nil || snap.WorkspaceID() != info.ID {
		return fmt.Errorf("restore workspace %s: snapshot mismatch: %w", info.ID, domain.ErrInternalInconsistency)
	}
	if snap.Closed() != (info.Status == domain.WorkspaceDeleted) {
		return fmt.Errorf("restore workspace %s: status %s with closed=%t: %w",
			info.ID, info.Status, snap.Closed(), domain.ErrInternalInconsistency)
	}
	if err := d.ledger.Restore(snap); err != nil {
		return err
	}

	d.mu.Lock()
	d.workspaces[info.ID] = newWorkspace(info, d)
	d.mu.Unlock()
	return nil
}

// Len returns the number of known workspaces.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.workspaces)
}
