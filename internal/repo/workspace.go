package repo

import (
	"context"
	"fmt"

	"meetspace-api/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WorkspaceRepository stores workspace records. It implements workspace.Store.
type WorkspaceRepository struct {
	pool *pgxpool.Pool
}

// NewWorkspaceRepository creates a new WorkspaceRepository.
func NewWorkspaceRepository(pool *pgxpool.Pool) *WorkspaceRepository {
	return &WorkspaceRepository{pool: pool}
}

// CreateWorkspace inserts a new workspace at membership version 0.
func (r *WorkspaceRepository) CreateWorkspace(ctx context.Context, info domain.WorkspaceInfo) error {
	query := `
		INSERT INTO workspaces (id, description, owner_user_id, status, membership_version, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
	`
	if _, err := r.pool.Exec(ctx, query, info.ID, info.Description, info.OwnerUserID, string(info.Status), info.CreatedAt); err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}
	return nil
}

// DiscardWorkspace deletes a workspace row that never committed a member.
// Rows past membership version 0 are left alone.
func (r *WorkspaceRepository) DiscardWorkspace(ctx context.Context, workspaceID string) error {
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM workspaces WHERE id = $1 AND membership_version = 0`, workspaceID,
	); err != nil {
		return fmt.Errorf("discard workspace %s: %w", workspaceID, err)
	}
	return nil
}

// StoredWorkspace is a workspace row with its members as persisted.
type StoredWorkspace struct {
	Info    domain.WorkspaceInfo
	Version uint64
	Members []domain.Member
}

// ListWorkspaces loads every workspace with its members.
func (r *WorkspaceRepository) ListWorkspaces(ctx context.Context) ([]StoredWorkspace, error) {
	wsQuery := `
		SELECT id::text, description, owner_user_id::text, status, membership_version, created_at, deleted_at
		FROM workspaces
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, wsQuery)
	if err != nil {
		return nil, fmt.Errorf("query workspaces: %w", err)
	}
	defer rows.Close()

	var out []StoredWorkspace
	index := make(map[string]int)
	for rows.Next() {
		var sw StoredWorkspace
		var status string
		var version int64
		if err := rows.Scan(&sw.Info.ID, &sw.Info.Description, &sw.Info.OwnerUserID, &status, &version, &sw.Info.CreatedAt, &sw.Info.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		sw.Info.Status = domain.WorkspaceStatus(status)
		sw.Version = uint64(version)
		index[sw.Info.ID] = len(out)
		out = append(out, sw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workspaces: %w", err)
	}

	memberQuery := `
		SELECT id, workspace_id::text, user_id::text, roles, grants, joined_at, updated_at
		FROM workspace_members
		ORDER BY workspace_id, id
	`
	mrows, err := r.pool.Query(ctx, memberQuery)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer mrows.Close()

	for mrows.Next() {
		var m domain.Member
		var roles, grants []string
		if err := mrows.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &roles, &grants, &m.JoinedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Roles = textToRoles(roles)
		m.Grants = textToGrants(grants)

		i, ok := index[m.WorkspaceID]
		if !ok {
			return nil, fmt.Errorf("member %s of unknown workspace %s: %w", m.ID, m.WorkspaceID, domain.ErrInternalInconsistency)
		}
		out[i].Members = append(out[i].Members, m)
	}
	if err := mrows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return out, nil
}
