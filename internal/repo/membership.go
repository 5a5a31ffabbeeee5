package repo

import (
	"context"
	"fmt"
	"time"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/ledger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MembershipRepository writes ledger commits to Postgres.
type MembershipRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool, now: time.Now}
}

// CommitHook persists a ledger commit in one transaction. The workspace row's
// membership_version must equal the previous snapshot version, otherwise the
// commit is rejected and the in-memory snapshot is left unchanged.
func (r *MembershipRepository) CommitHook(ctx context.Context, c ledger.Commit) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	wsID := c.Next.WorkspaceID()
	tag, err := tx.Exec(ctx,
		`UPDATE workspaces SET membership_version = $1 WHERE id = $2 AND membership_version = $3`,
		int64(c.Next.Version()), wsID, int64(c.Prev.Version()),
	)
	if err != nil {
		return fmt.Errorf("bump membership version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workspace %s not at version %d: %w", wsID, c.Prev.Version(), domain.ErrInternalInconsistency)
	}

	if err := r.applyChange(ctx, tx, wsID, c.Change); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit membership tx: %w", err)
	}
	return nil
}

func (r *MembershipRepository) applyChange(ctx context.Context, tx pgx.Tx, wsID string, ch ledger.Change) error {
	m := ch.Member
	switch ch.Kind {
	case ledger.ChangeAdd:
		_, err := tx.Exec(ctx, `
			INSERT INTO workspace_members (id, workspace_id, user_id, roles, grants, joined_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, m.ID, wsID, m.UserID, rolesToText(m.Roles), grantsToText(m.Grants), m.JoinedAt, m.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert member %s: %w", m.ID, err)
		}
	case ledger.ChangeUpdate:
		tag, err := tx.Exec(ctx, `
			UPDATE workspace_members SET roles = $1, grants = $2, updated_at = $3
			WHERE id = $4 AND workspace_id = $5
		`, rolesToText(m.Roles), grantsToText(m.Grants), m.UpdatedAt, m.ID, wsID)
		if err != nil {
			return fmt.Errorf("update member %s: %w", m.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update member %s: row missing: %w", m.ID, domain.ErrInternalInconsistency)
		}
	case ledger.ChangeRemove:
		tag, err := tx.Exec(ctx, `DELETE FROM workspace_members WHERE id = $1 AND workspace_id = $2`, ch.MemberID, wsID)
		if err != nil {
			return fmt.Errorf("delete member %s: %w", ch.MemberID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("delete member %s: row missing: %w", ch.MemberID, domain.ErrInternalInconsistency)
		}
	case ledger.ChangeDissolve:
		if _, err := tx.Exec(ctx, `DELETE FROM workspace_members WHERE workspace_id = $1`, wsID); err != nil {
			return fmt.Errorf("clear members of %s: %w", wsID, err)
		}
		deletedAt := ch.At
		if deletedAt.IsZero() {
			deletedAt = r.now()
		}
		if _, err := tx.Exec(ctx,
			`UPDATE workspaces SET status = $1, deleted_at = $2 WHERE id = $3`,
			string(domain.WorkspaceDeleted), deletedAt.UTC(), wsID,
		); err != nil {
			return fmt.Errorf("mark workspace %s deleted: %w", wsID, err)
		}
	default:
		return fmt.Errorf("unknown change kind %q: %w", ch.Kind, domain.ErrInternalInconsistency)
	}
	return nil
}
