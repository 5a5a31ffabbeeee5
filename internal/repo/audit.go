package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry is one row of the audit log.
type AuditEntry struct {
	WorkspaceID  string
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   *string
	Metadata     map[string]any
	IPAddress    string
	UserAgent    string
}

// AuditRepo handles audit log storage
type AuditRepo struct {
	pool *pgxpool.Pool
}

// NewAuditRepo creates a new AuditRepo
func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// LogAction appends an entry to the audit log.
func (r *AuditRepo) LogAction(ctx context.Context, e AuditEntry) error {
	var metadataJSON []byte
	if e.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	query := `
		INSERT INTO audit_log (
			workspace_id, actor_id, action, resource_type, resource_id,
			metadata, ip_address, user_agent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		e.WorkspaceID, e.ActorID, e.Action, e.ResourceType, e.ResourceID,
		metadataJSON, e.IPAddress, e.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("log action %s: %w", e.Action, err)
	}
	return nil
}

// PurgeOlderThan deletes audit rows created before cutoff.
func (r *AuditRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit log: %w", err)
	}
	return tag.RowsAffected(), nil
}
