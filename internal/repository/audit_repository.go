package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/procurio/be-pr-approvals/internal/database"
	"github.com/procurio/be-pr-approvals/internal/errors"
	"github.com/procurio/be-pr-approvals/internal/model"
)

// AuditRepository appends and reads immutable approval audit entries.
// Append is the only mutation exposed.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry *model.AuditEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal audit metadata")
		}
	}

	entry.ID = uuid.NewString()

	query := `
		INSERT INTO pr_approval_audit_log
		    (id, pr_id, workflow_id, approval_id,
		     action, performed_by,
		     status_before, status_after, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING performed_at
	`

	err := r.db.QueryRow(ctx, query,
		entry.ID,
		entry.PRID,
		entry.WorkflowID,
		entry.ApprovalID,
		entry.Action,
		entry.PerformedBy,
		entry.StatusBefore,
		entry.StatusAfter,
		metadataJSON,
	).Scan(&entry.PerformedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append audit entry")
	}
	return nil
}

// ListByPR returns the full audit trail for a PR, oldest first.
func (r *AuditRepository) ListByPR(ctx context.Context, prID string) ([]*model.AuditEntry, error) {
	query := `
		SELECT id, pr_id, workflow_id, approval_id,
		       action, performed_by, performed_at,
		       status_before, status_after, metadata
		FROM pr_approval_audit_log
		WHERE pr_id = $1
		ORDER BY performed_at ASC
	`
	rows, err := r.db.Query(ctx, query, prID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list audit entries")
	}
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		entry := &model.AuditEntry{}
		var metadataJSON []byte
		err := rows.Scan(
			&entry.ID,
			&entry.PRID,
			&entry.WorkflowID,
			&entry.ApprovalID,
			&entry.Action,
			&entry.PerformedBy,
			&entry.PerformedAt,
			&entry.StatusBefore,
			&entry.StatusAfter,
			&metadataJSON,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan audit entry")
		}
		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal audit metadata")
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
