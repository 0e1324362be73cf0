package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/procurio/be-pr-approvals/internal/database"
	"github.com/procurio/be-pr-approvals/internal/errors"
	"github.com/procurio/be-pr-approvals/internal/model"
)

// ApprovalRepository is the approval ledger: one row per (pr_id, approver_id)
// pair, enforced by a unique index. Decisions are recorded with an atomic
// upsert so concurrent writers on the same pair cannot create duplicates.
type ApprovalRepository struct {
	db *database.DB
}

// NewApprovalRepository creates a new ApprovalRepository.
func NewApprovalRepository(db *database.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

const approvalColumns = `id, pr_id, approver_id, status, comments, approved_at, created_at, updated_at`

// BulkCreatePending inserts one pending approval per approver in a single
// transaction. Pairs that already exist are left untouched, which makes
// re-initialization idempotent.
func (r *ApprovalRepository) BulkCreatePending(ctx context.Context, prID string, approverIDs []string) ([]*model.Approval, error) {
	approvals := make([]*model.Approval, 0, len(approverIDs))

	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		insertQuery := `
			INSERT INTO pr_approvals (id, pr_id, approver_id, status)
			VALUES ($1, $2, $3, 'pending'::approval_status)
			ON CONFLICT (pr_id, approver_id) DO NOTHING
			RETURNING ` + approvalColumns

		selectQuery := `
			SELECT ` + approvalColumns + `
			FROM pr_approvals
			WHERE pr_id = $1 AND approver_id = $2
		`

		for _, approverID := range approverIDs {
			approval, err := scanApproval(tx.QueryRow(ctx, insertQuery, uuid.NewString(), prID, approverID))
			if err == pgx.ErrNoRows {
				// Pair already exists; keep the existing record as-is.
				approval, err = scanApproval(tx.QueryRow(ctx, selectQuery, prID, approverID))
			}
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to create approval")
			}
			approvals = append(approvals, approval)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approvals, nil
}

// Upsert records a decision for the (prID, approverID) pair, creating the
// record when absent and updating it in place otherwise.
func (r *ApprovalRepository) Upsert(ctx context.Context, prID, approverID string, status model.ApprovalStatus, comments *string, decidedAt time.Time) (*model.Approval, error) {
	query := `
		INSERT INTO pr_approvals (id, pr_id, approver_id, status, comments, approved_at)
		VALUES ($1, $2, $3, $4::approval_status, $5, $6)
		ON CONFLICT (pr_id, approver_id)
		DO UPDATE SET status      = EXCLUDED.status,
		              comments    = EXCLUDED.comments,
		              approved_at = EXCLUDED.approved_at,
		              updated_at  = NOW()
		RETURNING ` + approvalColumns

	approval, err := scanApproval(r.db.QueryRow(ctx, query,
		uuid.NewString(), prID, approverID, status, comments, decidedAt))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to record approval")
	}
	return approval, nil
}

// ListByPR returns every approval record for a PR, oldest first.
func (r *ApprovalRepository) ListByPR(ctx context.Context, prID string) ([]*model.Approval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM pr_approvals
		WHERE pr_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, prID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list approvals")
	}
	defer rows.Close()

	var approvals []*model.Approval
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan approval")
		}
		approvals = append(approvals, approval)
	}
	return approvals, nil
}

// CountPending returns the number of approvals still pending for a PR.
func (r *ApprovalRepository) CountPending(ctx context.Context, prID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM pr_approvals WHERE pr_id = $1 AND status = 'pending'::approval_status`,
		prID,
	).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count pending approvals")
	}
	return count, nil
}

// ── scan helper ──────────────────────────────────────────────────────────────

type approvalScanner interface {
	Scan(dest ...any) error
}

func scanApproval(row approvalScanner) (*model.Approval, error) {
	a := &model.Approval{}
	err := row.Scan(
		&a.ID,
		&a.PRID,
		&a.ApproverID,
		&a.Status,
		&a.Comments,
		&a.ApprovedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
