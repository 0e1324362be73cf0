package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/procurio/be-pr-approvals/internal/database"
	"github.com/procurio/be-pr-approvals/internal/errors"
	"github.com/procurio/be-pr-approvals/internal/model"
)

// PRRepository stores purchase requisitions. Status transitions use guarded
// updates (WHERE status = 'pending') so the pending → terminal transition is
// atomic with respect to concurrent writers.
type PRRepository struct {
	db *database.DB
}

// NewPRRepository creates a new PRRepository.
func NewPRRepository(db *database.DB) *PRRepository {
	return &PRRepository{db: db}
}

const prColumns = `id, item, quantity, department_id, created_by, status,
	       total_value, category_id, approval_workflow_id, created_at, updated_at`

// Create inserts a PR in pending state.
func (r *PRRepository) Create(ctx context.Context, pr *model.PurchaseRequisition) error {
	pr.ID = uuid.NewString()
	pr.Status = model.PRStatusPending

	query := `
		INSERT INTO purchase_requisitions
		    (id, item, quantity, department_id, created_by, status,
		     total_value, category_id, approval_workflow_id)
		VALUES ($1, $2, $3, $4, $5, $6::pr_status, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		pr.ID,
		pr.Item,
		pr.Quantity,
		pr.DepartmentID,
		pr.CreatedBy,
		pr.Status,
		pr.TotalValue,
		pr.CategoryID,
		pr.ApprovalWorkflowID,
	).Scan(&pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create purchase requisition")
	}
	return nil
}

// GetByID retrieves a PR by primary key.
func (r *PRRepository) GetByID(ctx context.Context, id string) (*model.PurchaseRequisition, error) {
	query := `SELECT ` + prColumns + ` FROM purchase_requisitions WHERE id = $1`

	pr, err := scanPR(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("purchase requisition", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get purchase requisition")
	}
	return pr, nil
}

// ListByUser returns all PRs created by a user, newest first.
func (r *PRRepository) ListByUser(ctx context.Context, userID string) ([]*model.PurchaseRequisition, error) {
	query := `SELECT ` + prColumns + `
		FROM purchase_requisitions
		WHERE created_by = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// ListByDepartment returns all PRs belonging to a department, newest first.
func (r *PRRepository) ListByDepartment(ctx context.Context, departmentID string) ([]*model.PurchaseRequisition, error) {
	query := `SELECT ` + prColumns + `
		FROM purchase_requisitions
		WHERE department_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, departmentID)
}

// Update modifies the editable fields of a still-pending PR. A PR in a
// terminal state cannot be edited.
func (r *PRRepository) Update(ctx context.Context, id string, item *string, quantity *int, totalValue *float64) (*model.PurchaseRequisition, error) {
	query := `
		UPDATE purchase_requisitions
		SET item        = COALESCE($2, item),
		    quantity    = COALESCE($3, quantity),
		    total_value = COALESCE($4, total_value),
		    updated_at  = NOW()
		WHERE id = $1 AND status = 'pending'::pr_status
		RETURNING ` + prColumns

	pr, err := scanPR(r.db.QueryRow(ctx, query, id, item, quantity, totalValue))
	if err == pgx.ErrNoRows {
		return nil, r.classifyGuardMiss(ctx, id, "only pending purchase requisitions can be updated")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to update purchase requisition")
	}
	return pr, nil
}

// ChangeStatus transitions a pending PR to a terminal status. The guarded
// update makes the transition atomic; when the guard misses because the PR
// already holds the requested status, the call is a no-op so concurrent
// finalizers are tolerated. Any other guard miss is an invalid transition.
func (r *PRRepository) ChangeStatus(ctx context.Context, id string, status model.PRStatus) (*model.PurchaseRequisition, error) {
	if !status.Terminal() {
		return nil, errors.InvalidInput("status", "status must be approved or rejected")
	}

	query := `
		UPDATE purchase_requisitions
		SET status     = $2::pr_status,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'::pr_status
		RETURNING ` + prColumns

	pr, err := scanPR(r.db.QueryRow(ctx, query, id, status))
	if err == pgx.ErrNoRows {
		current, gerr := r.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		if current.Status == status {
			// A concurrent writer already finalized to the same state.
			return current, nil
		}
		return nil, errors.Newf(errors.ErrCodeInvalidTransition,
			"purchase requisition %q is %s; cannot transition to %s", id, current.Status, status)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to change purchase requisition status")
	}
	return pr, nil
}

// classifyGuardMiss distinguishes a missing PR from a non-pending one after
// a guarded update matched no row.
func (r *PRRepository) classifyGuardMiss(ctx context.Context, id, message string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return errors.New(errors.ErrCodeInvalidTransition, message)
}

func (r *PRRepository) list(ctx context.Context, query string, arg any) ([]*model.PurchaseRequisition, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list purchase requisitions")
	}
	defer rows.Close()

	var prs []*model.PurchaseRequisition
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan purchase requisition")
		}
		prs = append(prs, pr)
	}
	return prs, nil
}

// ── scan helper ──────────────────────────────────────────────────────────────

type prScanner interface {
	Scan(dest ...any) error
}

func scanPR(row prScanner) (*model.PurchaseRequisition, error) {
	pr := &model.PurchaseRequisition{}
	err := row.Scan(
		&pr.ID,
		&pr.Item,
		&pr.Quantity,
		&pr.DepartmentID,
		&pr.CreatedBy,
		&pr.Status,
		&pr.TotalValue,
		&pr.CategoryID,
		&pr.ApprovalWorkflowID,
		&pr.CreatedAt,
		&pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return pr, nil
}
