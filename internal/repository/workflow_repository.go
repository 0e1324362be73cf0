package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/procurio/be-pr-approvals/internal/database"
	"github.com/procurio/be-pr-approvals/internal/errors"
	"github.com/procurio/be-pr-approvals/internal/model"
)

// WorkflowRepository stores approval workflows and their append-only rule
// lists. Rule conditions are persisted as JSONB, validated before they get
// here.
type WorkflowRepository struct {
	db *database.DB
}

// NewWorkflowRepository creates a new WorkflowRepository.
func NewWorkflowRepository(db *database.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// CreateWorkflow inserts a workflow with an empty rule list.
func (r *WorkflowRepository) CreateWorkflow(ctx context.Context, departmentID, name string) (*model.Workflow, error) {
	wf := &model.Workflow{
		ID:           uuid.NewString(),
		DepartmentID: departmentID,
		Name:         name,
		Rules:        []model.Rule{},
	}

	query := `
		INSERT INTO approval_workflows (id, department_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, wf.ID, wf.DepartmentID, wf.Name).
		Scan(&wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create workflow")
	}
	return wf, nil
}

// AddRule appends a rule to a workflow. The workflow row is locked for the
// duration of the transaction so the rule and the workflow's rule list stay
// consistent for concurrent readers and appenders.
func (r *WorkflowRepository) AddRule(ctx context.Context, workflowID string, conditions []model.Condition, logic model.Logic, approverRole string) (*model.Rule, error) {
	conditionsJSON, err := json.Marshal(conditions)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal rule conditions")
	}

	rule := &model.Rule{
		ID:           uuid.NewString(),
		WorkflowID:   workflowID,
		Conditions:   conditions,
		Logic:        logic,
		ApproverRole: approverRole,
	}

	err = r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		// Lock the workflow row; doubles as the existence check.
		var id string
		err := tx.QueryRow(ctx,
			`UPDATE approval_workflows SET updated_at = NOW() WHERE id = $1 RETURNING id`,
			workflowID,
		).Scan(&id)
		if err == pgx.ErrNoRows {
			return errors.NotFound("workflow", workflowID)
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to lock workflow")
		}

		err = tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(position), 0) + 1 FROM workflow_rules WHERE workflow_id = $1`,
			workflowID,
		).Scan(&rule.Position)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to compute rule position")
		}

		query := `
			INSERT INTO workflow_rules
			    (id, workflow_id, conditions, logic, approver_role, position)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at, updated_at
		`
		err = tx.QueryRow(ctx, query,
			rule.ID,
			rule.WorkflowID,
			conditionsJSON,
			rule.Logic,
			rule.ApproverRole,
			rule.Position,
		).Scan(&rule.CreatedAt, &rule.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to insert rule")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// GetByID retrieves a workflow with its rules populated in position order.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*model.Workflow, error) {
	wf := &model.Workflow{Rules: []model.Rule{}}

	query := `
		SELECT id, department_id, name, created_at, updated_at
		FROM approval_workflows
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&wf.ID,
		&wf.DepartmentID,
		&wf.Name,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("workflow", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get workflow")
	}

	rulesQuery := `
		SELECT id, workflow_id, conditions, logic, approver_role, position,
		       created_at, updated_at
		FROM workflow_rules
		WHERE workflow_id = $1
		ORDER BY position ASC
	`
	rows, err := r.db.Query(ctx, rulesQuery, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list workflow rules")
	}
	defer rows.Close()

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		wf.Rules = append(wf.Rules, *rule)
	}
	return wf, nil
}

// ListByDepartment returns all workflows for a department, rules not
// populated.
func (r *WorkflowRepository) ListByDepartment(ctx context.Context, departmentID string) ([]*model.Workflow, error) {
	query := `
		SELECT id, department_id, name, created_at, updated_at
		FROM approval_workflows
		WHERE department_id = $1
		ORDER BY name ASC
	`
	rows, err := r.db.Query(ctx, query, departmentID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list workflows")
	}
	defer rows.Close()

	var workflows []*model.Workflow
	for rows.Next() {
		wf := &model.Workflow{Rules: []model.Rule{}}
		if err := rows.Scan(&wf.ID, &wf.DepartmentID, &wf.Name, &wf.CreatedAt, &wf.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan workflow")
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

// ── scan helpers ─────────────────────────────────────────────────────────────

type ruleScanner interface {
	Scan(dest ...any) error
}

func scanRule(row ruleScanner) (*model.Rule, error) {
	rule := &model.Rule{}
	var conditionsJSON []byte

	err := row.Scan(
		&rule.ID,
		&rule.WorkflowID,
		&conditionsJSON,
		&rule.Logic,
		&rule.ApproverRole,
		&rule.Position,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan rule")
	}
	if err := json.Unmarshal(conditionsJSON, &rule.Conditions); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal rule conditions")
	}
	return rule, nil
}
