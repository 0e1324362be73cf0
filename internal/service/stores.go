package service

import (
	"context"
	"time"

	"github.com/procurio/be-pr-approvals/internal/model"
)

// The services talk to their collaborators through narrow interfaces so the
// engine can be exercised in isolation. The Postgres implementations live in
// internal/repository.

// WorkflowStore holds named workflows and their append-only rule lists.
type WorkflowStore interface {
	CreateWorkflow(ctx context.Context, departmentID, name string) (*model.Workflow, error)
	AddRule(ctx context.Context, workflowID string, conditions []model.Condition, logic model.Logic, approverRole string) (*model.Rule, error)
	GetByID(ctx context.Context, id string) (*model.Workflow, error)
}

// ApprovalLedger stores one approval record per (PR, approver) pair.
type ApprovalLedger interface {
	BulkCreatePending(ctx context.Context, prID string, approverIDs []string) ([]*model.Approval, error)
	Upsert(ctx context.Context, prID, approverID string, status model.ApprovalStatus, comments *string, decidedAt time.Time) (*model.Approval, error)
	ListByPR(ctx context.Context, prID string) ([]*model.Approval, error)
	CountPending(ctx context.Context, prID string) (int, error)
}

// PRStore persists purchase requisitions and owns their status transitions.
type PRStore interface {
	Create(ctx context.Context, pr *model.PurchaseRequisition) error
	GetByID(ctx context.Context, id string) (*model.PurchaseRequisition, error)
	ListByUser(ctx context.Context, userID string) ([]*model.PurchaseRequisition, error)
	ListByDepartment(ctx context.Context, departmentID string) ([]*model.PurchaseRequisition, error)
	Update(ctx context.Context, id string, item *string, quantity *int, totalValue *float64) (*model.PurchaseRequisition, error)
	ChangeStatus(ctx context.Context, id string, status model.PRStatus) (*model.PurchaseRequisition, error)
}

// UserDirectory resolves approver users from roles.
type UserDirectory interface {
	FindUsersByRoleAndDepartment(ctx context.Context, roles []string, departmentID string) ([]*model.User, error)
}

// AuditLog is the immutable approval audit trail.
type AuditLog interface {
	Append(ctx context.Context, entry *model.AuditEntry) error
	ListByPR(ctx context.Context, prID string) ([]*model.AuditEntry, error)
}

// Notifier publishes approval events. Implementations must be non-blocking
// best-effort; failures are never surfaced to approval operations.
type Notifier interface {
	PublishPREvent(eventType, prID, actorID string, recipients []string, payload map[string]any)
}
