package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/procurio/be-pr-approvals/internal/errors"
	"github.com/procurio/be-pr-approvals/internal/model"
)

// PRService handles purchase requisition CRUD. Status is owned by the state
// machine: content edits are only allowed while the PR is pending.
type PRService struct {
	prs PRStore
	log zerolog.Logger
}

// NewPRService creates a new PRService.
func NewPRService(prs PRStore, log zerolog.Logger) *PRService {
	return &PRService{prs: prs, log: log}
}

// CreatePRRequest carries the fields a requester submits.
type CreatePRRequest struct {
	Item               string   `json:"item"`
	Quantity           int      `json:"quantity"`
	DepartmentID       string   `json:"departmentId"`
	CreatedBy          string   `json:"createdBy"`
	TotalValue         float64  `json:"totalValue"`
	CategoryID         *string  `json:"categoryId,omitempty"`
	ApprovalWorkflowID *string  `json:"approvalWorkflowId,omitempty"`
}

// UpdatePRRequest carries the editable fields; nil leaves a field unchanged.
type UpdatePRRequest struct {
	Item       *string  `json:"item,omitempty"`
	Quantity   *int     `json:"quantity,omitempty"`
	TotalValue *float64 `json:"totalValue,omitempty"`
}

// Create validates and stores a new PR in pending state.
func (s *PRService) Create(ctx context.Context, req *CreatePRRequest) (*model.PurchaseRequisition, error) {
	if req.Item == "" {
		return nil, errors.InvalidInput("item", "item is required")
	}
	if req.Quantity <= 0 {
		return nil, errors.InvalidInput("quantity", "quantity must be positive")
	}
	if req.DepartmentID == "" {
		return nil, errors.InvalidInput("departmentId", "department is required")
	}
	if req.CreatedBy == "" {
		return nil, errors.InvalidInput("createdBy", "requester is required")
	}
	if req.TotalValue <= 0 {
		return nil, errors.InvalidInput("totalValue", "total value must be positive")
	}

	pr := &model.PurchaseRequisition{
		Item:               req.Item,
		Quantity:           req.Quantity,
		DepartmentID:       req.DepartmentID,
		CreatedBy:          req.CreatedBy,
		TotalValue:         req.TotalValue,
		CategoryID:         req.CategoryID,
		ApprovalWorkflowID: req.ApprovalWorkflowID,
	}
	if err := s.prs.Create(ctx, pr); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("pr_id", pr.ID).
		Str("department_id", pr.DepartmentID).
		Float64("total_value", pr.TotalValue).
		Msg("Purchase requisition created")
	return pr, nil
}

// GetByID fetches a single PR.
func (s *PRService) GetByID(ctx context.Context, prID string) (*model.PurchaseRequisition, error) {
	return s.prs.GetByID(ctx, prID)
}

// ListByUser returns PRs created by a user.
func (s *PRService) ListByUser(ctx context.Context, userID string) ([]*model.PurchaseRequisition, error) {
	return s.prs.ListByUser(ctx, userID)
}

// ListByDepartment returns PRs belonging to a department.
func (s *PRService) ListByDepartment(ctx context.Context, departmentID string) ([]*model.PurchaseRequisition, error) {
	return s.prs.ListByDepartment(ctx, departmentID)
}

// Update edits the content of a still-pending PR.
func (s *PRService) Update(ctx context.Context, prID string, req *UpdatePRRequest) (*model.PurchaseRequisition, error) {
	if req.Item != nil && *req.Item == "" {
		return nil, errors.InvalidInput("item", "item cannot be empty")
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		return nil, errors.InvalidInput("quantity", "quantity must be positive")
	}
	if req.TotalValue != nil && *req.TotalValue <= 0 {
		return nil, errors.InvalidInput("totalValue", "total value must be positive")
	}
	return s.prs.Update(ctx, prID, req.Item, req.Quantity, req.TotalValue)
}

// ChangeStatus transitions a pending PR to approved or rejected. It is the
// state machine's single mutation point for PR status.
func (s *PRService) ChangeStatus(ctx context.Context, prID string, status model.PRStatus) (*model.PurchaseRequisition, error) {
	pr, err := s.prs.ChangeStatus(ctx, prID, status)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("pr_id", prID).
		Str("status", string(status)).
		Msg("Purchase requisition status changed")
	return pr, nil
}
