package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/procurio/be-pr-approvals/internal/cache"
	"github.com/procurio/be-pr-approvals/internal/errors"
	"github.com/procurio/be-pr-approvals/internal/metrics"
	"github.com/procurio/be-pr-approvals/internal/model"
	"github.com/procurio/be-pr-approvals/internal/rules"
)

// ApprovalService orchestrates the approval workflow engine: it resolves
// the approvers a PR requires, maintains the approval ledger, and drives
// the PR state machine as decisions arrive.
type ApprovalService struct {
	workflows WorkflowStore
	ledger    ApprovalLedger
	prs       PRStore
	directory UserDirectory
	audit     AuditLog
	notifier  Notifier
	wfCache   *cache.WorkflowCache
	engine    *rules.Engine
	log       zerolog.Logger
}

// NewApprovalService creates a new ApprovalService. notifier and wfCache
// may be nil.
func NewApprovalService(
	workflows WorkflowStore,
	ledger ApprovalLedger,
	prs PRStore,
	directory UserDirectory,
	audit AuditLog,
	notifier Notifier,
	wfCache *cache.WorkflowCache,
	log zerolog.Logger,
) *ApprovalService {
	return &ApprovalService{
		workflows: workflows,
		ledger:    ledger,
		prs:       prs,
		directory: directory,
		audit:     audit,
		notifier:  notifier,
		wfCache:   wfCache,
		engine:    rules.NewEngine(log),
		log:       log,
	}
}

// ── Workflow configuration ────────────────────────────────────────────────────

// CreateWorkflow creates a named workflow for a department with an empty
// rule list.
func (s *ApprovalService) CreateWorkflow(ctx context.Context, departmentID, name string) (*model.Workflow, error) {
	if departmentID == "" {
		return nil, errors.InvalidInput("departmentId", "department is required")
	}
	if name == "" {
		return nil, errors.InvalidInput("name", "workflow name is required")
	}

	wf, err := s.workflows.CreateWorkflow(ctx, departmentID, name)
	if err != nil {
		return nil, err
	}

	metrics.WorkflowsCreated.Inc()
	s.log.Info().
		Str("workflow_id", wf.ID).
		Str("department_id", departmentID).
		Str("name", name).
		Msg("Approval workflow created")
	return wf, nil
}

// AddRule validates and appends a rule to a workflow. A single condition is
// treated as a one-element condition list; empty logic defaults to AND.
// Malformed conditions are rejected here, never at evaluation time.
func (s *ApprovalService) AddRule(ctx context.Context, workflowID string, conditions []model.Condition, logic model.Logic, approverRole string) (*model.Rule, error) {
	normalized, err := model.ValidateRule(conditions, logic, approverRole)
	if err != nil {
		return nil, err
	}

	rule, err := s.workflows.AddRule(ctx, workflowID, conditions, normalized, approverRole)
	if err != nil {
		return nil, err
	}

	s.wfCache.Invalidate(ctx, workflowID)
	metrics.RulesAdded.Inc()
	s.log.Info().
		Str("workflow_id", workflowID).
		Str("rule_id", rule.ID).
		Str("approver_role", approverRole).
		Int("conditions", len(conditions)).
		Msg("Rule appended to workflow")
	return rule, nil
}

// GetWorkflow returns a workflow with its rules populated, reading through
// the cache when one is configured.
func (s *ApprovalService) GetWorkflow(ctx context.Context, id string) (*model.Workflow, error) {
	if wf := s.wfCache.Get(ctx, id); wf != nil {
		return wf, nil
	}
	wf, err := s.workflows.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.wfCache.Set(ctx, wf)
	return wf, nil
}

// ── Approval initialization ───────────────────────────────────────────────────

// InitApprovals resolves the approver roles the PR requires, looks up the
// users holding those roles in the PR's department, and creates one pending
// approval per user. Re-invocation leaves existing (PR, approver) records
// untouched.
func (s *ApprovalService) InitApprovals(ctx context.Context, prID, workflowID string) ([]*model.Approval, error) {
	pr, err := s.prs.GetByID(ctx, prID)
	if err != nil {
		return nil, err
	}
	if pr.Status != model.PRStatusPending {
		return nil, errors.Newf(errors.ErrCodeInvalidTransition,
			"purchase requisition %q is %s; approvals can only be initialized while pending", prID, pr.Status)
	}

	if workflowID == "" && pr.ApprovalWorkflowID != nil {
		workflowID = *pr.ApprovalWorkflowID
	}
	if workflowID == "" {
		return nil, errors.InvalidInput("workflowId", "workflow is required")
	}

	wf, err := s.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	roles := s.engine.DetermineNextApprovers(wf.Rules, pr.Snapshot())
	if len(roles) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoApproversMatched,
			"workflow %q matched no approver roles for purchase requisition %q", workflowID, prID)
	}

	approvers, err := s.directory.FindUsersByRoleAndDepartment(ctx, roles, pr.DepartmentID)
	if err != nil {
		return nil, err
	}
	if len(approvers) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoEligibleApprovers,
			"no users in department %q hold any of the required roles %v", pr.DepartmentID, roles)
	}

	approverIDs := make([]string, 0, len(approvers))
	for _, u := range approvers {
		approverIDs = append(approverIDs, u.ID)
	}

	approvals, err := s.ledger.BulkCreatePending(ctx, prID, approverIDs)
	if err != nil {
		return nil, err
	}

	metrics.ApprovalsInitialized.Add(float64(len(approvals)))
	s.appendAudit(ctx, &model.AuditEntry{
		PRID:        prID,
		WorkflowID:  &workflowID,
		Action:      "initialized",
		PerformedBy: pr.CreatedBy,
		Metadata: map[string]any{
			"approver_roles": roles,
			"approver_count": len(approverIDs),
		},
	})
	s.notify("approval_required", pr, pr.CreatedBy, approverIDs)

	s.log.Info().
		Str("pr_id", prID).
		Str("workflow_id", workflowID).
		Strs("approver_roles", roles).
		Int("approvals", len(approvals)).
		Msg("Approvals initialized")
	return approvals, nil
}

// ── Decision recording ────────────────────────────────────────────────────────

// RecordApproval upserts the approver's decision and drives the PR state
// machine: any rejection finalizes the PR to rejected immediately; an
// approval finalizes it to approved once no approvals remain pending.
// Decisions on a PR already in a terminal state are rejected.
func (s *ApprovalService) RecordApproval(ctx context.Context, prID, approverID string, status model.ApprovalStatus, comments *string) (*model.Approval, error) {
	if approverID == "" {
		return nil, errors.InvalidInput("approverId", "approver is required")
	}
	if status != model.ApprovalStatusApproved && status != model.ApprovalStatusRejected {
		return nil, errors.InvalidInput("status", "decision must be approved or rejected")
	}

	pr, err := s.prs.GetByID(ctx, prID)
	if err != nil {
		return nil, err
	}
	if pr.Status != model.PRStatusPending {
		return nil, errors.Newf(errors.ErrCodeInvalidTransition,
			"purchase requisition %q is already %s", prID, pr.Status)
	}

	approval, err := s.ledger.Upsert(ctx, prID, approverID, status, comments, time.Now())
	if err != nil {
		return nil, err
	}

	metrics.DecisionsRecorded.WithLabelValues(string(status)).Inc()
	statusBefore := string(pr.Status)
	s.appendAudit(ctx, &model.AuditEntry{
		PRID:         prID,
		ApprovalID:   &approval.ID,
		Action:       string(status),
		PerformedBy:  approverID,
		StatusBefore: &statusBefore,
	})

	switch status {
	case model.ApprovalStatusRejected:
		// Reject-fast: one rejection is final. Outstanding pending
		// approvals become moot but are not cancelled.
		if err := s.finalize(ctx, pr, model.PRStatusRejected, approverID); err != nil {
			return nil, err
		}
	case model.ApprovalStatusApproved:
		pending, err := s.ledger.CountPending(ctx, prID)
		if err != nil {
			return nil, err
		}
		if pending == 0 {
			if err := s.finalize(ctx, pr, model.PRStatusApproved, approverID); err != nil {
				return nil, err
			}
		}
	}

	s.log.Info().
		Str("pr_id", prID).
		Str("approver_id", approverID).
		Str("decision", string(status)).
		Msg("Approval decision recorded")
	return approval, nil
}

// finalize moves the PR to a terminal state. The store tolerates a
// concurrent finalizer that already reached the same state, so finalize is
// idempotent once terminal.
func (s *ApprovalService) finalize(ctx context.Context, pr *model.PurchaseRequisition, status model.PRStatus, actedBy string) error {
	updated, err := s.prs.ChangeStatus(ctx, pr.ID, status)
	if err != nil {
		return err
	}

	metrics.PRsFinalized.WithLabelValues(string(status)).Inc()
	statusBefore := string(model.PRStatusPending)
	statusAfter := string(updated.Status)
	s.appendAudit(ctx, &model.AuditEntry{
		PRID:         pr.ID,
		Action:       "finalized",
		PerformedBy:  actedBy,
		StatusBefore: &statusBefore,
		StatusAfter:  &statusAfter,
	})

	event := "pr_approved"
	if status == model.PRStatusRejected {
		event = "pr_rejected"
	}
	s.notify(event, updated, actedBy, []string{updated.CreatedBy})

	s.log.Info().
		Str("pr_id", pr.ID).
		Str("status", string(status)).
		Str("acted_by", actedBy).
		Msg("Purchase requisition finalized")
	return nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

// GetApprovals returns every approval record for a PR.
func (s *ApprovalService) GetApprovals(ctx context.Context, prID string) ([]*model.Approval, error) {
	if _, err := s.prs.GetByID(ctx, prID); err != nil {
		return nil, err
	}
	return s.ledger.ListByPR(ctx, prID)
}

// GetAuditTrail returns the full approval audit trail for a PR.
func (s *ApprovalService) GetAuditTrail(ctx context.Context, prID string) ([]*model.AuditEntry, error) {
	return s.audit.ListByPR(ctx, prID)
}

// ── Internal helpers ──────────────────────────────────────────────────────────

// appendAudit writes an audit entry and logs a warning on failure (never
// returns an error).
func (s *ApprovalService) appendAudit(ctx context.Context, entry *model.AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("pr_id", entry.PRID).
			Str("action", entry.Action).
			Msg("Failed to write audit log entry")
	}
}

func (s *ApprovalService) notify(event string, pr *model.PurchaseRequisition, actorID string, recipients []string) {
	if s.notifier == nil {
		return
	}
	s.notifier.PublishPREvent(event, pr.ID, actorID, recipients, map[string]any{
		"item":        pr.Item,
		"total_value": pr.TotalValue,
		"department":  pr.DepartmentID,
	})
}
