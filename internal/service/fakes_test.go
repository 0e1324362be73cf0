package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/procurio/be-pr-approvals/internal/errors"
	"github.com/procurio/be-pr-approvals/internal/model"
)

// In-memory fakes for the store interfaces. They mirror the semantics the
// Postgres repositories implement: guarded status transitions and an
// atomic-per-pair approval upsert.

type fakeWorkflowStore struct {
	mu        sync.Mutex
	workflows map[string]*model.Workflow
}

func newFakeWorkflowStore() *fakeWorkflowStore {
	return &fakeWorkflowStore{workflows: make(map[string]*model.Workflow)}
}

func (f *fakeWorkflowStore) CreateWorkflow(_ context.Context, departmentID, name string) (*model.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wf := &model.Workflow{
		ID:           uuid.NewString(),
		DepartmentID: departmentID,
		Name:         name,
		Rules:        []model.Rule{},
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.workflows[wf.ID] = wf
	return wf, nil
}

func (f *fakeWorkflowStore) AddRule(_ context.Context, workflowID string, conditions []model.Condition, logic model.Logic, approverRole string) (*model.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wf, ok := f.workflows[workflowID]
	if !ok {
		return nil, errors.NotFound("workflow", workflowID)
	}
	rule := model.Rule{
		ID:           uuid.NewString(),
		WorkflowID:   workflowID,
		Conditions:   conditions,
		Logic:        logic,
		ApproverRole: approverRole,
		Position:     len(wf.Rules) + 1,
	}
	wf.Rules = append(wf.Rules, rule)
	return &rule, nil
}

func (f *fakeWorkflowStore) GetByID(_ context.Context, id string) (*model.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wf, ok := f.workflows[id]
	if !ok {
		return nil, errors.NotFound("workflow", id)
	}
	cp := *wf
	cp.Rules = append([]model.Rule(nil), wf.Rules...)
	return &cp, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	approvals []*model.Approval
}

func newFakeLedger() *fakeLedger { return &fakeLedger{} }

func (f *fakeLedger) find(prID, approverID string) *model.Approval {
	for _, a := range f.approvals {
		if a.PRID == prID && a.ApproverID == approverID {
			return a
		}
	}
	return nil
}

func (f *fakeLedger) BulkCreatePending(_ context.Context, prID string, approverIDs []string) ([]*model.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Approval, 0, len(approverIDs))
	for _, approverID := range approverIDs {
		if existing := f.find(prID, approverID); existing != nil {
			out = append(out, existing)
			continue
		}
		a := &model.Approval{
			ID:         uuid.NewString(),
			PRID:       prID,
			ApproverID: approverID,
			Status:     model.ApprovalStatusPending,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
		f.approvals = append(f.approvals, a)
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeLedger) Upsert(_ context.Context, prID, approverID string, status model.ApprovalStatus, comments *string, decidedAt time.Time) (*model.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.find(prID, approverID)
	if a == nil {
		a = &model.Approval{
			ID:         uuid.NewString(),
			PRID:       prID,
			ApproverID: approverID,
			CreatedAt:  time.Now(),
		}
		f.approvals = append(f.approvals, a)
	}
	a.Status = status
	a.Comments = comments
	a.ApprovedAt = &decidedAt
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeLedger) ListByPR(_ context.Context, prID string) ([]*model.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Approval
	for _, a := range f.approvals {
		if a.PRID == prID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeLedger) CountPending(_ context.Context, prID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.approvals {
		if a.PRID == prID && a.Status == model.ApprovalStatusPending {
			count++
		}
	}
	return count, nil
}

type fakePRStore struct {
	mu  sync.Mutex
	prs map[string]*model.PurchaseRequisition
}

func newFakePRStore() *fakePRStore {
	return &fakePRStore{prs: make(map[string]*model.PurchaseRequisition)}
}

func (f *fakePRStore) Create(_ context.Context, pr *model.PurchaseRequisition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr.ID = uuid.NewString()
	pr.Status = model.PRStatusPending
	pr.CreatedAt = time.Now()
	pr.UpdatedAt = time.Now()
	cp := *pr
	f.prs[pr.ID] = &cp
	return nil
}

func (f *fakePRStore) GetByID(_ context.Context, id string) (*model.PurchaseRequisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr, ok := f.prs[id]
	if !ok {
		return nil, errors.NotFound("purchase requisition", id)
	}
	cp := *pr
	return &cp, nil
}

func (f *fakePRStore) ListByUser(_ context.Context, userID string) ([]*model.PurchaseRequisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.PurchaseRequisition
	for _, pr := range f.prs {
		if pr.CreatedBy == userID {
			cp := *pr
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePRStore) ListByDepartment(_ context.Context, departmentID string) ([]*model.PurchaseRequisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.PurchaseRequisition
	for _, pr := range f.prs {
		if pr.DepartmentID == departmentID {
			cp := *pr
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePRStore) Update(_ context.Context, id string, item *string, quantity *int, totalValue *float64) (*model.PurchaseRequisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr, ok := f.prs[id]
	if !ok {
		return nil, errors.NotFound("purchase requisition", id)
	}
	if pr.Status != model.PRStatusPending {
		return nil, errors.New(errors.ErrCodeInvalidTransition, "only pending purchase requisitions can be updated")
	}
	if item != nil {
		pr.Item = *item
	}
	if quantity != nil {
		pr.Quantity = *quantity
	}
	if totalValue != nil {
		pr.TotalValue = *totalValue
	}
	pr.UpdatedAt = time.Now()
	cp := *pr
	return &cp, nil
}

func (f *fakePRStore) ChangeStatus(_ context.Context, id string, status model.PRStatus) (*model.PurchaseRequisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr, ok := f.prs[id]
	if !ok {
		return nil, errors.NotFound("purchase requisition", id)
	}
	if pr.Status != model.PRStatusPending {
		if pr.Status == status {
			cp := *pr
			return &cp, nil
		}
		return nil, errors.Newf(errors.ErrCodeInvalidTransition,
			"purchase requisition %q is %s; cannot transition to %s", id, pr.Status, status)
	}
	pr.Status = status
	pr.UpdatedAt = time.Now()
	cp := *pr
	return &cp, nil
}

type fakeDirectory struct {
	users []*model.User
}

func (f *fakeDirectory) FindUsersByRoleAndDepartment(_ context.Context, roles []string, departmentID string) ([]*model.User, error) {
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	var out []*model.User
	for _, u := range f.users {
		if roleSet[u.RoleID] && u.DepartmentID == departmentID {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

func (f *fakeAudit) Append(_ context.Context, entry *model.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = fmt.Sprintf("audit-%d", len(f.entries)+1)
	entry.PerformedAt = time.Now()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) ListByPR(_ context.Context, prID string) ([]*model.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AuditEntry
	for _, e := range f.entries {
		if e.PRID == prID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) PublishPREvent(eventType, prID, actorID string, recipients []string, payload map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
}
