// Package model holds the domain types shared by the rule engine, the
// stores and the services.
package model

import "time"

// Operator is a comparison operator usable in a rule condition.
type Operator string

const (
	OpGreaterThan    Operator = ">"
	OpLessThan       Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
)

// Logic combines the conditions of a rule.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// PRStatus is the lifecycle state of a purchase requisition.
// pending is the initial state; approved and rejected are terminal.
type PRStatus string

const (
	PRStatusPending  PRStatus = "pending"
	PRStatusApproved PRStatus = "approved"
	PRStatusRejected PRStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s PRStatus) Terminal() bool {
	return s == PRStatusApproved || s == PRStatusRejected
}

// ApprovalStatus is the state of a single approval record.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Condition compares one PR attribute against a literal value.
// Value is a string or a number (float64 after JSON decoding).
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
}

// Rule routes a matching PR to one approver role. Rules are append-only
// within their workflow and evaluated in Position order.
type Rule struct {
	ID           string      `json:"id"`
	WorkflowID   string      `json:"workflowId"`
	Conditions   []Condition `json:"conditions"`
	Logic        Logic       `json:"logic"`
	ApproverRole string      `json:"approverRole"`
	Position     int         `json:"position"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Workflow is a named, per-department rule set.
type Workflow struct {
	ID           string    `json:"id"`
	DepartmentID string    `json:"departmentId"`
	Name         string    `json:"name"`
	Rules        []Rule    `json:"rules"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Approval is one approver's decision record for a PR. At most one record
// exists per (PRID, ApproverID) pair.
type Approval struct {
	ID         string         `json:"id"`
	PRID       string         `json:"prId"`
	ApproverID string         `json:"approverId"`
	Status     ApprovalStatus `json:"status"`
	Comments   *string        `json:"comments,omitempty"`
	ApprovedAt *time.Time     `json:"approvedAt,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// PurchaseRequisition is a purchase request moving through approval.
type PurchaseRequisition struct {
	ID                 string    `json:"id"`
	Item               string    `json:"item"`
	Quantity           int       `json:"quantity"`
	DepartmentID       string    `json:"departmentId"`
	CreatedBy          string    `json:"createdBy"`
	Status             PRStatus  `json:"status"`
	TotalValue         float64   `json:"totalValue"`
	CategoryID         *string   `json:"categoryId,omitempty"`
	ApprovalWorkflowID *string   `json:"approvalWorkflowId,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Snapshot flattens the PR into the attribute map rule conditions are
// evaluated against. Optional attributes are omitted when unset, so
// conditions referencing them evaluate false.
func (pr *PurchaseRequisition) Snapshot() map[string]any {
	snap := map[string]any{
		"item":         pr.Item,
		"quantity":     pr.Quantity,
		"totalValue":   pr.TotalValue,
		"departmentId": pr.DepartmentID,
		"createdBy":    pr.CreatedBy,
		"status":       string(pr.Status),
	}
	if pr.CategoryID != nil {
		snap["categoryId"] = *pr.CategoryID
	}
	return snap
}

// User is an entry in the user/role directory.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	RoleID       string    `json:"roleId"`
	DepartmentID string    `json:"departmentId"`
	IsSuperUser  bool      `json:"isSuperUser"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Department is a reference record used for approver scoping.
type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuditEntry is one immutable record in the approval audit trail.
type AuditEntry struct {
	ID           string         `json:"id"`
	PRID         string         `json:"prId"`
	WorkflowID   *string        `json:"workflowId,omitempty"`
	ApprovalID   *string        `json:"approvalId,omitempty"`
	Action       string         `json:"action"` // initialized | approved | rejected | finalized
	PerformedBy  string         `json:"performedBy"`
	PerformedAt  time.Time      `json:"performedAt"`
	StatusBefore *string        `json:"statusBefore,omitempty"`
	StatusAfter  *string        `json:"statusAfter,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
