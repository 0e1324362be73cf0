// Package handler exposes the approval engine over HTTP.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/procurio/be-pr-approvals/internal/errors"
	"github.com/procurio/be-pr-approvals/internal/model"
	"github.com/procurio/be-pr-approvals/internal/service"
)

// HTTPHandler handles HTTP requests. Callers are pre-authenticated; the
// acting user arrives in the X-User-ID header.
type HTTPHandler struct {
	approvals *service.ApprovalService
	prs       *service.PRService
	log       zerolog.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(approvals *service.ApprovalService, prs *service.PRService, log zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{approvals: approvals, prs: prs, log: log}
}

// Routes mounts all API routes on the given router.
func (h *HTTPHandler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/workflows", h.CreateWorkflow)
		r.Get("/workflows/{workflowID}", h.GetWorkflow)
		r.Post("/workflows/{workflowID}/rules", h.AddRule)

		r.Post("/prs", h.CreatePR)
		r.Get("/prs", h.ListPRs)
		r.Get("/prs/{prID}", h.GetPR)
		r.Patch("/prs/{prID}", h.UpdatePR)

		r.Post("/prs/{prID}/approvals/init", h.InitApprovals)
		r.Post("/prs/{prID}/decision", h.RecordApproval)
		r.Get("/prs/{prID}/approvals", h.GetApprovals)
		r.Get("/prs/{prID}/audit", h.GetAuditTrail)
	})
}

// ── Workflows ─────────────────────────────────────────────────────────────────

// CreateWorkflow creates an approval workflow for a department.
func (h *HTTPHandler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DepartmentID string `json:"departmentId"`
		Name         string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, errors.InvalidInput("body", "invalid request body"))
		return
	}

	wf, err := h.approvals.CreateWorkflow(r.Context(), req.DepartmentID, req.Name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, wf)
}

// GetWorkflow returns a workflow with its rules populated.
func (h *HTTPHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.approvals.GetWorkflow(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, wf)
}

// addRuleRequest accepts either a single condition or a condition list, the
// former being normalized to a one-element list.
type addRuleRequest struct {
	Condition  *model.Condition  `json:"condition,omitempty"`
	Conditions []model.Condition `json:"conditions,omitempty"`
	Logic      model.Logic       `json:"logic,omitempty"`
	Action     string            `json:"action"`
}

// AddRule appends a rule to a workflow.
func (h *HTTPHandler) AddRule(w http.ResponseWriter, r *http.Request) {
	var req addRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, errors.InvalidInput("body", "invalid request body"))
		return
	}

	conditions := req.Conditions
	if len(conditions) == 0 && req.Condition != nil {
		conditions = []model.Condition{*req.Condition}
	}

	rule, err := h.approvals.AddRule(r.Context(), chi.URLParam(r, "workflowID"), conditions, req.Logic, req.Action)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, rule)
}

// ── Purchase requisitions ─────────────────────────────────────────────────────

// CreatePR creates a purchase requisition in pending state.
func (h *HTTPHandler) CreatePR(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, errors.InvalidInput("body", "invalid request body"))
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = r.Header.Get("X-User-ID")
	}

	pr, err := h.prs.Create(r.Context(), &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, pr)
}

// GetPR returns a single purchase requisition.
func (h *HTTPHandler) GetPR(w http.ResponseWriter, r *http.Request) {
	pr, err := h.prs.GetByID(r.Context(), chi.URLParam(r, "prID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, pr)
}

// ListPRs lists purchase requisitions by requester or department.
func (h *HTTPHandler) ListPRs(w http.ResponseWriter, r *http.Request) {
	createdBy := r.URL.Query().Get("created_by")
	departmentID := r.URL.Query().Get("department_id")

	var (
		prs []*model.PurchaseRequisition
		err error
	)
	switch {
	case createdBy != "":
		prs, err = h.prs.ListByUser(r.Context(), createdBy)
	case departmentID != "":
		prs, err = h.prs.ListByDepartment(r.Context(), departmentID)
	default:
		h.respondError(w, r, errors.InvalidInput("query", "created_by or department_id is required"))
		return
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"prs": prs, "total": len(prs)})
}

// UpdatePR edits a still-pending purchase requisition.
func (h *HTTPHandler) UpdatePR(w http.ResponseWriter, r *http.Request) {
	var req service.UpdatePRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, errors.InvalidInput("body", "invalid request body"))
		return
	}

	pr, err := h.prs.Update(r.Context(), chi.URLParam(r, "prID"), &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, pr)
}

// ── Approvals ─────────────────────────────────────────────────────────────────

// InitApprovals resolves approvers for a PR and creates its pending
// approval records.
func (h *HTTPHandler) InitApprovals(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkflowID string `json:"workflowId"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, r, errors.InvalidInput("body", "invalid request body"))
			return
		}
	}

	approvals, err := h.approvals.InitApprovals(r.Context(), chi.URLParam(r, "prID"), req.WorkflowID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, approvals)
}

// RecordApproval records the caller's decision on a PR.
func (h *HTTPHandler) RecordApproval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status   model.ApprovalStatus `json:"status"`
		Comments *string              `json:"comments,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, errors.InvalidInput("body", "invalid request body"))
		return
	}

	approverID := r.Header.Get("X-User-ID")
	approval, err := h.approvals.RecordApproval(r.Context(), chi.URLParam(r, "prID"), approverID, req.Status, req.Comments)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, approval)
}

// GetApprovals lists the approval records for a PR.
func (h *HTTPHandler) GetApprovals(w http.ResponseWriter, r *http.Request) {
	approvals, err := h.approvals.GetApprovals(r.Context(), chi.URLParam(r, "prID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, approvals)
}

// GetAuditTrail returns the approval audit trail for a PR.
func (h *HTTPHandler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	trail, err := h.approvals.GetAuditTrail(r.Context(), chi.URLParam(r, "prID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, trail)
}

// ── Response helpers ──────────────────────────────────────────────────────────

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		h.log.Debug().Err(err).Str("path", r.URL.Path).Msg("Request rejected")
	}
	h.respondJSON(w, status, map[string]string{
		"code":  string(errors.GetCode(err)),
		"error": err.Error(),
	})
}
