package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurio/be-pr-approvals/internal/errors"
	"github.com/procurio/be-pr-approvals/internal/model"
)

func newPRService() (*PRService, *fakePRStore) {
	prs := newFakePRStore()
	return NewPRService(prs, zerolog.Nop()), prs
}

func validCreateRequest() *CreatePRRequest {
	return &CreatePRRequest{
		Item:         "laptop",
		Quantity:     2,
		DepartmentID: "dep-1",
		CreatedBy:    "user-1",
		TotalValue:   1200,
	}
}

func TestCreatePR(t *testing.T) {
	svc, _ := newPRService()

	pr, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, pr.ID)
	assert.Equal(t, model.PRStatusPending, pr.Status)
}

func TestCreatePRValidation(t *testing.T) {
	svc, _ := newPRService()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreatePRRequest)
	}{
		{"missing item", func(r *CreatePRRequest) { r.Item = "" }},
		{"zero quantity", func(r *CreatePRRequest) { r.Quantity = 0 }},
		{"missing department", func(r *CreatePRRequest) { r.DepartmentID = "" }},
		{"missing requester", func(r *CreatePRRequest) { r.CreatedBy = "" }},
		{"zero total value", func(r *CreatePRRequest) { r.TotalValue = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)
			_, err := svc.Create(ctx, req)
			assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
		})
	}
}

func TestUpdatePendingPR(t *testing.T) {
	svc, _ := newPRService()
	ctx := context.Background()

	pr, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	newValue := 2400.0
	updated, err := svc.Update(ctx, pr.ID, &UpdatePRRequest{TotalValue: &newValue})
	require.NoError(t, err)
	assert.Equal(t, 2400.0, updated.TotalValue)
	assert.Equal(t, "laptop", updated.Item)
}

func TestUpdateRejectedForTerminalPR(t *testing.T) {
	svc, prs := newPRService()
	ctx := context.Background()

	pr, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	_, err = prs.ChangeStatus(ctx, pr.ID, model.PRStatusApproved)
	require.NoError(t, err)

	item := "desk"
	_, err = svc.Update(ctx, pr.ID, &UpdatePRRequest{Item: &item})
	assert.Equal(t, errors.ErrCodeInvalidTransition, errors.GetCode(err))
}

func TestChangeStatusTerminalStates(t *testing.T) {
	svc, _ := newPRService()
	ctx := context.Background()

	pr, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.ChangeStatus(ctx, pr.ID, model.PRStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.PRStatusApproved, updated.Status)

	// Re-finalizing to the same state is a tolerated no-op, so concurrent
	// finalizers cannot fail each other.
	again, err := svc.ChangeStatus(ctx, pr.ID, model.PRStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.PRStatusApproved, again.Status)

	// Crossing from one terminal state to the other is never allowed.
	_, err = svc.ChangeStatus(ctx, pr.ID, model.PRStatusRejected)
	assert.Equal(t, errors.ErrCodeInvalidTransition, errors.GetCode(err))
}

func TestChangeStatusNotFound(t *testing.T) {
	svc, _ := newPRService()
	_, err := svc.ChangeStatus(context.Background(), "missing", model.PRStatusApproved)
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestListByUserAndDepartment(t *testing.T) {
	svc, _ := newPRService()
	ctx := context.Background()

	_, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	other := validCreateRequest()
	other.CreatedBy = "user-2"
	other.DepartmentID = "dep-2"
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	byUser, err := svc.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	byDep, err := svc.ListByDepartment(ctx, "dep-2")
	require.NoError(t, err)
	assert.Len(t, byDep, 1)
}
