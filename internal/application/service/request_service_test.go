package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svcflow/servicedesk/internal/application/workflow"
	"github.com/svcflow/servicedesk/internal/domain/entity"
	domainwf "github.com/svcflow/servicedesk/internal/domain/workflow"
)

func newRequestService() (RequestService, *mockRequestRepo, *mockApprovalRepo) {
	requests := newMockRequestRepo()
	approvals := &mockApprovalRepo{}
	users := &mockUserRepo{users: map[string]*entity.User{
		"req-1": {ID: "req-1", Role: entity.RoleRequestor, DepartmentID: 1, Active: true},
		"gone":  {ID: "gone", Role: entity.RoleRequestor, DepartmentID: 1, Active: false},
	}}
	return NewRequestService(requests, approvals, users, nopLogger{}), requests, approvals
}

func itemDetails() *entity.ItemDetails {
	return &entity.ItemDetails{Lines: []entity.ItemLine{{Description: "laptop", Quantity: 1}}}
}

func vehicleDetails() *entity.VehicleDetails {
	return &entity.VehicleDetails{
		Purpose:       "site inspection",
		Origin:        "HQ",
		Destination:   "North plant",
		DepartureDate: time.Date(2024, 7, 2, 8, 0, 0, 0, time.UTC),
		ReturnDate:    time.Date(2024, 7, 3, 18, 0, 0, 0, time.UTC),
	}
}

func TestCreateItemRequest(t *testing.T) {
	svc, _, _ := newRequestService()

	req, err := svc.CreateItemRequest(context.Background(), "req-1", 1, itemDetails())
	require.NoError(t, err)

	assert.Equal(t, domainwf.StateDraft.String(), req.Status)
	assert.Equal(t, entity.KindItem, req.Kind)
	assert.True(t, strings.HasPrefix(req.ReferenceCode, "IT-"), "got %s", req.ReferenceCode)
	assert.NotZero(t, req.ID)
}

func TestCreateItemRequest_Validation(t *testing.T) {
	svc, _, _ := newRequestService()
	ctx := context.Background()

	cases := []struct {
		name    string
		details *entity.ItemDetails
	}{
		{"nil details", nil},
		{"no lines", &entity.ItemDetails{}},
		{"blank description", &entity.ItemDetails{Lines: []entity.ItemLine{{Description: " ", Quantity: 1}}}},
		{"zero quantity", &entity.ItemDetails{Lines: []entity.ItemLine{{Description: "mouse", Quantity: 0}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateItemRequest(ctx, "req-1", 1, tc.details)
			assert.ErrorIs(t, err, workflow.ErrValidation)
		})
	}
}

func TestCreateRequest_RequestorChecks(t *testing.T) {
	svc, _, _ := newRequestService()
	ctx := context.Background()

	_, err := svc.CreateItemRequest(ctx, "nobody", 1, itemDetails())
	assert.ErrorIs(t, err, workflow.ErrValidation)

	_, err = svc.CreateItemRequest(ctx, "gone", 1, itemDetails())
	assert.ErrorIs(t, err, workflow.ErrValidation, "inactive requestor cannot open requests")
}

func TestCreateVehicleRequest(t *testing.T) {
	svc, _, _ := newRequestService()

	req, err := svc.CreateVehicleRequest(context.Background(), "req-1", 1, vehicleDetails())
	require.NoError(t, err)

	assert.Equal(t, entity.KindVehicle, req.Kind)
	assert.True(t, strings.HasPrefix(req.ReferenceCode, "VH-"), "got %s", req.ReferenceCode)
	assert.Equal(t, entity.VerificationNone, req.Vehicle.VerificationStatus)
}

func TestCreateVehicleRequest_Validation(t *testing.T) {
	svc, _, _ := newRequestService()
	ctx := context.Background()

	bad := vehicleDetails()
	bad.ReturnDate = bad.DepartureDate.AddDate(0, 0, -2)
	_, err := svc.CreateVehicleRequest(ctx, "req-1", 1, bad)
	assert.ErrorIs(t, err, workflow.ErrValidation)

	noPurpose := vehicleDetails()
	noPurpose.Purpose = "  "
	_, err = svc.CreateVehicleRequest(ctx, "req-1", 1, noPurpose)
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestUpdateDraft(t *testing.T) {
	svc, _, _ := newRequestService()
	ctx := context.Background()

	req, err := svc.CreateItemRequest(ctx, "req-1", 1, itemDetails())
	require.NoError(t, err)

	updated, err := svc.UpdateDraft(ctx, req.ID, "req-1",
		&entity.ItemDetails{Lines: []entity.ItemLine{{Description: "docking station", Quantity: 2}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "docking station", updated.Item.Lines[0].Description)
	assert.Equal(t, 2, updated.Item.Lines[0].Quantity)
}

func TestUpdateDraft_Guards(t *testing.T) {
	ctx := context.Background()

	t.Run("not owner", func(t *testing.T) {
		svc, _, _ := newRequestService()
		req, err := svc.CreateItemRequest(ctx, "req-1", 1, itemDetails())
		require.NoError(t, err)

		_, err = svc.UpdateDraft(ctx, req.ID, "someone-else", itemDetails(), nil)
		assert.ErrorIs(t, err, workflow.ErrNotOwner)
	})

	t.Run("not editable once submitted", func(t *testing.T) {
		svc, requests, _ := newRequestService()
		req, err := svc.CreateItemRequest(ctx, "req-1", 1, itemDetails())
		require.NoError(t, err)

		stored, err := requests.GetByID(ctx, req.ID)
		require.NoError(t, err)
		stored.Status = domainwf.StateSubmitted.String()
		require.NoError(t, requests.UpdateDraft(ctx, stored))

		_, err = svc.UpdateDraft(ctx, req.ID, "req-1", itemDetails(), nil)
		assert.ErrorIs(t, err, workflow.ErrInvalidState)
	})

	t.Run("unknown request", func(t *testing.T) {
		svc, _, _ := newRequestService()
		_, err := svc.UpdateDraft(ctx, 404, "req-1", itemDetails(), nil)
		assert.ErrorIs(t, err, workflow.ErrNotFound)
	})
}

func TestUpdateDraft_KeepsVerificationLane(t *testing.T) {
	svc, requests, _ := newRequestService()
	ctx := context.Background()

	req, err := svc.CreateVehicleRequest(ctx, "req-1", 1, vehicleDetails())
	require.NoError(t, err)

	stored, err := requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	stored.Status = domainwf.StateReturned.String()
	stored.Vehicle.VerificationStatus = entity.VerificationPending
	stored.Vehicle.VerifierID = "ver-1"
	require.NoError(t, requests.UpdateDraft(ctx, stored))

	edited := vehicleDetails()
	edited.Destination = "South plant"
	updated, err := svc.UpdateDraft(ctx, req.ID, "req-1", nil, edited)
	require.NoError(t, err)

	assert.Equal(t, "South plant", updated.Vehicle.Destination)
	assert.Equal(t, entity.VerificationPending, updated.Vehicle.VerificationStatus)
	assert.Equal(t, "ver-1", updated.Vehicle.VerifierID)
}

func TestGetAndLookup(t *testing.T) {
	svc, _, _ := newRequestService()
	ctx := context.Background()

	req, err := svc.CreateItemRequest(ctx, "req-1", 1, itemDetails())
	require.NoError(t, err)

	got, err := svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ReferenceCode, got.ReferenceCode)

	byCode, err := svc.GetByReferenceCode(ctx, req.ReferenceCode)
	require.NoError(t, err)
	assert.Equal(t, req.ID, byCode.ID)

	_, err = svc.Get(ctx, 404)
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = svc.GetByReferenceCode(ctx, "IT-deadbeef")
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = svc.GetByReferenceCode(ctx, "IT-missing")
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestListByStatus_RejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newRequestService()
	_, err := svc.ListByStatus(context.Background(), "LIMBO", 10, 0)
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestListPendingFor(t *testing.T) {
	svc, requests, _ := newRequestService()
	ctx := context.Background()

	req, err := svc.CreateItemRequest(ctx, "req-1", 1, itemDetails())
	require.NoError(t, err)
	stored, err := requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	stored.Status = domainwf.StateSubmitted.String()
	stored.PendingApproverIDs = []string{"appr-1"}
	require.NoError(t, requests.UpdateDraft(ctx, stored))

	got, err := svc.ListPendingFor(ctx, "appr-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, req.ID, got[0].ID)

	none, err := svc.ListPendingFor(ctx, "appr-2", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHistory(t *testing.T) {
	svc, _, approvals := newRequestService()
	ctx := context.Background()

	req, err := svc.CreateItemRequest(ctx, "req-1", 1, itemDetails())
	require.NoError(t, err)

	require.NoError(t, approvals.Create(ctx, &entity.Approval{
		RequestID: req.ID, Stage: entity.StageDepartment, ApproverID: "appr-1", Decision: entity.DecisionApproved,
	}))

	trail, err := svc.History(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, entity.StageDepartment, trail[0].Stage)

	_, err = svc.History(ctx, 404)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}
