package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/svcflow/servicedesk/internal/application/port"
	"github.com/svcflow/servicedesk/internal/application/workflow"
	"github.com/svcflow/servicedesk/internal/domain/entity"
	domainwf "github.com/svcflow/servicedesk/internal/domain/workflow"
	"github.com/svcflow/servicedesk/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RequestService manages the lifecycle of requests outside the approval
// chain: drafting, editing, lookup and listing. State transitions go
// through the workflow engine.
type RequestService interface {
	CreateItemRequest(ctx context.Context, requestorID string, departmentID int64, details *entity.ItemDetails) (*entity.Request, error)
	CreateVehicleRequest(ctx context.Context, requestorID string, departmentID int64, details *entity.VehicleDetails) (*entity.Request, error)

	// UpdateDraft rewrites the editable payload; only the owner may edit,
	// and only in DRAFT or RETURNED status.
	UpdateDraft(ctx context.Context, id int64, actorID string, item *entity.ItemDetails, vehicle *entity.VehicleDetails) (*entity.Request, error)

	Get(ctx context.Context, id int64) (*entity.Request, error)
	GetByReferenceCode(ctx context.Context, code string) (*entity.Request, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*entity.Request, error)
	ListByRequestor(ctx context.Context, requestorID string, limit, offset int) ([]*entity.Request, error)
	ListPendingFor(ctx context.Context, userID string, limit, offset int) ([]*entity.Request, error)

	// History returns the approval trail of a request, oldest first
	History(ctx context.Context, id int64) ([]*entity.Approval, error)
}

type requestServiceImpl struct {
	requests  port.RequestRepository
	approvals port.ApprovalRepository
	users     port.UserRepository
	logger    Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	requests port.RequestRepository,
	approvals port.ApprovalRepository,
	users port.UserRepository,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		requests:  requests,
		approvals: approvals,
		users:     users,
		logger:    logger,
	}
}

// CreateItemRequest creates an equipment request in DRAFT status
func (s *requestServiceImpl) CreateItemRequest(ctx context.Context, requestorID string, departmentID int64, details *entity.ItemDetails) (*entity.Request, error) {
	if err := s.checkRequestor(ctx, requestorID); err != nil {
		return nil, err
	}
	if err := validateItemDetails(details); err != nil {
		return nil, err
	}

	req := &entity.Request{
		ReferenceCode: newReferenceCode("IT"),
		Kind:          entity.KindItem,
		Status:        domainwf.StateDraft.String(),
		RequestorID:   requestorID,
		DepartmentID:  departmentID,
		Item:          details,
		CreatedAt:     time.Now(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		s.logger.Error("Failed to create item request", "error", err, "requestor_id", requestorID)
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logger.Info("Item request created", "id", req.ID, "reference_code", req.ReferenceCode)
	return req, nil
}

// CreateVehicleRequest creates a service vehicle request in DRAFT status
func (s *requestServiceImpl) CreateVehicleRequest(ctx context.Context, requestorID string, departmentID int64, details *entity.VehicleDetails) (*entity.Request, error) {
	if err := s.checkRequestor(ctx, requestorID); err != nil {
		return nil, err
	}
	if err := validateVehicleDetails(details); err != nil {
		return nil, err
	}

	details.VerificationStatus = entity.VerificationNone

	req := &entity.Request{
		ReferenceCode: newReferenceCode("VH"),
		Kind:          entity.KindVehicle,
		Status:        domainwf.StateDraft.String(),
		RequestorID:   requestorID,
		DepartmentID:  departmentID,
		Vehicle:       details,
		CreatedAt:     time.Now(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		s.logger.Error("Failed to create vehicle request", "error", err, "requestor_id", requestorID)
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logger.Info("Vehicle request created", "id", req.ID, "reference_code", req.ReferenceCode)
	return req, nil
}

// UpdateDraft rewrites the payload of an editable request
func (s *requestServiceImpl) UpdateDraft(ctx context.Context, id int64, actorID string, item *entity.ItemDetails, vehicle *entity.VehicleDetails) (*entity.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: id %d", workflow.ErrNotFound, id)
	}
	if req.RequestorID != actorID {
		return nil, fmt.Errorf("%w: only the requestor may edit", workflow.ErrNotOwner)
	}

	state := domainwf.State(req.Status)
	if state != domainwf.StateDraft && state != domainwf.StateReturned {
		return nil, fmt.Errorf("%w: request in status %s is not editable", workflow.ErrInvalidState, req.Status)
	}

	switch req.Kind {
	case entity.KindItem:
		if err := validateItemDetails(item); err != nil {
			return nil, err
		}
		req.Item = item
	case entity.KindVehicle:
		if err := validateVehicleDetails(vehicle); err != nil {
			return nil, err
		}
		// The verification lane survives edits; a re-edit does not reset a
		// pending or decided verification.
		vehicle.VerificationStatus = req.Vehicle.VerificationStatus
		vehicle.VerifierID = req.Vehicle.VerifierID
		req.Vehicle = vehicle
	}

	if err := s.requests.UpdateDraft(ctx, req); err != nil {
		s.logger.Error("Failed to update draft", "error", err, "id", id)
		return nil, fmt.Errorf("update draft: %w", err)
	}

	s.logger.Info("Draft updated", "id", id, "kind", req.Kind)
	return req, nil
}

// Get returns a request by id
func (s *requestServiceImpl) Get(ctx context.Context, id int64) (*entity.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: id %d", workflow.ErrNotFound, id)
	}
	return req, nil
}

// GetByReferenceCode returns a request by its human-facing code
func (s *requestServiceImpl) GetByReferenceCode(ctx context.Context, code string) (*entity.Request, error) {
	if err := utils.ValidateReferenceCode(code); err != nil {
		return nil, fmt.Errorf("%w: %v", workflow.ErrValidation, err)
	}
	req, err := s.requests.GetByReferenceCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get request by code: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: reference code %s", workflow.ErrNotFound, code)
	}
	return req, nil
}

func (s *requestServiceImpl) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*entity.Request, error) {
	if status != "" && !domainwf.State(status).IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", workflow.ErrValidation, status)
	}
	return s.requests.ListByStatus(ctx, status, normalizeLimit(limit), offset)
}

func (s *requestServiceImpl) ListByRequestor(ctx context.Context, requestorID string, limit, offset int) ([]*entity.Request, error) {
	return s.requests.ListByRequestor(ctx, requestorID, normalizeLimit(limit), offset)
}

func (s *requestServiceImpl) ListPendingFor(ctx context.Context, userID string, limit, offset int) ([]*entity.Request, error) {
	return s.requests.ListPendingFor(ctx, userID, normalizeLimit(limit), offset)
}

// History returns the approval trail, oldest first
func (s *requestServiceImpl) History(ctx context.Context, id int64) ([]*entity.Approval, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: id %d", workflow.ErrNotFound, id)
	}
	approvals, err := s.approvals.GetByRequestID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get approvals: %w", err)
	}
	return approvals, nil
}

func (s *requestServiceImpl) checkRequestor(ctx context.Context, requestorID string) error {
	user, err := s.users.GetByID(ctx, requestorID)
	if err != nil {
		return fmt.Errorf("get requestor: %w", err)
	}
	if user == nil || !user.Active {
		return fmt.Errorf("%w: requestor %s not available", workflow.ErrValidation, requestorID)
	}
	return nil
}

func validateItemDetails(details *entity.ItemDetails) error {
	if details == nil || len(details.Lines) == 0 {
		return fmt.Errorf("%w: at least one item line is required", workflow.ErrValidation)
	}
	for i := range details.Lines {
		details.Lines[i].Description = utils.SanitizeString(details.Lines[i].Description)
	}
	for i, line := range details.Lines {
		if strings.TrimSpace(line.Description) == "" {
			return fmt.Errorf("%w: item line %d has no description", workflow.ErrValidation, i+1)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: item line %d has non-positive quantity", workflow.ErrValidation, i+1)
		}
	}
	return nil
}

func validateVehicleDetails(details *entity.VehicleDetails) error {
	if details == nil {
		return fmt.Errorf("%w: vehicle details are required", workflow.ErrValidation)
	}
	details.Purpose = utils.SanitizeString(details.Purpose)
	details.Origin = utils.SanitizeString(details.Origin)
	details.Destination = utils.SanitizeString(details.Destination)
	if strings.TrimSpace(details.Purpose) == "" {
		return fmt.Errorf("%w: trip purpose is required", workflow.ErrValidation)
	}
	if strings.TrimSpace(details.Origin) == "" || strings.TrimSpace(details.Destination) == "" {
		return fmt.Errorf("%w: origin and destination are required", workflow.ErrValidation)
	}
	if details.DepartureDate.IsZero() {
		return fmt.Errorf("%w: departure date is required", workflow.ErrValidation)
	}
	if !details.ReturnDate.IsZero() && details.ReturnDate.Before(details.DepartureDate) {
		return fmt.Errorf("%w: return date precedes departure", workflow.ErrValidation)
	}
	return nil
}

// newReferenceCode builds a short human-facing code like IT-5f3a9c2e
func newReferenceCode(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, strings.Split(uuid.NewString(), "-")[0])
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}
