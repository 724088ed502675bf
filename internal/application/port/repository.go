package port

import (
	"context"
	"errors"

	"github.com/svcflow/servicedesk/internal/domain/entity"
)

// ErrVersionConflict is returned by RequestRepository.SaveStatus when the
// expected version no longer matches the stored row (optimistic-lock loss).
var ErrVersionConflict = errors.New("request version conflict")

// RequestRepository defines persistence operations for Request
type RequestRepository interface {
	Create(ctx context.Context, req *entity.Request) error
	GetByID(ctx context.Context, id int64) (*entity.Request, error)
	GetByReferenceCode(ctx context.Context, code string) (*entity.Request, error)

	// SaveStatus atomically writes status, pending approver set, payload
	// side-state and bumps the version, guarded by expectedVersion.
	// Returns ErrVersionConflict when the row has moved on.
	SaveStatus(ctx context.Context, req *entity.Request, expectedVersion int64) error

	// UpdateDraft rewrites the editable payload of a draft/returned request
	UpdateDraft(ctx context.Context, req *entity.Request) error

	Delete(ctx context.Context, id int64) error
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*entity.Request, error)
	ListByRequestor(ctx context.Context, requestorID string, limit, offset int) ([]*entity.Request, error)
	ListPendingFor(ctx context.Context, userID string, limit, offset int) ([]*entity.Request, error)
}

// ApprovalRepository defines persistence operations for Approval
type ApprovalRepository interface {
	Create(ctx context.Context, approval *entity.Approval) error
	GetByID(ctx context.Context, id int64) (*entity.Approval, error)
	GetByRequestID(ctx context.Context, requestID int64) ([]*entity.Approval, error)

	// GetPendingByStage returns the pending approval for a request stage, if any
	GetPendingByStage(ctx context.Context, requestID int64, stage string) (*entity.Approval, error)

	// Decide moves a pending approval to its final decision
	Decide(ctx context.Context, id int64, approverID, decision, comments string) error

	DeleteByRequestID(ctx context.Context, requestID int64) error
}

// UserRepository defines read operations the resolver needs over users
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	ListActiveByRoleAndDepartment(ctx context.Context, role string, departmentID int64) ([]*entity.User, error)
	ListActiveByRole(ctx context.Context, role string) ([]*entity.User, error)
}

// DepartmentRepository defines read operations over departments
type DepartmentRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Department, error)
	IsVehicleSteward(ctx context.Context, id int64) (bool, error)

	// GetVehicleSteward returns the department flagged as vehicle steward, if any
	GetVehicleSteward(ctx context.Context) (*entity.Department, error)
}

// VehicleRepository defines read operations over service vehicles
type VehicleRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Vehicle, error)
	ListActive(ctx context.Context) ([]*entity.Vehicle, error)
}

// DriverRepository defines read operations over service drivers
type DriverRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Driver, error)
	ListActive(ctx context.Context) ([]*entity.Driver, error)
}

// AuditLogRepository defines persistence operations for AuditLogEntry
type AuditLogRepository interface {
	Create(ctx context.Context, entry *entity.AuditLogEntry) error
	GetByEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditLogEntry, error)
}

// NotificationRepository defines persistence operations for the notification queue
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetPending(ctx context.Context, limit int) ([]*entity.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
