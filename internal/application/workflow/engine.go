package workflow

import (
	"context"

	"github.com/svcflow/servicedesk/internal/domain/entity"
)

// Actor is the authenticated identity performing an action. It is passed
// explicitly on every call; the engine never reads ambient session state.
type Actor struct {
	UserID       string
	Role         string
	DepartmentID int64
}

// Engine validates and applies status transitions on requests. Every
// mutating operation is a single atomic read-modify-write: concurrent
// conflicting actions on one request resolve with exactly one winner,
// the loser observing ErrInvalidState or ErrVersionConflict.
type Engine interface {
	// Submit moves a draft or returned request into the approval chain.
	// Owner-gated.
	Submit(ctx context.Context, requestID int64, actor Actor) (*entity.Request, error)

	// Approve records the current stage's approval and advances the
	// request one stage, or to COMPLETED at the final stage. Vehicle
	// requests approved by a steward-department approver collapse
	// directly to COMPLETED.
	Approve(ctx context.Context, requestID int64, actor Actor, comments string) (*entity.Request, error)

	// Decline terminates the request at the current stage. Reason required.
	Decline(ctx context.Context, requestID int64, actor Actor, reason string) (*entity.Request, error)

	// Return sends the request back for rework. Reason required; returnTo
	// selects the requestor or, for item requests past the department
	// stage, the department approvers.
	Return(ctx context.Context, requestID int64, actor Actor, reason, returnTo string) (*entity.Request, error)

	// StartProcessing lets a service-desk member take an item request
	// that has cleared the IT manager stage.
	StartProcessing(ctx context.Context, requestID int64, actor Actor) (*entity.Request, error)

	// Complete finishes a vehicle request, assigning a vehicle and driver.
	Complete(ctx context.Context, requestID int64, actor Actor, vehicleID, driverID int64, comments string) (*entity.Request, error)

	// Delete hard-deletes a request and its approvals. Drafts by their
	// owner; terminal requests by super administrators or steward approvers.
	Delete(ctx context.Context, requestID int64, actor Actor) error

	// AssignVerifier opens the verification lane of a vehicle request
	AssignVerifier(ctx context.Context, requestID int64, actor Actor, verifierID string) (*entity.Request, error)

	// Verify records the assigned verifier's decision. Advisory: it never
	// alters the main status or pending approver set.
	Verify(ctx context.Context, requestID int64, actor Actor, approve bool, comments string) (*entity.Request, error)
}
