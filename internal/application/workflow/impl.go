package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/svcflow/servicedesk/internal/application/dispatcher"
	"github.com/svcflow/servicedesk/internal/application/port"
	"github.com/svcflow/servicedesk/internal/domain/entity"
	"github.com/svcflow/servicedesk/internal/domain/event"
	domainwf "github.com/svcflow/servicedesk/internal/domain/workflow"
)

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	requests  port.RequestRepository
	approvals port.ApprovalRepository
	users     port.UserRepository
	vehicles  port.VehicleRepository
	drivers   port.DriverRepository
	txManager port.TransactionManager
	resolver  *Resolver

	dispatcher   dispatcher.Dispatcher
	verifyPolicy VerificationPolicy
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher audit events are emitted through
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithVerificationPolicy sets the predicate that flags vehicle requests
// for verification on submission
func WithVerificationPolicy(p VerificationPolicy) EngineOption {
	return func(e *engineImpl) {
		e.verifyPolicy = p
	}
}

// NewEngine creates a workflow engine
func NewEngine(
	requests port.RequestRepository,
	approvals port.ApprovalRepository,
	users port.UserRepository,
	vehicles port.VehicleRepository,
	drivers port.DriverRepository,
	txManager port.TransactionManager,
	resolver *Resolver,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		requests:     requests,
		approvals:    approvals,
		users:        users,
		vehicles:     vehicles,
		drivers:      drivers,
		txManager:    txManager,
		resolver:     resolver,
		verifyPolicy: SundayTravelPolicy,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit moves a draft or returned request into the approval chain
func (e *engineImpl) Submit(ctx context.Context, requestID int64, actor Actor) (*entity.Request, error) {
	var updated *entity.Request

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.load(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.RequestorID != actor.UserID {
			return fmt.Errorf("%w: submit is requestor-initiated", ErrNotOwner)
		}

		if err := e.fire(txCtx, req, domainwf.TriggerSubmit); err != nil {
			return err
		}

		now := time.Now()
		if req.SubmittedAt == nil {
			req.SubmittedAt = &now
		}

		if req.Kind == entity.KindVehicle && req.Vehicle != nil {
			if req.Vehicle.VerificationStatus == "" {
				req.Vehicle.VerificationStatus = entity.VerificationNone
			}
			if req.Vehicle.VerificationStatus == entity.VerificationNone &&
				e.verifyPolicy != nil && e.verifyPolicy(req.Vehicle) {
				req.Vehicle.VerificationStatus = entity.VerificationPending
			}
		}

		pending, err := e.resolver.PendingApprovers(txCtx, req)
		if err != nil {
			return err
		}
		req.PendingApproverIDs = pending

		if err := e.requests.SaveStatus(txCtx, req, req.Version); err != nil {
			return err
		}
		if err := e.ensurePendingApproval(txCtx, req.ID, entity.StageDepartment); err != nil {
			return err
		}

		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.TypeRequestSubmitted, updated, actor, map[string]interface{}{
		"status":               updated.Status,
		"pending_approver_ids": updated.PendingApproverIDs,
	})
	return updated, nil
}

// Approve records the current stage's decision and advances the request
func (e *engineImpl) Approve(ctx context.Context, requestID int64, actor Actor, comments string) (*entity.Request, error) {
	var updated *entity.Request
	var completed bool

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.load(txCtx, requestID)
		if err != nil {
			return err
		}
		if err := e.requireActing(req, actor); err != nil {
			return err
		}

		state := domainwf.State(req.Status)
		trigger := domainwf.TriggerApprove
		stage := stageFor(req.Kind, state)

		// A steward approval completes a vehicle request: from SUBMITTED it
		// collapses the chain, from DEPARTMENT_APPROVED it is the final
		// stage (Complete does the same with resource assignment).
		if req.Kind == entity.KindVehicle {
			steward, err := e.resolver.IsStewardApprover(txCtx, actor)
			if err != nil {
				return err
			}
			if steward && (state == domainwf.StateSubmitted || state == domainwf.StateDepartmentApproved) {
				trigger = domainwf.TriggerComplete
				stage = entity.StageCompletion
			}
		}

		if err := e.fire(txCtx, req, trigger); err != nil {
			return err
		}

		pending, err := e.resolver.PendingApprovers(txCtx, req)
		if err != nil {
			return err
		}
		req.PendingApproverIDs = pending

		if err := e.requests.SaveStatus(txCtx, req, req.Version); err != nil {
			return err
		}
		if err := e.decideApproval(txCtx, req.ID, stage, actor.UserID, entity.DecisionApproved, comments); err != nil {
			return err
		}
		if next := stageFor(req.Kind, domainwf.State(req.Status)); next != "" {
			if err := e.ensurePendingApproval(txCtx, req.ID, next); err != nil {
				return err
			}
		}

		completed = domainwf.State(req.Status) == domainwf.StateCompleted
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	evtType := event.TypeRequestApproved
	if completed {
		evtType = event.TypeRequestCompleted
	}
	e.emit(ctx, evtType, updated, actor, map[string]interface{}{
		"status":               updated.Status,
		"pending_approver_ids": updated.PendingApproverIDs,
		"comments":             comments,
	})
	return updated, nil
}

// Decline terminates the request at the current stage
func (e *engineImpl) Decline(ctx context.Context, requestID int64, actor Actor, reason string) (*entity.Request, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: decline reason is required", ErrValidation)
	}

	var updated *entity.Request

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.load(txCtx, requestID)
		if err != nil {
			return err
		}
		if err := e.requireActing(req, actor); err != nil {
			return err
		}

		stage := stageFor(req.Kind, domainwf.State(req.Status))

		if err := e.fire(txCtx, req, domainwf.TriggerDecline); err != nil {
			return err
		}
		req.PendingApproverIDs = []string{}

		if err := e.requests.SaveStatus(txCtx, req, req.Version); err != nil {
			return err
		}
		if err := e.decideApproval(txCtx, req.ID, stage, actor.UserID, entity.DecisionDeclined, reason); err != nil {
			return err
		}

		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.TypeRequestDeclined, updated, actor, map[string]interface{}{
		"status": updated.Status,
		"reason": reason,
	})
	return updated, nil
}

// Return sends the request back for rework
func (e *engineImpl) Return(ctx context.Context, requestID int64, actor Actor, reason, returnTo string) (*entity.Request, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: return reason is required", ErrValidation)
	}
	if returnTo != entity.ReturnToRequestor && returnTo != entity.ReturnToDepartmentApprover {
		return nil, fmt.Errorf("%w: unknown return target %q", ErrValidation, returnTo)
	}

	var updated *entity.Request

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.load(txCtx, requestID)
		if err != nil {
			return err
		}
		if err := e.requireActing(req, actor); err != nil {
			return err
		}

		state := domainwf.State(req.Status)
		if returnTo == entity.ReturnToDepartmentApprover &&
			(req.Kind != entity.KindItem || state != domainwf.StateDepartmentApproved) {
			return fmt.Errorf("%w: return to department approver is only valid for item requests past the department stage", ErrValidation)
		}

		stage := stageFor(req.Kind, state)

		if err := e.fire(txCtx, req, domainwf.TriggerReturn); err != nil {
			return err
		}

		if returnTo == entity.ReturnToDepartmentApprover {
			pending, err := e.resolver.DepartmentApprovers(txCtx, req.DepartmentID)
			if err != nil {
				return err
			}
			req.PendingApproverIDs = pending
		} else {
			req.PendingApproverIDs = []string{req.RequestorID}
		}

		if err := e.requests.SaveStatus(txCtx, req, req.Version); err != nil {
			return err
		}
		if err := e.decideApproval(txCtx, req.ID, stage, actor.UserID, entity.DecisionReturned, reason); err != nil {
			return err
		}

		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.TypeRequestReturned, updated, actor, map[string]interface{}{
		"status":               updated.Status,
		"reason":               reason,
		"return_to":            returnTo,
		"pending_approver_ids": updated.PendingApproverIDs,
	})
	return updated, nil
}

// StartProcessing parks an item request with the service desk
func (e *engineImpl) StartProcessing(ctx context.Context, requestID int64, actor Actor) (*entity.Request, error) {
	var updated *entity.Request

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.load(txCtx, requestID)
		if err != nil {
			return err
		}
		if err := e.requireActing(req, actor); err != nil {
			return err
		}

		if err := e.fire(txCtx, req, domainwf.TriggerStartProcessing); err != nil {
			return err
		}

		pending, err := e.resolver.PendingApprovers(txCtx, req)
		if err != nil {
			return err
		}
		req.PendingApproverIDs = pending

		if err := e.requests.SaveStatus(txCtx, req, req.Version); err != nil {
			return err
		}

		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.TypeRequestStatusChanged, updated, actor, map[string]interface{}{
		"status": updated.Status,
	})
	return updated, nil
}

// Complete finishes a vehicle request with assigned resources
func (e *engineImpl) Complete(ctx context.Context, requestID int64, actor Actor, vehicleID, driverID int64, comments string) (*entity.Request, error) {
	var updated *entity.Request

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.load(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.Kind != entity.KindVehicle {
			return fmt.Errorf("%w: complete applies to vehicle requests", ErrInvalidState)
		}
		if err := e.requireActing(req, actor); err != nil {
			return err
		}

		if vehicleID > 0 {
			vehicle, err := e.vehicles.GetByID(txCtx, vehicleID)
			if err != nil {
				return fmt.Errorf("get vehicle: %w", err)
			}
			if vehicle == nil || !vehicle.Active {
				return fmt.Errorf("%w: vehicle %d not available", ErrValidation, vehicleID)
			}
		}
		if driverID > 0 {
			driver, err := e.drivers.GetByID(txCtx, driverID)
			if err != nil {
				return fmt.Errorf("get driver: %w", err)
			}
			if driver == nil || !driver.Active {
				return fmt.Errorf("%w: driver %d not available", ErrValidation, driverID)
			}
		}

		if err := e.fire(txCtx, req, domainwf.TriggerComplete); err != nil {
			return err
		}

		if req.Vehicle != nil {
			if vehicleID > 0 {
				req.Vehicle.AssignedVehicleID = &vehicleID
			}
			if driverID > 0 {
				req.Vehicle.AssignedDriverID = &driverID
			}
		}
		req.PendingApproverIDs = []string{}

		if err := e.requests.SaveStatus(txCtx, req, req.Version); err != nil {
			return err
		}
		if err := e.decideApproval(txCtx, req.ID, entity.StageCompletion, actor.UserID, entity.DecisionApproved, comments); err != nil {
			return err
		}

		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.TypeRequestCompleted, updated, actor, map[string]interface{}{
		"status":              updated.Status,
		"assigned_vehicle_id": vehicleID,
		"assigned_driver_id":  driverID,
		"comments":            comments,
	})
	return updated, nil
}

// Delete hard-deletes a request and its approvals
func (e *engineImpl) Delete(ctx context.Context, requestID int64, actor Actor) error {
	var prevStatus string

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.load(txCtx, requestID)
		if err != nil {
			return err
		}

		state := domainwf.State(req.Status)
		switch {
		case state == domainwf.StateDraft:
			if req.RequestorID != actor.UserID {
				return fmt.Errorf("%w: only the requestor may delete a draft", ErrNotOwner)
			}
		case state.IsTerminal():
			steward, err := e.resolver.IsStewardApprover(txCtx, actor)
			if err != nil {
				return err
			}
			if !steward {
				return fmt.Errorf("%w: terminal requests are deleted by administrators or steward approvers", ErrNotAuthorized)
			}
		default:
			return fmt.Errorf("%w: cannot delete a request in status %s", ErrInvalidState, req.Status)
		}

		if err := e.approvals.DeleteByRequestID(txCtx, req.ID); err != nil {
			return err
		}
		if err := e.requests.Delete(txCtx, req.ID); err != nil {
			return err
		}

		prevStatus = req.Status
		return nil
	})
	if err != nil {
		return err
	}

	if e.dispatcher != nil {
		e.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeRequestDeleted, requestID, actor.UserID, map[string]interface{}{
			"previous_status": prevStatus,
		}))
	}
	return nil
}

// AssignVerifier opens the verification lane of a vehicle request
func (e *engineImpl) AssignVerifier(ctx context.Context, requestID int64, actor Actor, verifierID string) (*entity.Request, error) {
	if strings.TrimSpace(verifierID) == "" {
		return nil, fmt.Errorf("%w: verifier id is required", ErrValidation)
	}

	var updated *entity.Request

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.load(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.Kind != entity.KindVehicle || req.Vehicle == nil {
			return fmt.Errorf("%w: verification applies to vehicle requests", ErrInvalidState)
		}

		steward, err := e.resolver.IsStewardApprover(txCtx, actor)
		if err != nil {
			return err
		}
		if !steward {
			return fmt.Errorf("%w: assigning a verifier requires steward authority", ErrNotAuthorized)
		}

		switch req.Vehicle.VerificationStatus {
		case "", entity.VerificationNone, entity.VerificationPending:
		default:
			return fmt.Errorf("%w: verification already decided (%s)", ErrInvalidState, req.Vehicle.VerificationStatus)
		}

		verifier, err := e.users.GetByID(txCtx, verifierID)
		if err != nil {
			return fmt.Errorf("get verifier: %w", err)
		}
		if verifier == nil || !verifier.Active {
			return fmt.Errorf("%w: verifier %s not available", ErrValidation, verifierID)
		}

		req.Vehicle.VerifierID = verifierID
		req.Vehicle.VerificationStatus = entity.VerificationPending

		if err := e.requests.SaveStatus(txCtx, req, req.Version); err != nil {
			return err
		}

		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.TypeVerifierAssigned, updated, actor, map[string]interface{}{
		"verifier_id": verifierID,
	})
	return updated, nil
}

// Verify records the assigned verifier's decision
func (e *engineImpl) Verify(ctx context.Context, requestID int64, actor Actor, approve bool, comments string) (*entity.Request, error) {
	var updated *entity.Request

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.load(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.Kind != entity.KindVehicle || req.Vehicle == nil {
			return fmt.Errorf("%w: verification applies to vehicle requests", ErrInvalidState)
		}
		if req.Vehicle.VerificationStatus != entity.VerificationPending {
			return fmt.Errorf("%w: verification is not pending", ErrInvalidState)
		}
		if req.Vehicle.VerifierID != actor.UserID {
			return fmt.Errorf("%w: only the assigned verifier may verify", ErrNotAuthorized)
		}

		if approve {
			req.Vehicle.VerificationStatus = entity.VerificationVerified
		} else {
			req.Vehicle.VerificationStatus = entity.VerificationDeclined
		}

		// Main status and pending set are untouched: verification is an
		// advisory parallel lane.
		if err := e.requests.SaveStatus(txCtx, req, req.Version); err != nil {
			return err
		}

		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.TypeRequestVerified, updated, actor, map[string]interface{}{
		"verification_status": updated.Vehicle.VerificationStatus,
		"comments":            comments,
	})
	return updated, nil
}

// load fetches a request, mapping a missing row to ErrNotFound
func (e *engineImpl) load(ctx context.Context, id int64) (*entity.Request, error) {
	req, err := e.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return req, nil
}

// requireActing enforces the uniform authorization rule for stage actions:
// the status must not be terminal and the actor must be in the pending set.
func (e *engineImpl) requireActing(req *entity.Request, actor Actor) error {
	if domainwf.State(req.Status).IsTerminal() {
		return fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
	}
	if !req.IsPendingFor(actor.UserID) {
		return fmt.Errorf("%w: %s is not in the pending approver set", ErrNotAuthorized, actor.UserID)
	}
	return nil
}

// fire runs the trigger through the request's machine and applies the new
// status, translating machine failures into the engine taxonomy.
func (e *engineImpl) fire(ctx context.Context, req *entity.Request, trigger domainwf.Trigger) error {
	machine, err := MachineFor(req.Kind, req.Status)
	if err != nil {
		return err
	}
	if err := machine.Fire(ctx, trigger); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	req.Status = machine.State().String()
	return nil
}

// decideApproval finalizes the stage's pending approval, or records the
// decision directly when no pending row exists (steward short-circuit).
func (e *engineImpl) decideApproval(ctx context.Context, requestID int64, stage, approverID, decision, comments string) error {
	if stage == "" {
		return nil
	}
	pending, err := e.approvals.GetPendingByStage(ctx, requestID, stage)
	if err != nil {
		return fmt.Errorf("get pending approval: %w", err)
	}
	if pending != nil {
		return e.approvals.Decide(ctx, pending.ID, approverID, decision, comments)
	}

	now := time.Now()
	return e.approvals.Create(ctx, &entity.Approval{
		RequestID:  requestID,
		Stage:      stage,
		ApproverID: approverID,
		Decision:   decision,
		Comments:   comments,
		DecidedAt:  &now,
		CreatedAt:  now,
	})
}

// ensurePendingApproval creates the stage's pending approval row if the
// request does not already have one.
func (e *engineImpl) ensurePendingApproval(ctx context.Context, requestID int64, stage string) error {
	existing, err := e.approvals.GetPendingByStage(ctx, requestID, stage)
	if err != nil {
		return fmt.Errorf("get pending approval: %w", err)
	}
	if existing != nil {
		return nil
	}
	return e.approvals.Create(ctx, &entity.Approval{
		RequestID: requestID,
		Stage:     stage,
		Decision:  entity.DecisionPending,
		CreatedAt: time.Now(),
	})
}

// stageFor maps an awaiting-action status to the approval stage acting on it
func stageFor(kind entity.RequestKind, state domainwf.State) string {
	switch state {
	case domainwf.StateSubmitted:
		return entity.StageDepartment
	case domainwf.StateDepartmentApproved:
		if kind == entity.KindVehicle {
			return entity.StageCompletion
		}
		return entity.StageITManager
	case domainwf.StateITManagerApproved, domainwf.StateServiceDeskProcessing:
		return entity.StageServiceDesk
	default:
		return ""
	}
}

// emit dispatches an audit event without blocking the caller
func (e *engineImpl) emit(ctx context.Context, evtType event.Type, req *entity.Request, actor Actor, payload map[string]interface{}) {
	if e.dispatcher == nil || req == nil {
		return
	}
	e.dispatcher.DispatchAsync(ctx, event.NewEvent(evtType, req.ID, actor.UserID, payload))
}
