package workflow

import (
	"fmt"

	"github.com/svcflow/servicedesk/internal/domain/entity"
	domainwf "github.com/svcflow/servicedesk/internal/domain/workflow"
)

// BuildItemRequestMachine creates the transition table for IT equipment
// requests: a three-approval chain (department, IT manager, service desk)
// with stage-tagged decline states.
func BuildItemRequestMachine(initialState domainwf.State) domainwf.StateMachine {
	b := domainwf.NewBuilder()

	b.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSubmit, domainwf.StateSubmitted)

	b.Configure(domainwf.StateSubmitted).
		Permit(domainwf.TriggerApprove, domainwf.StateDepartmentApproved).
		Permit(domainwf.TriggerDecline, domainwf.StateDepartmentDeclined).
		Permit(domainwf.TriggerReturn, domainwf.StateReturned)

	b.Configure(domainwf.StateDepartmentApproved).
		Permit(domainwf.TriggerApprove, domainwf.StateITManagerApproved).
		Permit(domainwf.TriggerDecline, domainwf.StateITManagerDeclined).
		Permit(domainwf.TriggerReturn, domainwf.StateReturned)

	// Service desk may complete directly or park the request as
	// in-processing first; both paths end at COMPLETED.
	b.Configure(domainwf.StateITManagerApproved).
		Permit(domainwf.TriggerApprove, domainwf.StateCompleted).
		Permit(domainwf.TriggerStartProcessing, domainwf.StateServiceDeskProcessing)

	b.Configure(domainwf.StateServiceDeskProcessing).
		Permit(domainwf.TriggerApprove, domainwf.StateCompleted)

	b.Configure(domainwf.StateReturned).
		Permit(domainwf.TriggerSubmit, domainwf.StateSubmitted)

	return b.Build(initialState)
}

// BuildVehicleRequestMachine creates the transition table for service
// vehicle requests: a single department approval followed by completion,
// with the steward short-circuit from SUBMITTED straight to COMPLETED.
func BuildVehicleRequestMachine(initialState domainwf.State) domainwf.StateMachine {
	b := domainwf.NewBuilder()

	b.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSubmit, domainwf.StateSubmitted)

	b.Configure(domainwf.StateSubmitted).
		Permit(domainwf.TriggerApprove, domainwf.StateDepartmentApproved).
		Permit(domainwf.TriggerComplete, domainwf.StateCompleted).
		Permit(domainwf.TriggerDecline, domainwf.StateDeclined).
		Permit(domainwf.TriggerReturn, domainwf.StateReturned)

	b.Configure(domainwf.StateDepartmentApproved).
		Permit(domainwf.TriggerComplete, domainwf.StateCompleted).
		Permit(domainwf.TriggerDecline, domainwf.StateDeclined).
		Permit(domainwf.TriggerReturn, domainwf.StateReturned)

	b.Configure(domainwf.StateReturned).
		Permit(domainwf.TriggerSubmit, domainwf.StateSubmitted)

	return b.Build(initialState)
}

// MachineFor returns the machine for a request's kind, positioned at its
// current status.
func MachineFor(kind entity.RequestKind, status string) (domainwf.StateMachine, error) {
	state := domainwf.State(status)
	if !state.IsValid() {
		return nil, fmt.Errorf("%w: request has unknown status %q", ErrInvalidState, status)
	}

	switch kind {
	case entity.KindItem:
		return BuildItemRequestMachine(state), nil
	case entity.KindVehicle:
		return BuildVehicleRequestMachine(state), nil
	default:
		return nil, fmt.Errorf("%w: unknown request kind %q", ErrValidation, kind)
	}
}
