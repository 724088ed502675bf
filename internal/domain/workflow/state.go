package workflow

// State represents a workflow state in the request lifecycle
type State string

const (
	StateDraft                 State = "DRAFT"
	StateSubmitted             State = "SUBMITTED"
	StateDepartmentApproved    State = "DEPARTMENT_APPROVED"
	StateITManagerApproved     State = "IT_MANAGER_APPROVED"
	StateServiceDeskProcessing State = "SERVICE_DESK_PROCESSING"
	StateCompleted             State = "COMPLETED"
	StateDepartmentDeclined    State = "DEPARTMENT_DECLINED"
	StateITManagerDeclined     State = "IT_MANAGER_DECLINED"
	StateDeclined              State = "DECLINED"
	StateReturned              State = "RETURNED"
)

var validStates = map[State]bool{
	StateDraft:                 true,
	StateSubmitted:             true,
	StateDepartmentApproved:    true,
	StateITManagerApproved:     true,
	StateServiceDeskProcessing: true,
	StateCompleted:             true,
	StateDepartmentDeclined:    true,
	StateITManagerDeclined:     true,
	StateDeclined:              true,
	StateReturned:              true,
}

var terminalStates = map[State]bool{
	StateCompleted:          true,
	StateDepartmentDeclined: true,
	StateITManagerDeclined:  true,
	StateDeclined:           true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsDeclined returns true if the state is one of the declined terminal states
func (s State) IsDeclined() bool {
	return s == StateDeclined || s == StateDepartmentDeclined || s == StateITManagerDeclined
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
