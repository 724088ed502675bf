package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestSubmitted        Type = "request.submitted"
	TypeRequestApproved         Type = "request.approved"
	TypeRequestDeclined         Type = "request.declined"
	TypeRequestReturned         Type = "request.returned"
	TypeRequestCompleted        Type = "request.completed"
	TypeRequestDeleted          Type = "request.deleted"
	TypeVerifierAssigned        Type = "request.verifier_assigned"
	TypeRequestVerified         Type = "request.verified"
	TypeRequestStatusChanged    Type = "request.status_changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestSubmitted,
		TypeRequestApproved,
		TypeRequestDeclined,
		TypeRequestReturned,
		TypeRequestCompleted,
		TypeRequestDeleted,
		TypeVerifierAssigned,
		TypeRequestVerified,
		TypeRequestStatusChanged:
		return true
	default:
		return false
	}
}
