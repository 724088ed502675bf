package entity

// Role constants for User
const (
	RoleRequestor          = "requestor"
	RoleDepartmentApprover = "department_approver"
	RoleITManager          = "it_manager"
	RoleServiceDesk        = "service_desk"
	RoleSuperAdministrator = "super_administrator"
)

// ValidRoles lists every role the workflow recognizes
var ValidRoles = map[string]bool{
	RoleRequestor:          true,
	RoleDepartmentApprover: true,
	RoleITManager:          true,
	RoleServiceDesk:        true,
	RoleSuperAdministrator: true,
}

// Approval stage constants
const (
	StageDepartment  = "department"
	StageITManager   = "it_manager"
	StageServiceDesk = "service_desk"
	StageCompletion  = "completion"
)

// Approval decision constants
const (
	DecisionPending  = "pending"
	DecisionApproved = "approved"
	DecisionDeclined = "declined"
	DecisionReturned = "returned"
)

// Verification status constants for vehicle requests
const (
	VerificationNone     = "none"
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationDeclined = "declined"
)

// Return targets for the RETURN action
const (
	ReturnToRequestor          = "requestor"
	ReturnToDepartmentApprover = "department_approver"
)

// Notification status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Notification kind constants
const (
	NotificationKindApprovalNeeded     = "APPROVAL_NEEDED"
	NotificationKindRequestReturned    = "REQUEST_RETURNED"
	NotificationKindVerificationNeeded = "VERIFICATION_NEEDED"
)
