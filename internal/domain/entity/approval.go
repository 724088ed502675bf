package entity

import "time"

// Approval records a single approval-stage decision for a request.
// At most one pending approval exists per active stage; a decided
// approval is immutable except for administrative correction.
type Approval struct {
	ID         int64      `json:"id"`
	RequestID  int64      `json:"request_id"`
	Stage      string     `json:"stage"`
	ApproverID string     `json:"approver_id"`
	Decision   string     `json:"decision"`
	Comments   string     `json:"comments,omitempty"`
	Signature  string     `json:"signature,omitempty"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
