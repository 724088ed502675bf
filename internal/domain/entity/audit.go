package entity

import "time"

// AuditLogEntry is one row of the immutable change trail
type AuditLogEntry struct {
	ID         int64     `json:"id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notification is a queued message for an approver whose pending set
// gained a request. Delivery is a separate concern; the queue only
// records what should be sent.
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID string    `json:"recipient_id"`
	RequestID   int64     `json:"request_id"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	ErrorMsg    string    `json:"error_msg,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
