package entity

import "time"

// RequestKind distinguishes the two request lifecycles
type RequestKind string

const (
	KindItem    RequestKind = "item"
	KindVehicle RequestKind = "vehicle"
)

// IsValid returns true if the kind is a known request kind
func (k RequestKind) IsValid() bool {
	return k == KindItem || k == KindVehicle
}

// String returns the string representation of the kind
func (k RequestKind) String() string {
	return string(k)
}

// Request is a service request moving through the approval workflow.
// Status is the single source of truth for lifecycle position;
// PendingApproverIDs is recomputed on every transition and is empty
// exactly when the request is in a draft, terminal, or requestor-owned state.
type Request struct {
	ID                 int64        `json:"id"`
	ReferenceCode      string       `json:"reference_code"`
	Kind               RequestKind  `json:"kind"`
	Status             string       `json:"status"`
	RequestorID        string       `json:"requestor_id"`
	DepartmentID       int64        `json:"department_id"`
	PendingApproverIDs []string     `json:"pending_approver_ids"`
	Item               *ItemDetails `json:"item,omitempty"`
	Vehicle            *VehicleDetails `json:"vehicle,omitempty"`

	// Version is the optimistic-concurrency counter; every committed
	// transition increments it.
	Version int64 `json:"version"`

	CreatedAt   time.Time  `json:"created_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsPendingFor reports whether userID is currently entitled to act on the request
func (r *Request) IsPendingFor(userID string) bool {
	for _, id := range r.PendingApproverIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ItemDetails carries the payload of an IT equipment request
type ItemDetails struct {
	Lines []ItemLine `json:"lines"`
	Notes string     `json:"notes,omitempty"`
}

// ItemLine is a single requested equipment item
type ItemLine struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Category    string `json:"category,omitempty"`
}

// VehicleDetails carries the payload and side-state of a service vehicle request
type VehicleDetails struct {
	Purpose       string    `json:"purpose"`
	Subtype       string    `json:"subtype,omitempty"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureDate time.Time `json:"departure_date"`
	ReturnDate    time.Time `json:"return_date"`
	Passengers    []string  `json:"passengers,omitempty"`

	// Verification lane, orthogonal to the main status
	VerificationStatus string `json:"verification_status"`
	VerifierID         string `json:"verifier_id,omitempty"`

	// Set by the completing approver
	AssignedVehicleID *int64 `json:"assigned_vehicle_id,omitempty"`
	AssignedDriverID  *int64 `json:"assigned_driver_id,omitempty"`
}
