package entity

import "time"

// User is an actor known to the workflow. Role and department together
// determine transition authority.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Role         string    `json:"role"`
	DepartmentID int64     `json:"department_id"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Department is an organizational unit. The vehicle-steward flag grants
// its approvers elevated authority over all vehicle requests.
type Department struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	ParentID         *int64    `json:"parent_id,omitempty"`
	IsVehicleSteward bool      `json:"is_vehicle_steward"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
}
