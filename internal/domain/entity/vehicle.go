package entity

import "time"

// Vehicle is a service vehicle assignable to a completed vehicle request
type Vehicle struct {
	ID          int64     `json:"id"`
	PlateNumber string    `json:"plate_number"`
	Model       string    `json:"model,omitempty"`
	Capacity    int       `json:"capacity,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Driver is a service driver assignable to a completed vehicle request
type Driver struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	LicenseNumber string    `json:"license_number,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}
