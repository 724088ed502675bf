package workflow

import (
	"time"

	"github.com/svcflow/servicedesk/internal/domain/entity"
)

// VerificationPolicy decides whether a vehicle request should be flagged
// for the verification lane on submission. The trigger condition is a
// business policy, not a structural rule of the state machine, so it is
// injectable.
type VerificationPolicy func(details *entity.VehicleDetails) bool

// SundayTravelPolicy flags trips whose date range includes a Sunday.
func SundayTravelPolicy(details *entity.VehicleDetails) bool {
	if details == nil || details.DepartureDate.IsZero() {
		return false
	}
	end := details.ReturnDate
	if end.IsZero() || end.Before(details.DepartureDate) {
		end = details.DepartureDate
	}
	// A range spanning a week necessarily includes a Sunday
	if end.Sub(details.DepartureDate) >= 6*24*time.Hour {
		return true
	}
	for d := details.DepartureDate; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Sunday {
			return true
		}
	}
	return false
}

// NoVerificationPolicy never flags a request.
func NoVerificationPolicy(*entity.VehicleDetails) bool { return false }
