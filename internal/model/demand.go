package model

import "time"

// DemandAlert statuses.
const (
	DemandReported   = "reported"
	DemandVerified   = "verified"
	DemandDispatched = "dispatched"
	DemandResolved   = "resolved"
	DemandExpired    = "expired"
)

// DemandAlert is a passenger report of a crowd waiting at a stop. The
// backend may also generate these itself from pre-informs.
type DemandAlert struct {
	ID             int       `json:"id"`
	StopID         int       `json:"stop"`
	StopDetails    *Stop     `json:"stop_details,omitempty"`
	NumberOfPeople int       `json:"number_of_people"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Active reports whether the alert is still actionable.
func (a DemandAlert) Active(now time.Time) bool {
	switch a.Status {
	case DemandReported, DemandVerified, DemandDispatched:
		return a.ExpiresAt.After(now)
	default:
		return false
	}
}

// Profile is the authenticated user's account summary, used to decide
// which affordances (driver vs passenger) apply.
type Profile struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"` // passenger, driver, zonal_admin, admin
}

// IsDriver reports whether driver-only operations are available.
func (p Profile) IsDriver() bool { return p.Role == "driver" }
