package model

import "time"

// PreInform statuses.
const (
	PreInformPending   = "pending"
	PreInformNoted     = "noted"
	PreInformCompleted = "completed"
	PreInformCancelled = "cancelled"
)

// PreInform is a passenger's advance declaration of intended travel,
// consumed upstream for demand prediction.
type PreInform struct {
	ID             int       `json:"id"`
	RouteID        int       `json:"route"`
	RouteDetails   *Route    `json:"route_details,omitempty"`
	DateOfTravel   string    `json:"date_of_travel"` // YYYY-MM-DD
	DesiredTime    string    `json:"desired_time"`   // HH:MM:SS
	BoardingStopID int       `json:"boarding_stop"`
	DropoffStopID  int       `json:"dropoff_stop"`
	BoardingStop   *Stop     `json:"stop_details,omitempty"`
	DropoffStop    *Stop     `json:"dropoff_stop_details,omitempty"`
	PassengerCount int       `json:"passenger_count"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Cancellable reports whether the pre-inform may still be cancelled:
// only while pending and before the travel date has passed.
func (p PreInform) Cancellable(today string) bool {
	return p.Status == PreInformPending && p.DateOfTravel >= today
}

// PreInformDraft is a pre-inform being assembled locally, with the
// boarding and drop-off stops already resolved against the route.
type PreInformDraft struct {
	RouteID        int
	DateOfTravel   string // YYYY-MM-DD
	DesiredTime    string // HH:MM[:SS]
	BoardingStop   Stop
	DropoffStop    Stop
	PassengerCount int
}

// Validate applies the stop-ordering rule before any submission: the
// drop-off stop must come strictly after the boarding stop.
func (d PreInformDraft) Validate() error {
	if d.RouteID <= 0 {
		return &ValidationError{Field: "route", Reason: "route is required"}
	}
	if d.DateOfTravel == "" {
		return &ValidationError{Field: "date_of_travel", Reason: "travel date is required"}
	}
	if d.PassengerCount <= 0 {
		return &ValidationError{Field: "passenger_count", Reason: "at least one passenger required"}
	}
	if d.BoardingStop.ID == 0 {
		return &ValidationError{Field: "boarding_stop", Reason: "boarding stop is required"}
	}
	if d.DropoffStop.ID == 0 {
		return &ValidationError{Field: "dropoff_stop", Reason: "exit stop is required"}
	}
	if d.DropoffStop.Sequence <= d.BoardingStop.Sequence {
		return &ValidationError{Field: "dropoff_stop", Reason: "exit stop must come after the boarding stop"}
	}
	return nil
}

// ValidationError is a client-side rejection raised before a request is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Reason }
