package model

import "time"

// Occupancy thresholds, in percent of total seats.
const (
	fillingUpThreshold = 50
	fullThreshold      = 80
)

// Bus represents a physical vehicle in the fleet.
type Bus struct {
	ID          int     `json:"id"`
	NumberPlate string  `json:"number_plate"`
	Capacity    int     `json:"capacity"`
	Mileage     float64 `json:"mileage"`
	ServiceType string  `json:"service_type"` // all_stop, limited_stop, express
	IsActive    bool    `json:"is_active"`
}

// Driver is the subset of driver account data the backend exposes on a schedule.
type Driver struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Schedule is one trip of a bus on a route on a specific date.
//
// Schedules are immutable value objects: every update produces a new
// Schedule, never an in-place field mutation. That keeps concurrent
// completions from observing half-updated state.
type Schedule struct {
	ID            int    `json:"id"`
	Route         Route  `json:"route"`
	Bus           Bus    `json:"bus"`
	Driver        Driver `json:"driver"`
	Date          string `json:"date"`           // YYYY-MM-DD
	DepartureTime string `json:"departure_time"` // HH:MM:SS
	ArrivalTime   string `json:"arrival_time"`   // HH:MM:SS
	TotalSeats    int    `json:"total_seats"`
	AvailableSeats int   `json:"available_seats"`

	// Live fields reported by the driver; nil until the first report.
	CurrentPassengers   *int       `json:"current_passengers"`
	LastPassengerUpdate *time.Time `json:"last_passenger_update"`

	CurrentStopSequence *int    `json:"current_stop_sequence"`
	CurrentStopName     *string `json:"current_stop_name"`
	NextStopSequence    *int    `json:"next_stop_sequence"`
	NextStopName        *string `json:"next_stop_name"`

	IsSpareTrip bool `json:"is_spare_trip"`
}

// LivePassengers returns the live passenger count: the driver-reported
// count when present, otherwise the booking-derived count. The result is
// always within [0, TotalSeats].
func (s Schedule) LivePassengers() int {
	n := s.TotalSeats - s.AvailableSeats
	if s.CurrentPassengers != nil {
		n = *s.CurrentPassengers
	}
	return clampCount(n, s.TotalSeats)
}

// OccupancyRate returns live occupancy as a percentage of total seats.
func (s Schedule) OccupancyRate() float64 {
	if s.TotalSeats <= 0 {
		return 0
	}
	return float64(s.LivePassengers()) / float64(s.TotalSeats) * 100
}

// OccupancyStatus buckets the occupancy rate for display. A schedule with
// no seats left is FULL regardless of the rate.
func (s Schedule) OccupancyStatus() string {
	if s.AvailableSeats == 0 {
		return "FULL"
	}
	switch rate := s.OccupancyRate(); {
	case rate >= fullThreshold:
		return "FULL"
	case rate >= fillingUpThreshold:
		return "FILLING UP"
	default:
		return "AVAILABLE"
	}
}

// WithPassengerCount returns a copy of s carrying the given confirmed live
// count and the matching available-seat figure.
func (s Schedule) WithPassengerCount(count int, at time.Time) Schedule {
	count = clampCount(count, s.TotalSeats)
	s.CurrentPassengers = &count
	s.LastPassengerUpdate = &at
	s.AvailableSeats = s.TotalSeats - count
	return s
}

func clampCount(n, capacity int) int {
	if n < 0 {
		return 0
	}
	if capacity >= 0 && n > capacity {
		return capacity
	}
	return n
}
