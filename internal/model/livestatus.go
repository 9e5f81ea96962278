package model

import (
	"fmt"
	"time"
)

// StopLiveStatus is the backend's live prediction feed for one stop on one
// route. The prediction itself (ETA, predicted occupancy, overflow flags)
// is computed server-side; the client treats the numbers as opaque truth.
type StopLiveStatus struct {
	Route      Route     `json:"route"`
	TargetStop Stop      `json:"target_stop"`
	Buses      []LiveBus `json:"buses"`
}

// LiveBus is one approaching bus in a stop's live status feed.
type LiveBus struct {
	ScheduleID                int     `json:"schedule_id"`
	NumberPlate               string  `json:"number_plate"`
	EtaMinutes                float64 `json:"eta_minutes"`
	StopsAway                 int     `json:"stops_away"`
	Capacity                  int     `json:"capacity"`
	PredictedPassengersAtStop int     `json:"predicted_passengers_at_stop"`
	AvailableSeatsAtStop      int     `json:"available_seats_at_stop"`
	IsSpareTrip               bool    `json:"is_spare_trip"`
	WillOverflowLater         bool    `json:"will_overflow_later"`
}

// NearbyBus is one running bus within the search radius of a location
// query, sorted nearest first by the backend.
type NearbyBus struct {
	ID                 int        `json:"id"`
	NumberPlate        string     `json:"number_plate"`
	Capacity           int        `json:"capacity"`
	CurrentLatitude    float64    `json:"current_latitude,string"`
	CurrentLongitude   float64    `json:"current_longitude,string"`
	LastLocationUpdate *time.Time `json:"last_location_update"`
	IsRunning          bool       `json:"is_running"`
	Route              *Route     `json:"route"`
	DistanceKm         float64    `json:"distance_km"`
}

// StatusText renders the predicted seat situation for display. A bus with
// unknown capacity never divides by zero.
func (b LiveBus) StatusText() string {
	if b.Capacity == 0 {
		return "No seat data"
	}
	if b.AvailableSeatsAtStop <= 0 {
		return "FULL"
	}
	rate := float64(b.PredictedPassengersAtStop) / float64(b.Capacity) * 100
	switch {
	case rate >= fullThreshold:
		return "FULL"
	case rate >= fillingUpThreshold:
		return "FILLING UP"
	default:
		return fmt.Sprintf("%d seats free", b.AvailableSeatsAtStop)
	}
}
