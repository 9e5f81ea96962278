// Package api implements the REST client for the transit backend, the
// authoritative owner of all schedule and prediction state.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"buspulse/internal/model"
)

// Client talks to the transit backend. The session credential is opaque
// here; acquiring and renewing it is out of scope.
type Client struct {
	base    string
	session string // full cookie value, e.g. "sessionid=..."
	http    *http.Client
}

// New builds a client for the given base URL (scheme://host[:port]).
func New(baseURL, sessionCookie string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL: %q", baseURL)
	}
	return &Client{
		base:    u.Scheme + "://" + u.Host,
		session: sessionCookie,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// ListSchedules fetches schedules, optionally filtered to one route and
// one day (YYYY-MM-DD). The backend defaults to today-and-future when no
// date is given.
func (c *Client) ListSchedules(ctx context.Context, routeID int, date string) ([]model.Schedule, error) {
	q := url.Values{}
	if routeID > 0 {
		q.Set("route_id", strconv.Itoa(routeID))
	}
	if date != "" {
		q.Set("date", date)
	}
	var out []model.Schedule
	if err := c.doJSON(ctx, http.MethodGet, "/api/schedules/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDriverSchedules fetches the logged-in driver's own schedules.
// Returns ErrPermissionDenied for non-driver accounts.
func (c *Client) ListDriverSchedules(ctx context.Context) ([]model.Schedule, error) {
	var out []model.Schedule
	if err := c.doJSON(ctx, http.MethodGet, "/api/schedules/driver/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PassengerCountResult carries the confirmed counts the backend echoes
// after a passenger-count update.
type PassengerCountResult struct {
	CurrentPassengers int `json:"current_passengers"`
	AvailableSeats    int `json:"available_seats"`
}

// UpdatePassengerCount reports the live passenger count for a schedule.
// Only the assigned driver may call this.
func (c *Client) UpdatePassengerCount(ctx context.Context, scheduleID, count int) (PassengerCountResult, error) {
	body := map[string]any{"schedule_id": scheduleID, "count": count}
	var out PassengerCountResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/schedules/passenger-count/", nil, body, &out); err != nil {
		return PassengerCountResult{}, err
	}
	return out, nil
}

// UpdateCurrentStop asserts the schedule's current stop and returns the
// updated schedule, including the server-computed next stop.
func (c *Client) UpdateCurrentStop(ctx context.Context, scheduleID, stopSequence int) (model.Schedule, error) {
	if stopSequence <= 0 {
		return model.Schedule{}, fmt.Errorf("stop sequence must be positive: %w", ErrValidation)
	}
	body := map[string]any{"schedule_id": scheduleID, "stop_sequence": stopSequence}
	var out struct {
		Schedule model.Schedule `json:"schedule"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/schedules/current-stop/", nil, body, &out); err != nil {
		return model.Schedule{}, err
	}
	return out.Schedule, nil
}

// UpdateBusLocation reports a GPS fix for the bus running a schedule.
func (c *Client) UpdateBusLocation(ctx context.Context, busID int, lat, lon float64, scheduleID int) error {
	body := map[string]any{
		"bus_id":      busID,
		"latitude":    lat,
		"longitude":   lon,
		"schedule_id": scheduleID,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/buses/update-location/", nil, body, nil)
}

// GetLiveStatusForStop fetches the live prediction feed for one stop on a
// route: approaching buses with ETA and predicted occupancy.
func (c *Client) GetLiveStatusForStop(ctx context.Context, routeID, stopID int, date string) (model.StopLiveStatus, error) {
	q := url.Values{"stop_id": {strconv.Itoa(stopID)}}
	if date != "" {
		q.Set("date", date)
	}
	var out model.StopLiveStatus
	path := fmt.Sprintf("/api/routes/%d/live-status/", routeID)
	if err := c.doJSON(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return model.StopLiveStatus{}, err
	}
	return out, nil
}

// GetNearbyBuses fetches running buses within radiusKm of a location,
// nearest first. Buses silent for more than a few minutes are excluded
// server-side.
func (c *Client) GetNearbyBuses(ctx context.Context, lat, lon, radiusKm float64) ([]model.NearbyBus, error) {
	q := url.Values{
		"latitude":  {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	if radiusKm > 0 {
		q.Set("radius", strconv.FormatFloat(radiusKm, 'f', -1, 64))
	}
	var out struct {
		Buses []model.NearbyBus `json:"buses"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/buses/nearby/", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Buses, nil
}

// CreatePreInform validates the draft locally and submits it. The stop
// ordering rule is enforced before any request goes out.
func (c *Client) CreatePreInform(ctx context.Context, draft model.PreInformDraft) (model.PreInform, error) {
	if err := draft.Validate(); err != nil {
		return model.PreInform{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	body := map[string]any{
		"route":           draft.RouteID,
		"date_of_travel":  draft.DateOfTravel,
		"desired_time":    draft.DesiredTime,
		"boarding_stop":   draft.BoardingStop.ID,
		"dropoff_stop":    draft.DropoffStop.ID,
		"passenger_count": draft.PassengerCount,
	}
	var out model.PreInform
	if err := c.doJSON(ctx, http.MethodPost, "/api/preinforms/", nil, body, &out); err != nil {
		return model.PreInform{}, err
	}
	return out, nil
}

// CancelPreInform cancels a pending pre-inform.
func (c *Client) CancelPreInform(ctx context.Context, id int) error {
	path := fmt.Sprintf("/api/preinforms/%d/cancel/", id)
	return c.doJSON(ctx, http.MethodPost, path, nil, nil, nil)
}

// ListPreInforms fetches the passenger's own pre-informs.
func (c *Client) ListPreInforms(ctx context.Context) ([]model.PreInform, error) {
	var out []model.PreInform
	if err := c.doJSON(ctx, http.MethodGet, "/api/preinforms/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRoutes fetches routes, optionally filtered by origin/destination
// substring.
func (c *Client) ListRoutes(ctx context.Context, origin, destination string) ([]model.Route, error) {
	q := url.Values{}
	if origin != "" {
		q.Set("origin", origin)
	}
	if destination != "" {
		q.Set("destination", destination)
	}
	var out []model.Route
	if err := c.doJSON(ctx, http.MethodGet, "/api/routes/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRouteStops fetches a route's stops ordered by sequence.
func (c *Client) GetRouteStops(ctx context.Context, routeID int) ([]model.Stop, error) {
	var out struct {
		Stops []model.Stop `json:"stops"`
	}
	path := fmt.Sprintf("/api/routes/%d/stops/", routeID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Stops, nil
}

// Profile fetches the authenticated account, used for role detection.
func (c *Client) Profile(ctx context.Context) (model.Profile, error) {
	var out model.Profile
	if err := c.doJSON(ctx, http.MethodGet, "/api/profile/", nil, nil, &out); err != nil {
		return model.Profile{}, err
	}
	return out, nil
}

// CreateDemandAlert reports a crowd waiting at a stop.
func (c *Client) CreateDemandAlert(ctx context.Context, stopID, numberOfPeople int) (model.DemandAlert, error) {
	if numberOfPeople <= 0 {
		return model.DemandAlert{}, fmt.Errorf("number of people must be positive: %w", ErrValidation)
	}
	body := map[string]any{"stop": stopID, "number_of_people": numberOfPeople}
	var out model.DemandAlert
	if err := c.doJSON(ctx, http.MethodPost, "/api/demand-alerts/", nil, body, &out); err != nil {
		return model.DemandAlert{}, err
	}
	return out, nil
}

// ListDemandAlerts fetches demand alerts visible to the account.
func (c *Client) ListDemandAlerts(ctx context.Context) ([]model.DemandAlert, error) {
	var out []model.DemandAlert
	if err := c.doJSON(ctx, http.MethodGet, "/api/demand-alerts/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != "" {
		req.Header.Set("Cookie", c.session)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Connectivity failures are retryable by the user, never silently.
		return fmt.Errorf("%v: %w", err, ErrTransient)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", ErrTransient)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, errorDetail(raw))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorDetail pulls a human-readable message out of a backend error body.
func errorDetail(raw []byte) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return payload.Error
}
