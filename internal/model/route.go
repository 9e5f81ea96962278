package model

// Route is a complete bus route from origin to destination.
type Route struct {
	ID            int     `json:"id"`
	Number        string  `json:"number"`
	Name          string  `json:"name"`
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	TotalDistance float64 `json:"total_distance,string,omitempty"`
	Stops         []Stop  `json:"stops,omitempty"` // ordered by Sequence, 1-based
}

// Stop is a single stop along a route. Immutable once fetched.
type Stop struct {
	ID                 int     `json:"id"`
	Name               string  `json:"name"`
	Sequence           int     `json:"sequence"`
	DistanceFromOrigin float64 `json:"distance_from_origin,string,omitempty"`
	IsLimitedStop      bool    `json:"is_limited_stop"`
}

// StopBySequence returns the stop with the given sequence, if present.
func (r Route) StopBySequence(seq int) (Stop, bool) {
	for _, s := range r.Stops {
		if s.Sequence == seq {
			return s, true
		}
	}
	return Stop{}, false
}

// StopByID returns the stop with the given id, if present.
func (r Route) StopByID(id int) (Stop, bool) {
	for _, s := range r.Stops {
		if s.ID == id {
			return s, true
		}
	}
	return Stop{}, false
}

// DropoffCandidates returns the stops a passenger boarding at boardingSeq
// may exit at: only stops strictly after the boarding stop are offered.
func DropoffCandidates(stops []Stop, boardingSeq int) []Stop {
	var out []Stop
	for _, s := range stops {
		if s.Sequence > boardingSeq {
			out = append(out, s)
		}
	}
	return out
}
