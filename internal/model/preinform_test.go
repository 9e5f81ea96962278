package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeStopRoute() []Stop {
	return []Stop{
		{ID: 11, Name: "A", Sequence: 1},
		{ID: 12, Name: "B", Sequence: 2},
		{ID: 13, Name: "C", Sequence: 3},
	}
}

func TestDropoffCandidates(t *testing.T) {
	stops := threeStopRoute()

	got := DropoffCandidates(stops, 1)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Name)
	assert.Equal(t, "C", got[1].Name)

	// Boarding at the last stop leaves nowhere to go.
	assert.Empty(t, DropoffCandidates(stops, 3))

	// The boarding stop itself is never offered.
	for _, s := range DropoffCandidates(stops, 2) {
		assert.Greater(t, s.Sequence, 2)
	}
}

func TestPreInformDraftValidate(t *testing.T) {
	stops := threeStopRoute()
	valid := PreInformDraft{
		RouteID:        4,
		DateOfTravel:   "2026-09-01",
		DesiredTime:    "08:30",
		BoardingStop:   stops[0],
		DropoffStop:    stops[2],
		PassengerCount: 2,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*PreInformDraft)
	}{
		{"dropoff before boarding", func(d *PreInformDraft) { d.BoardingStop = stops[2]; d.DropoffStop = stops[0] }},
		{"dropoff equals boarding", func(d *PreInformDraft) { d.DropoffStop = d.BoardingStop }},
		{"missing route", func(d *PreInformDraft) { d.RouteID = 0 }},
		{"missing date", func(d *PreInformDraft) { d.DateOfTravel = "" }},
		{"zero passengers", func(d *PreInformDraft) { d.PassengerCount = 0 }},
		{"missing dropoff", func(d *PreInformDraft) { d.DropoffStop = Stop{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			err := d.Validate()
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestPreInformCancellable(t *testing.T) {
	p := PreInform{Status: PreInformPending, DateOfTravel: "2026-09-01"}
	assert.True(t, p.Cancellable("2026-08-25"))
	assert.False(t, p.Cancellable("2026-09-02"))

	p.Status = PreInformNoted
	assert.False(t, p.Cancellable("2026-08-25"))
}
