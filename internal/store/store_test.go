package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buspulse/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)

	count := 12
	schedules := []model.Schedule{{
		ID:                7,
		Route:             model.Route{ID: 4, Number: "101"},
		Date:              "2026-08-25",
		TotalSeats:        40,
		AvailableSeats:    28,
		CurrentPassengers: &count,
	}}
	require.NoError(t, s.SaveSnapshot(4, "2026-08-25", schedules))

	got, err := s.LoadSnapshot(4, "2026-08-25")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].ID)
	require.NotNil(t, got[0].CurrentPassengers)
	assert.Equal(t, 12, *got[0].CurrentPassengers)
}

func TestLoadSnapshotMissingIsNotAnError(t *testing.T) {
	s := openTestStore(t)

	got, err := s.LoadSnapshot(99, "2026-08-25")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotKeyedByRouteAndDate(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveSnapshot(4, "2026-08-25", []model.Schedule{{ID: 7}}))
	require.NoError(t, s.SaveSnapshot(4, "2026-08-26", []model.Schedule{{ID: 8}}))
	require.NoError(t, s.SaveSnapshot(5, "2026-08-25", []model.Schedule{{ID: 9}}))

	got, err := s.LoadSnapshot(4, "2026-08-25")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].ID)

	// A new poll for the same route and day overwrites in full.
	require.NoError(t, s.SaveSnapshot(4, "2026-08-25", []model.Schedule{{ID: 10}}))
	got, err = s.LoadSnapshot(4, "2026-08-25")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].ID)
}

func TestPreInformReceipts(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SavePreInform(model.PreInform{ID: 55, RouteID: 4, Status: model.PreInformPending}))
	require.NoError(t, s.SavePreInform(model.PreInform{ID: 56, RouteID: 4, Status: model.PreInformNoted}))

	got, err := s.ListPreInforms()
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, s.DeletePreInform(55))
	got, err = s.ListPreInforms()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 56, got[0].ID)

	// Deleting an unknown receipt is a no-op.
	assert.NoError(t, s.DeletePreInform(999))
}
