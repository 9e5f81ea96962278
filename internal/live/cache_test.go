package live

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buspulse/internal/model"
)

func TestSnapshotCacheReplaceAndFind(t *testing.T) {
	cache := NewSnapshotCache()

	_, ok := cache.Find(7)
	assert.False(t, ok, "empty cache finds nothing")
	assert.Equal(t, uint64(0), cache.Generation())

	cache.Replace([]model.Schedule{testSchedule(7, 40, 40), testSchedule(8, 30, 15)})
	assert.Equal(t, uint64(1), cache.Generation())

	s, ok := cache.Find(7)
	require.True(t, ok)
	assert.Equal(t, 40, s.TotalSeats)

	_, ok = cache.Find(99)
	assert.False(t, ok, "absent id is not an error")

	// A replacement is total: schedules missing from the new list vanish.
	cache.Replace([]model.Schedule{testSchedule(8, 30, 10)})
	_, ok = cache.Find(7)
	assert.False(t, ok)
	assert.Equal(t, uint64(2), cache.Generation())
}

func TestSnapshotCacheReplaceOne(t *testing.T) {
	cache := NewSnapshotCache()
	cache.Replace([]model.Schedule{testSchedule(7, 40, 40), testSchedule(8, 30, 15)})

	updated := testSchedule(7, 40, 12)
	cache.ReplaceOne(updated)

	s, ok := cache.Find(7)
	require.True(t, ok)
	assert.Equal(t, 12, s.AvailableSeats)
	assert.Len(t, cache.Snapshot(), 2)

	// Unknown schedules are appended, not lost.
	cache.ReplaceOne(testSchedule(9, 50, 50))
	assert.Len(t, cache.Snapshot(), 3)
}

func TestSnapshotCacheSnapshotIsCopy(t *testing.T) {
	cache := NewSnapshotCache()
	cache.Replace([]model.Schedule{testSchedule(7, 40, 40)})

	snap := cache.Snapshot()
	snap[0].AvailableSeats = 1

	s, _ := cache.Find(7)
	assert.Equal(t, 40, s.AvailableSeats, "mutating a snapshot must not touch the cache")
}

func TestSnapshotCacheSubscribe(t *testing.T) {
	cache := NewSnapshotCache()
	ch, unsubscribe := cache.Subscribe()
	defer unsubscribe()

	cache.Replace([]model.Schedule{testSchedule(7, 40, 40)})
	select {
	case <-ch:
	default:
		t.Fatal("expected a change notification after Replace")
	}

	// Back-to-back replacements coalesce; the signal stays pending.
	cache.Replace(nil)
	cache.Replace(nil)
	select {
	case <-ch:
	default:
		t.Fatal("expected a pending notification")
	}

	unsubscribe()
	cache.Replace(nil)
	select {
	case <-ch:
		t.Fatal("unsubscribed channel must not receive")
	default:
	}
}

func TestStatusCache(t *testing.T) {
	sc := NewStatusCache()
	_, ok := sc.Latest()
	assert.False(t, ok)

	sc.Set(model.StopLiveStatus{TargetStop: model.Stop{ID: 12, Name: "B", Sequence: 2}})
	st, ok := sc.Latest()
	require.True(t, ok)
	assert.Equal(t, "B", st.TargetStop.Name)
}
