package live

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buspulse/internal/model"
)

func newReconcilerFixture(t *testing.T, fb *fakeBackend) (*PassengerReconciler, *SnapshotCache) {
	t.Helper()
	cache := NewSnapshotCache()
	cache.Replace([]model.Schedule{testSchedule(7, 40, 40)})
	return NewPassengerReconciler(fb, cache, nil), cache
}

func waitSettled(t *testing.T, rec *PassengerReconciler, scheduleID int) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, dirty, _ := rec.Pending(scheduleID)
		return !dirty
	}, time.Second, time.Millisecond, "edit never settled")
}

func TestAdjustClampsToCapacity(t *testing.T) {
	fb := &fakeBackend{}
	rec, _ := newReconcilerFixture(t, fb)
	ctx := context.Background()

	count, err := rec.Adjust(ctx, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = rec.Adjust(ctx, 7, -100)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "large negative delta clamps to zero")

	count, err = rec.Adjust(ctx, 7, 1000)
	require.NoError(t, err)
	assert.Equal(t, 40, count, "large positive delta clamps to capacity")

	waitSettled(t, rec, 7)
}

func TestAdjustUnknownSchedule(t *testing.T) {
	fb := &fakeBackend{}
	rec, _ := newReconcilerFixture(t, fb)

	_, err := rec.Adjust(context.Background(), 999, 1)
	assert.Error(t, err)
	assert.Empty(t, fb.countCallsSnapshot(), "no sync for an unknown schedule")
}

func TestEditsDuringFlightCoalesce(t *testing.T) {
	fb := &fakeBackend{
		countStarted: make(chan struct{}),
		countGate:    make(chan struct{}),
	}
	rec, _ := newReconcilerFixture(t, fb)
	ctx := context.Background()

	_, err := rec.Adjust(ctx, 7, 1)
	require.NoError(t, err)
	<-fb.countStarted // first sync in flight, carrying count=1

	// Two more edits land while the sync is in flight.
	_, err = rec.Adjust(ctx, 7, 1)
	require.NoError(t, err)
	_, err = rec.Adjust(ctx, 7, 1)
	require.NoError(t, err)

	fb.countGate <- struct{}{} // release first sync
	<-fb.countStarted          // exactly one follow-up starts
	fb.countGate <- struct{}{}

	waitSettled(t, rec, 7)

	calls := fb.countCallsSnapshot()
	require.Len(t, calls, 2, "coalesced edits produce one follow-up, not one sync per tap")
	assert.Equal(t, 1, calls[0].count)
	assert.Equal(t, 3, calls[1].count, "follow-up carries the cumulative count")
}

func TestFailedSyncRetainsCountUntilRetry(t *testing.T) {
	syncErr := errors.New("backend unreachable")
	fb := &fakeBackend{countErr: syncErr}
	rec, _ := newReconcilerFixture(t, fb)
	ctx := context.Background()

	surfaced := make(chan error, 1)
	rec.OnError = func(scheduleID int, err error) { surfaced <- err }

	_, err := rec.Adjust(ctx, 7, 2)
	require.NoError(t, err)

	select {
	case err := <-surfaced:
		assert.ErrorIs(t, err, syncErr)
	case <-time.After(time.Second):
		t.Fatal("sync failure never surfaced")
	}

	count, dirty, lastErr := rec.Pending(7)
	assert.Equal(t, 2, count, "failed sync keeps the driver's count")
	assert.True(t, dirty)
	assert.ErrorIs(t, lastErr, syncErr)
	assert.Len(t, fb.countCallsSnapshot(), 1, "no automatic retry")

	// Manual retry succeeds once the backend is back.
	fb.mu.Lock()
	fb.countErr = nil
	fb.mu.Unlock()
	rec.Retry(ctx, 7)
	waitSettled(t, rec, 7)

	calls := fb.countCallsSnapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, 2, calls[1].count)
}

func TestReconcilePendingEditWinsOverStalePoll(t *testing.T) {
	fb := &fakeBackend{
		countStarted: make(chan struct{}),
		countGate:    make(chan struct{}),
	}
	rec, _ := newReconcilerFixture(t, fb)
	ctx := context.Background()

	// Poll stamped before the edit.
	pollSeq := rec.StampPoll()

	_, err := rec.Adjust(ctx, 7, 5)
	require.NoError(t, err)
	<-fb.countStarted // hold the sync in flight

	// The stale poll reports an older server count.
	stale := testSchedule(7, 40, 40).WithPassengerCount(1, time.Now())
	merged := rec.Reconcile(pollSeq, []model.Schedule{stale})
	require.Len(t, merged, 1)
	assert.Equal(t, 5, merged[0].LivePassengers(), "pending edit must not be clobbered")

	fb.countGate <- struct{}{}
	waitSettled(t, rec, 7)

	// A poll stamped after the confirmed edit lets server truth take over.
	newSeq := rec.StampPoll()
	fresh := testSchedule(7, 40, 40).WithPassengerCount(5, time.Now())
	merged = rec.Reconcile(newSeq, []model.Schedule{fresh})
	assert.Equal(t, 5, merged[0].LivePassengers())

	_, dirty, _ := rec.Pending(7)
	assert.False(t, dirty)
}

func TestConfirmedSyncUpdatesCache(t *testing.T) {
	fb := &fakeBackend{}
	rec, cache := newReconcilerFixture(t, fb)
	ctx := context.Background()

	confirmed := make(chan int, 1)
	rec.OnConfirmed = func(scheduleID, count int) { confirmed <- count }

	_, err := rec.Adjust(ctx, 7, 4)
	require.NoError(t, err)

	select {
	case count := <-confirmed:
		assert.Equal(t, 4, count)
	case <-time.After(time.Second):
		t.Fatal("confirmation never fired")
	}

	require.Eventually(t, func() bool {
		s, ok := cache.Find(7)
		return ok && s.CurrentPassengers != nil && *s.CurrentPassengers == 4
	}, time.Second, time.Millisecond)

	s, _ := cache.Find(7)
	assert.Equal(t, 36, s.AvailableSeats)
	assert.NotNil(t, s.LastPassengerUpdate)
}
