package live

import (
	"context"
	"errors"
	"fmt"
	"log"

	"buspulse/internal/api"
)

// StopProgressTracker manages the driver's assertion of the current stop
// for an active schedule. The assertion is fire-and-confirm: on success
// the confirmed schedule replaces the cached entry and a full re-fetch is
// triggered, because the authoritative next stop is server-computed, not
// a local "sequence+1". Stop assertions and raw GPS fixes are independent
// channels and may disagree for a few seconds; that gap is accepted.
type StopProgressTracker struct {
	backend Backend
	cache   *SnapshotCache

	// Refetch triggers a full schedule re-fetch after a confirmed
	// assertion. Optional; typically the poller's PollNow.
	Refetch func(ctx context.Context)
}

func NewStopProgressTracker(backend Backend, cache *SnapshotCache) *StopProgressTracker {
	return &StopProgressTracker{backend: backend, cache: cache}
}

// SetCurrentStop asserts that the schedule's bus is at the given stop.
// Permission and auth failures are terminal for the action. Transient
// failures are returned for the user to retry, never retried here, so
// duplicate assertions cannot race each other.
func (t *StopProgressTracker) SetCurrentStop(ctx context.Context, scheduleID, stopSequence int) error {
	if stopSequence < 1 {
		return fmt.Errorf("stop sequence %d out of range: %w", stopSequence, api.ErrValidation)
	}

	confirmed, err := t.backend.UpdateCurrentStop(ctx, scheduleID, stopSequence)
	if err != nil {
		if errors.Is(err, api.ErrPermissionDenied) || errors.Is(err, api.ErrAuthRequired) {
			log.Printf("stop assertion rejected for schedule %d: %v", scheduleID, err)
		}
		return err
	}

	t.cache.ReplaceOne(confirmed)
	log.Printf("current stop for schedule %d confirmed at sequence %d", scheduleID, stopSequence)

	if t.Refetch != nil {
		t.Refetch(ctx)
	}
	return nil
}
