package live

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"buspulse/internal/model"
)

// PassengerReconciler manages the driver's optimistic passenger-count
// edits for active schedules. Edits apply locally at once and are synced
// to the backend with at most one request in flight per schedule; edits
// arriving mid-flight coalesce into a single follow-up carrying the
// latest cumulative count. No edit is ever dropped: a failed sync keeps
// the local value and waits for an explicit Retry.
//
// Every edit and every poll is stamped from one monotonic sequence, so
// ordering decisions never depend on wall clocks.
type PassengerReconciler struct {
	backend Backend
	cache   *SnapshotCache
	metrics ReconcilerMetrics

	// OnError surfaces a failed sync to the user. Optional.
	OnError func(scheduleID int, err error)
	// OnConfirmed fires after the backend accepts a count. Optional.
	OnConfirmed func(scheduleID, count int)

	mu      sync.Mutex
	seq     uint64
	entries map[int]*pendingEdit
}

type pendingEdit struct {
	capacity int
	local    int    // optimistic count, clamped to [0, capacity]
	dirty    bool   // local differs from last confirmed/synced value
	editSeq  uint64 // stamp of the newest local edit
	syncing  bool
	lastErr  error
}

func NewPassengerReconciler(backend Backend, cache *SnapshotCache, metrics ReconcilerMetrics) *PassengerReconciler {
	return &PassengerReconciler{
		backend: backend,
		cache:   cache,
		metrics: metrics,
		entries: make(map[int]*pendingEdit),
	}
}

var errUnknownSchedule = errors.New("schedule not in snapshot cache")

// Adjust applies a local delta to the schedule's live count, clamped to
// [0, capacity], and schedules a sync. Returns the new local count.
func (r *PassengerReconciler) Adjust(ctx context.Context, scheduleID, delta int) (int, error) {
	r.mu.Lock()
	e, ok := r.entries[scheduleID]
	if !ok {
		s, found := r.cache.Find(scheduleID)
		if !found {
			r.mu.Unlock()
			return 0, errUnknownSchedule
		}
		e = &pendingEdit{capacity: s.TotalSeats, local: s.LivePassengers()}
		r.entries[scheduleID] = e
	}
	e.local = clampInt(e.local+delta, 0, e.capacity)
	e.dirty = true
	r.seq++
	e.editSeq = r.seq
	startSync := !e.syncing
	if startSync {
		e.syncing = true
	}
	count := e.local
	r.updatePendingGauge()
	r.mu.Unlock()

	if startSync {
		go r.runSync(ctx, scheduleID)
	}
	return count, nil
}

// Retry resubmits a failed edit. No-op when nothing is pending.
func (r *PassengerReconciler) Retry(ctx context.Context, scheduleID int) {
	r.mu.Lock()
	e, ok := r.entries[scheduleID]
	start := ok && e.dirty && !e.syncing
	if start {
		e.syncing = true
		e.lastErr = nil
	}
	r.mu.Unlock()
	if start {
		go r.runSync(ctx, scheduleID)
	}
}

// Pending reports the local count and whether an un-synced edit exists.
func (r *PassengerReconciler) Pending(scheduleID int) (count int, dirty bool, lastErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[scheduleID]
	if !ok {
		return 0, false, nil
	}
	return e.local, e.dirty, e.lastErr
}

// runSync drains the pending edit for one schedule, sending the latest
// cumulative count each round until no new edit remains.
func (r *PassengerReconciler) runSync(ctx context.Context, scheduleID int) {
	for {
		r.mu.Lock()
		e := r.entries[scheduleID]
		if e == nil || !e.dirty {
			if e != nil {
				e.syncing = false
			}
			r.mu.Unlock()
			return
		}
		count := e.local
		sentSeq := e.editSeq
		e.dirty = false
		r.updatePendingGauge()
		r.mu.Unlock()

		res, err := r.backend.UpdatePassengerCount(ctx, scheduleID, count)

		r.mu.Lock()
		if err != nil {
			// Keep the driver's count; surface the failure and wait for
			// a manual retry so duplicate submissions can't race.
			e.dirty = true
			e.lastErr = err
			e.syncing = false
			r.updatePendingGauge()
			r.mu.Unlock()
			if r.metrics != nil {
				r.metrics.SyncErrInc()
			}
			log.Printf("passenger sync failed for schedule %d (count %d): %v", scheduleID, count, err)
			if r.OnError != nil {
				r.OnError(scheduleID, err)
			}
			return
		}
		e.lastErr = nil
		settled := !e.dirty && e.editSeq == sentSeq
		if settled {
			// No newer edit arrived while in flight; the server's clamp
			// becomes the local truth until the next poll overwrites it.
			e.local = clampInt(res.CurrentPassengers, 0, e.capacity)
		}
		r.mu.Unlock()

		if r.metrics != nil {
			r.metrics.SyncInc()
		}
		if settled {
			if s, ok := r.cache.Find(scheduleID); ok {
				r.cache.ReplaceOne(s.WithPassengerCount(res.CurrentPassengers, time.Now()))
			}
		}
		if r.OnConfirmed != nil {
			r.OnConfirmed(scheduleID, res.CurrentPassengers)
		}
	}
}

// StampPoll allocates an ordering stamp for a poll that is about to
// start. Reconcile later compares edit stamps against it.
func (r *PassengerReconciler) StampPoll() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq
}

// Reconcile overlays pending local edits onto a fetched schedule list. A
// poll stamped before an edit must not clobber it: for any schedule whose
// edit is un-synced, in flight, or newer than pollSeq, the local count
// wins. Only a poll stamped after an idle confirmed edit lets server
// truth take over, at which point the entry is forgotten.
func (r *PassengerReconciler) Reconcile(pollSeq uint64, schedules []model.Schedule) []model.Schedule {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Schedule, len(schedules))
	for i, s := range schedules {
		e, ok := r.entries[s.ID]
		if ok && (e.dirty || e.syncing || e.editSeq > pollSeq) {
			out[i] = overlayCount(s, e.local)
			continue
		}
		if ok {
			// Server truth takes over; drop the entry so the next edit
			// reseeds from the cache.
			delete(r.entries, s.ID)
		}
		out[i] = s
	}
	r.updatePendingGauge()
	return out
}

// overlayCount projects a pending local count onto a fetched schedule
// without inventing a confirmation timestamp.
func overlayCount(s model.Schedule, count int) model.Schedule {
	count = clampInt(count, 0, s.TotalSeats)
	s.CurrentPassengers = &count
	s.AvailableSeats = s.TotalSeats - count
	return s
}

func (r *PassengerReconciler) updatePendingGauge() {
	if r.metrics == nil {
		return
	}
	n := 0
	for _, e := range r.entries {
		if e.dirty {
			n++
		}
	}
	r.metrics.SetPendingEdits(n)
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if hi >= lo && n > hi {
		return hi
	}
	return n
}
