// Package live maintains the client's live view of schedules: a snapshot
// cache fed by a poller, with driver edits reconciled on top. The backend
// stays the system of record; everything here is eventually consistent
// toward it.
package live

import (
	"sync"

	"buspulse/internal/model"
)

// SnapshotCache holds the most recently fetched schedule list. Writers
// replace the whole list atomically; readers observe either the old list
// or the new one in full, never a partial merge. Schedules are cheap to
// refetch, and field-level merging risks stale overwrites.
type SnapshotCache struct {
	mu        sync.RWMutex
	schedules []model.Schedule
	gen       uint64

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{subs: make(map[int]chan struct{})}
}

// Replace swaps in a new schedule list and bumps the generation counter.
func (c *SnapshotCache) Replace(schedules []model.Schedule) {
	cp := make([]model.Schedule, len(schedules))
	copy(cp, schedules)

	c.mu.Lock()
	c.schedules = cp
	c.gen++
	c.mu.Unlock()

	c.notify()
}

// ReplaceOne swaps a single schedule into the list, still as a whole-list
// replacement. A schedule not yet present is appended.
func (c *SnapshotCache) ReplaceOne(s model.Schedule) {
	c.mu.Lock()
	next := make([]model.Schedule, 0, len(c.schedules)+1)
	found := false
	for _, old := range c.schedules {
		if old.ID == s.ID {
			next = append(next, s)
			found = true
			continue
		}
		next = append(next, old)
	}
	if !found {
		next = append(next, s)
	}
	c.schedules = next
	c.gen++
	c.mu.Unlock()

	c.notify()
}

// Snapshot returns a copy of the current list.
func (c *SnapshotCache) Snapshot() []model.Schedule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make([]model.Schedule, len(c.schedules))
	copy(cp, c.schedules)
	return cp
}

// Find returns the schedule with the given id, if cached. Absence is not
// an error.
func (c *SnapshotCache) Find(id int) (model.Schedule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.schedules {
		if s.ID == id {
			return s, true
		}
	}
	return model.Schedule{}, false
}

// Generation returns the number of replacements applied so far.
func (c *SnapshotCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Subscribe registers for change notifications. The channel receives a
// signal after each replacement; slow subscribers miss intermediate
// updates, not the latest one. The returned func unsubscribes.
func (c *SnapshotCache) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()
	return ch, func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *SnapshotCache) notify() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// StatusCache holds the latest live prediction feed for the open stop view.
type StatusCache struct {
	mu     sync.RWMutex
	status model.StopLiveStatus
	ok     bool
}

func NewStatusCache() *StatusCache { return &StatusCache{} }

// Set replaces the cached feed.
func (c *StatusCache) Set(s model.StopLiveStatus) {
	c.mu.Lock()
	c.status = s
	c.ok = true
	c.mu.Unlock()
}

// Latest returns the most recent feed, and whether one has arrived yet.
func (c *StatusCache) Latest() (model.StopLiveStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status, c.ok
}
