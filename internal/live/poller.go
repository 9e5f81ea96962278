package live

import (
	"context"
	"log"
	"sync"
	"time"

	"buspulse/internal/model"
)

// DefaultPollInterval matches the refresh cadence of an open live view.
const DefaultPollInterval = 15 * time.Second

// Poller refreshes the snapshot cache while a live view is open. One
// poller belongs to one view: starting it registers the loop, stopping it
// revokes the cancellation token and no tick survives teardown.
//
// Ticks never overlap: if a fetch is still in flight when the next tick
// fires, that tick is skipped outright.
type Poller struct {
	backend    Backend
	cache      *SnapshotCache
	rec        *PassengerReconciler
	status     *StatusCache
	metrics    PollerMetrics
	interval   time.Duration
	routeID    int
	stopID     int // 0 = no stop-centric feed
	scheduleID int // 0 = whole-route view
	today      func() string

	// OnSnapshot fires after each applied replacement, e.g. to persist
	// the snapshot for offline startup. Optional.
	OnSnapshot func()

	mu       sync.Mutex
	inFlight bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PollerConfig selects what one live view watches.
type PollerConfig struct {
	RouteID    int
	StopID     int
	ScheduleID int
	Interval   time.Duration
	Today      func() string // date provider, YYYY-MM-DD in the app's TZ
}

func NewPoller(backend Backend, cache *SnapshotCache, rec *PassengerReconciler, status *StatusCache, metrics PollerMetrics, cfg PollerConfig) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	today := cfg.Today
	if today == nil {
		today = func() string { return time.Now().Format("2006-01-02") }
	}
	return &Poller{
		backend:    backend,
		cache:      cache,
		rec:        rec,
		status:     status,
		metrics:    metrics,
		interval:   interval,
		routeID:    cfg.RouteID,
		stopID:     cfg.StopID,
		scheduleID: cfg.ScheduleID,
		today:      today,
	}
}

// Start launches the poll loop: an immediate poll, then one per interval.
func (p *Poller) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.pollOnce(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.wg.Add(1)
				go func() {
					defer p.wg.Done()
					p.pollOnce(ctx)
				}()
			}
		}
	}()
}

// PollNow performs an immediate out-of-band poll, e.g. after a confirmed
// stop assertion. It obeys the same re-entrancy guard as the ticker.
func (p *Poller) PollNow(ctx context.Context) {
	p.pollOnce(ctx)
}

// Stop revokes the poll loop and waits for any in-flight fetch to settle.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// pollOnce performs one fetch-and-apply cycle. It returns false when the
// tick was skipped because a previous fetch is still in flight.
func (p *Poller) pollOnce(ctx context.Context) bool {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		if p.metrics != nil {
			p.metrics.PollSkippedInc()
		}
		return false
	}
	p.inFlight = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	start := time.Now()
	pollSeq := p.rec.StampPoll()
	schedules, err := p.backend.ListSchedules(ctx, p.routeID, p.today())
	if err != nil {
		// Retain the last-known snapshot; the error is logged, not
		// rendered, so a single transient miss never blanks the view.
		if p.metrics != nil {
			p.metrics.PollErrInc()
		}
		log.Printf("poll failed for route %d: %v", p.routeID, err)
		return true
	}
	if ctx.Err() != nil {
		// View torn down while the fetch was in flight; discard.
		return true
	}

	schedules = p.retainMissing(schedules)
	schedules = p.rec.Reconcile(pollSeq, schedules)
	p.cache.Replace(schedules)

	if p.stopID != 0 && p.status != nil {
		st, err := p.backend.GetLiveStatusForStop(ctx, p.routeID, p.stopID, p.today())
		if err != nil {
			log.Printf("live status poll failed for stop %d: %v", p.stopID, err)
		} else if ctx.Err() == nil {
			p.status.Set(st)
		}
	}

	if p.metrics != nil {
		p.metrics.PollInc()
		p.metrics.PollObserve(time.Since(start))
	}
	if p.OnSnapshot != nil {
		p.OnSnapshot()
	}
	return true
}

// retainMissing keeps the last-known entry for the view's schedule when a
// response transiently omits it (server-side removal or date rollover).
func (p *Poller) retainMissing(schedules []model.Schedule) []model.Schedule {
	if p.scheduleID == 0 {
		return schedules
	}
	for _, s := range schedules {
		if s.ID == p.scheduleID {
			return schedules
		}
	}
	if prev, ok := p.cache.Find(p.scheduleID); ok {
		schedules = append(schedules, prev)
	}
	return schedules
}
