package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"buspulse/internal/api"
	"buspulse/internal/config"
	"buspulse/internal/gateway"
	"buspulse/internal/live"
	"buspulse/internal/metrics"
	"buspulse/internal/model"
	"buspulse/internal/publisher"
	"buspulse/internal/store"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mode := "watch"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		mode = args[0]
		args = args[1:]
	}

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.PollInterval)
		srv := mcol.Serve(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Optional telemetry mirror
	var pub *publisher.TelemetryPublisher
	if cfg.NATSURL != "" {
		pub, err = publisher.NewTelemetryPublisher(cfg.NATSURL, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
	}

	client, err := api.New(cfg.APIBaseURL, cfg.SessionCookie)
	if err != nil {
		log.Fatalf("api client error: %v", err)
	}

	switch mode {
	case "watch":
		runWatch(ctx, cfg, client, mcol)
	case "driver":
		runDriver(ctx, cfg, client, pub, mcol)
	case "preinform":
		runPreInform(ctx, cfg, client, args)
	default:
		log.Fatalf("unknown mode %q (want watch, driver or preinform)", mode)
	}
	log.Println("shutdown complete")
}

// runWatch keeps a live view open: poll the route, cache snapshots,
// persist them for offline startup and serve them over the gateway.
func runWatch(ctx context.Context, cfg *config.Config, client *api.Client, mcol *metrics.Collector) {
	if cfg.RouteID == 0 {
		log.Fatal("watch mode needs ROUTE_ID")
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer st.Close()

	cache := live.NewSnapshotCache()
	status := live.NewStatusCache()

	// Show last-known data before the first poll completes.
	if persisted, err := st.LoadSnapshot(cfg.RouteID, cfg.Today()); err != nil {
		log.Printf("load persisted snapshot: %v", err)
	} else if len(persisted) > 0 {
		cache.Replace(persisted)
		log.Printf("restored %d schedules from disk", len(persisted))
	}

	rec := live.NewPassengerReconciler(client, cache, wrapReconcilerMetrics(mcol))
	poller := live.NewPoller(client, cache, rec, status, wrapPollerMetrics(mcol), live.PollerConfig{
		RouteID:    cfg.RouteID,
		StopID:     cfg.StopID,
		ScheduleID: cfg.ScheduleID,
		Interval:   cfg.PollInterval,
		Today:      cfg.Today,
	})
	poller.OnSnapshot = func() {
		if err := st.SaveSnapshot(cfg.RouteID, cfg.Today(), cache.Snapshot()); err != nil {
			log.Printf("persist snapshot: %v", err)
		}
	}
	poller.Start(ctx)
	defer poller.Stop()

	var gw *gateway.Gateway
	if cfg.GatewayAddr != "" {
		gw = gateway.New(cache, status)
		gw.Serve(cfg.GatewayAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = gw.Shutdown(shutdownCtx)
		}()
	}

	// Log schedule changes as they land.
	changes, unsubscribe := cache.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			if cfg.ScheduleID != 0 {
				if s, ok := cache.Find(cfg.ScheduleID); ok {
					log.Printf("schedule %d: %d/%d passengers (%.0f%%, %s)",
						s.ID, s.LivePassengers(), s.TotalSeats, s.OccupancyRate(), s.OccupancyStatus())
				}
				continue
			}
			log.Printf("snapshot generation %d: %d schedules", cache.Generation(), len(cache.Snapshot()))
		}
	}
}

// runDriver is the driver console: report GPS fixes, passenger counts and
// stop progress for the assigned schedule, with commands read from stdin.
func runDriver(ctx context.Context, cfg *config.Config, client *api.Client, pub *publisher.TelemetryPublisher, mcol *metrics.Collector) {
	if cfg.ScheduleID == 0 {
		log.Fatal("driver mode needs SCHEDULE_ID")
	}

	schedules, err := client.ListDriverSchedules(ctx)
	if err != nil {
		log.Fatalf("list driver schedules: %v", err)
	}
	var assigned *model.Schedule
	for i := range schedules {
		s := schedules[i]
		log.Printf("schedule %d: route %s %s %s, %d/%d seats free",
			s.ID, s.Route.Number, s.Date, s.DepartureTime, s.AvailableSeats, s.TotalSeats)
		if s.ID == cfg.ScheduleID {
			assigned = &schedules[i]
		}
	}
	if assigned == nil {
		log.Fatalf("schedule %d is not assigned to this driver", cfg.ScheduleID)
	}

	cache := live.NewSnapshotCache()
	cache.Replace(schedules)
	status := live.NewStatusCache()

	rec := live.NewPassengerReconciler(client, cache, wrapReconcilerMetrics(mcol))
	rec.OnError = func(scheduleID int, err error) {
		log.Printf("count for schedule %d not saved (%v), type 'retry' to resend", scheduleID, err)
	}
	if pub != nil {
		rec.OnConfirmed = func(scheduleID, count int) {
			_ = pub.PublishCount(publisher.CountEvent{
				ScheduleID: scheduleID, Count: count, Confirmed: true, Timestamp: time.Now(),
			})
		}
	}

	poller := live.NewPoller(client, cache, rec, status, wrapPollerMetrics(mcol), live.PollerConfig{
		RouteID:    assigned.Route.ID,
		ScheduleID: cfg.ScheduleID,
		Interval:   cfg.PollInterval,
		Today:      cfg.Today,
	})
	poller.Start(ctx)
	defer poller.Stop()

	tracker := live.NewStopProgressTracker(client, cache)
	tracker.Refetch = poller.PollNow

	busID := cfg.BusID
	if busID == 0 {
		busID = assigned.Bus.ID
	}

	fmt.Println("commands: +N | -N | stop SEQ | loc LAT LON | retry | status | quit")
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := driverCommand(ctx, line, cfg, client, rec, tracker, cache, pub, assigned, busID); quit {
				return
			}
		}
	}
}

func driverCommand(ctx context.Context, line string, cfg *config.Config, client *api.Client, rec *live.PassengerReconciler, tracker *live.StopProgressTracker, cache *live.SnapshotCache, pub *publisher.TelemetryPublisher, assigned *model.Schedule, busID int) bool {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return false
	}
	switch {
	case fields[0] == "quit":
		return true
	case fields[0] == "retry":
		rec.Retry(ctx, cfg.ScheduleID)
	case fields[0] == "status":
		count, dirty, lastErr := rec.Pending(cfg.ScheduleID)
		if s, ok := cache.Find(cfg.ScheduleID); ok {
			log.Printf("cached: %d/%d (%s)", s.LivePassengers(), s.TotalSeats, s.OccupancyStatus())
		}
		log.Printf("local count %d, unsynced=%v, last error: %v", count, dirty, lastErr)
	case fields[0] == "stop" && len(fields) == 2:
		seq, err := strconv.Atoi(fields[1])
		if err != nil {
			log.Printf("bad stop sequence %q", fields[1])
			return false
		}
		if err := tracker.SetCurrentStop(ctx, cfg.ScheduleID, seq); err != nil {
			log.Printf("stop assertion failed: %v", err)
		}
	case fields[0] == "loc" && len(fields) == 3:
		lat, errLat := strconv.ParseFloat(fields[1], 64)
		lon, errLon := strconv.ParseFloat(fields[2], 64)
		if errLat != nil || errLon != nil {
			log.Printf("bad coordinates %q %q", fields[1], fields[2])
			return false
		}
		if err := client.UpdateBusLocation(ctx, busID, lat, lon, cfg.ScheduleID); err != nil {
			log.Printf("location update failed: %v", err)
			return false
		}
		if pub != nil {
			_ = pub.PublishPosition(publisher.PositionFix{
				BusID: busID, ScheduleID: cfg.ScheduleID, RouteNum: assigned.Route.Number,
				Timestamp: time.Now(), Lat: lat, Lon: lon,
			})
		}
	default:
		delta, err := strconv.Atoi(fields[0])
		if err != nil {
			log.Printf("unknown command %q", line)
			return false
		}
		count, err := rec.Adjust(ctx, cfg.ScheduleID, delta)
		if err != nil {
			log.Printf("adjust failed: %v", err)
			return false
		}
		log.Printf("local count now %d", count)
	}
	return false
}

// runPreInform submits, lists or cancels a pre-inform from flags.
func runPreInform(ctx context.Context, cfg *config.Config, client *api.Client, args []string) {
	fs := flag.NewFlagSet("preinform", flag.ExitOnError)
	routeID := fs.Int("route", cfg.RouteID, "route id")
	date := fs.String("date", "", "date of travel (YYYY-MM-DD)")
	desired := fs.String("time", "", "desired boarding time (HH:MM)")
	boarding := fs.Int("board", 0, "boarding stop id")
	dropoff := fs.Int("dropoff", 0, "drop-off stop id")
	count := fs.Int("count", 1, "passenger count")
	cancelID := fs.Int("cancel", 0, "cancel the pre-inform with this id")
	list := fs.Bool("list", false, "list own pre-informs")
	_ = fs.Parse(args)

	if *list {
		pis, err := client.ListPreInforms(ctx)
		if err != nil {
			log.Fatalf("list pre-informs: %v", err)
		}
		for _, p := range pis {
			log.Printf("pre-inform %d: route %d on %s at %s, %d pax, %s",
				p.ID, p.RouteID, p.DateOfTravel, p.DesiredTime, p.PassengerCount, p.Status)
		}
		return
	}

	if *cancelID != 0 {
		if err := client.CancelPreInform(ctx, *cancelID); err != nil {
			log.Fatalf("cancel pre-inform %d: %v", *cancelID, err)
		}
		log.Printf("pre-inform %d cancelled", *cancelID)
		return
	}

	stops, err := client.GetRouteStops(ctx, *routeID)
	if err != nil {
		log.Fatalf("fetch stops for route %d: %v", *routeID, err)
	}
	var boardingStop, dropoffStop model.Stop
	for _, s := range stops {
		if s.ID == *boarding {
			boardingStop = s
		}
		if s.ID == *dropoff {
			dropoffStop = s
		}
	}

	draft := model.PreInformDraft{
		RouteID:        *routeID,
		DateOfTravel:   *date,
		DesiredTime:    *desired,
		BoardingStop:   boardingStop,
		DropoffStop:    dropoffStop,
		PassengerCount: *count,
	}
	created, err := client.CreatePreInform(ctx, draft)
	if err != nil {
		log.Fatalf("create pre-inform: %v", err)
	}
	log.Printf("pre-inform %d submitted (%s)", created.ID, created.Status)

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Printf("store error (receipt not kept): %v", err)
		return
	}
	defer st.Close()
	if err := st.SavePreInform(created); err != nil {
		log.Printf("keep receipt: %v", err)
	}
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}

func wrapPollerMetrics(c *metrics.Collector) live.PollerMetrics {
	if c == nil {
		return nil
	}
	return &pollMetrics{c: c}
}

type pollMetrics struct{ c *metrics.Collector }

func (p *pollMetrics) PollInc()                    { p.c.PollsTotal.Inc() }
func (p *pollMetrics) PollErrInc()                 { p.c.PollErrs.Inc() }
func (p *pollMetrics) PollSkippedInc()             { p.c.PollsSkipped.Inc() }
func (p *pollMetrics) PollObserve(d time.Duration) { p.c.PollDuration.Observe(d.Seconds()) }

func wrapReconcilerMetrics(c *metrics.Collector) live.ReconcilerMetrics {
	if c == nil {
		return nil
	}
	return &recMetrics{c: c}
}

type recMetrics struct{ c *metrics.Collector }

func (r *recMetrics) SyncInc()              { r.c.SyncsTotal.Inc() }
func (r *recMetrics) SyncErrInc()           { r.c.SyncErrs.Inc() }
func (r *recMetrics) SetPendingEdits(n int) { r.c.PendingEdits.Set(float64(n)) }
