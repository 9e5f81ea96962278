package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	PollsTotal   prometheus.Counter
	PollErrs     prometheus.Counter
	PollsSkipped prometheus.Counter

	SyncsTotal   prometheus.Counter
	SyncErrs     prometheus.Counter
	PendingEdits prometheus.Gauge

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	PollDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	PollInterval prometheus.Gauge // seconds
}

func NewCollector(pollInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		PollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_polls_total",
			Help: "Total completed live-view polls.",
		}),
		PollErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_poll_errors_total",
			Help: "Total polls that failed and retained the last snapshot.",
		}),
		PollsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_polls_skipped_total",
			Help: "Total ticks skipped because a fetch was still in flight.",
		}),
		SyncsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_passenger_syncs_total",
			Help: "Total confirmed passenger-count syncs.",
		}),
		SyncErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_passenger_sync_errors_total",
			Help: "Total failed passenger-count syncs awaiting manual retry.",
		}),
		PendingEdits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "buspulse_pending_edits",
			Help: "Schedules with a local passenger-count edit not yet synced.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "buspulse_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "buspulse_poll_duration_seconds",
			Help:    "Duration of one fetch-and-apply poll cycle.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "buspulse_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		PollInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "buspulse_poll_interval_seconds",
			Help: "Configured live-view poll interval in seconds.",
		}),
	}

	// Register
	reg.MustRegister(
		c.PollsTotal, c.PollErrs, c.PollsSkipped,
		c.SyncsTotal, c.SyncErrs, c.PendingEdits,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.PollDuration, c.PublishDuration,
		c.PollInterval,
	)

	c.PollInterval.Set(pollInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
