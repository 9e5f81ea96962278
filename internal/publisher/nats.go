// Package publisher mirrors driver telemetry onto NATS subjects for
// local fleet dashboards. The REST backend stays the system of record;
// these messages are a best-effort side channel.
package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

type TelemetryPublisher struct {
	nc          *nats.Conn
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewTelemetryPublisher(url string, logSubjects bool, m PublisherMetrics) (*TelemetryPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("buspulse"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &TelemetryPublisher{nc: nc, logSubjects: logSubjects, metrics: m}, nil
}

func (p *TelemetryPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// PositionFix is one GPS report from the driver console.
type PositionFix struct {
	BusID      int       `json:"busId"`
	ScheduleID int       `json:"scheduleId"`
	RouteNum   string    `json:"routeNumber"`
	Timestamp  time.Time `json:"timestamp"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
}

// PublishPosition publishes a fix on fix.<route>.<bus>.
func (p *TelemetryPublisher) PublishPosition(fix PositionFix) error {
	subject := fmt.Sprintf("fix.%s.%d", subjectToken(fix.RouteNum), fix.BusID)
	return p.publish(subject, fix)
}

// CountEvent is a passenger-count change, local or backend-confirmed.
type CountEvent struct {
	ScheduleID int       `json:"scheduleId"`
	Count      int       `json:"count"`
	Confirmed  bool      `json:"confirmed"`
	Timestamp  time.Time `json:"timestamp"`
}

// PublishCount publishes a count event on count.<schedule>.
func (p *TelemetryPublisher) PublishCount(ev CountEvent) error {
	subject := fmt.Sprintf("count.%d", ev.ScheduleID)
	return p.publish(subject, ev)
}

func (p *TelemetryPublisher) publish(subject string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s", subject)
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
