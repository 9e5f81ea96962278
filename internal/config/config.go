package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL    string
	SessionCookie string

	PollInterval time.Duration
	Location     *time.Location

	// Live view selection
	RouteID    int
	StopID     int
	ScheduleID int
	BusID      int

	NATSURL         string // empty disables telemetry mirroring
	LogNATSSubjects bool
	MetricsAddr     string // empty disables the metrics server
	GatewayAddr     string // empty disables the local view gateway
	StorePath       string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.APIBaseURL = firstNonEmpty(
		os.Getenv("API_BASE_URL"),
		os.Getenv("BACKEND_URL"),
	)
	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL must be set")
	}

	// Opaque session credential, attached to every call as a cookie.
	cfg.SessionCookie = os.Getenv("SESSION_COOKIE")

	// Poll interval (seconds)
	if v := os.Getenv("POLL_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid POLL_INTERVAL_SEC: %q", v)
		}
		cfg.PollInterval = time.Duration(sec) * time.Second
	} else {
		cfg.PollInterval = 15 * time.Second
	}

	var err error
	if cfg.RouteID, err = intEnv("ROUTE_ID"); err != nil {
		return nil, err
	}
	if cfg.StopID, err = intEnv("STOP_ID"); err != nil {
		return nil, err
	}
	if cfg.ScheduleID, err = intEnv("SCHEDULE_ID"); err != nil {
		return nil, err
	}
	if cfg.BusID, err = intEnv("BUS_ID"); err != nil {
		return nil, err
	}

	cfg.NATSURL = os.Getenv("NATS_URL")

	// Debug logging for NATS publish subjects
	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.LogNATSSubjects = true
		default:
			cfg.LogNATSSubjects = false
		}
	}

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	// Local gateway address (e.g., "127.0.0.1:8091"). Empty disables it.
	cfg.GatewayAddr = os.Getenv("GATEWAY_ADDR")

	cfg.StorePath = getenvDefault("STORE_PATH", ".buspulse")

	// Time zone
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

// Today returns the current date in the configured zone, YYYY-MM-DD.
func (c *Config) Today() string {
	return time.Now().In(c.Location).Format("2006-01-02")
}

func intEnv(k string) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
