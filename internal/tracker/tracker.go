// Package tracker publishes the agent's presence: a retained heartbeat at
// a fixed interval and a retained version announcement once per day.
// Dashboards subscribe to the retained topics to see every agent's last
// known state without waiting for the next beat.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// Publisher is the slice of the session the tracker needs.
type Publisher interface {
	PublishWith(topic string, payload []byte, qos byte, retain bool) error
}

// Config controls the tracker's topics and cadence.
type Config struct {
	// Interval is the heartbeat period.
	Interval time.Duration

	// TopicPrefix is prepended to "/heartbeat/<hostname>" and
	// "/version/<hostname>".
	TopicPrefix string

	// Version is the agent version announced daily.
	Version string
}

// heartbeat is the JSON payload published on every beat.
type heartbeat struct {
	Hostname       string `json:"hostname"`
	Timestamp      string `json:"timestamp"`
	HeartbeatCount int    `json:"heartbeat_count"`
	UptimeSeconds  int64  `json:"uptime"`
	MemoryBytes    uint64 `json:"memory"`
	PID            int    `json:"pid"`
}

// versionInfo is the JSON payload published once per day.
type versionInfo struct {
	Hostname     string `json:"hostname"`
	Timestamp    string `json:"timestamp"`
	Version      string `json:"version"`
	VersionCount int    `json:"version_count"`
}

// Tracker owns the publishing loop. It is driven either by Run (ticker
// goroutine) or by explicit Tick calls in tests.
type Tracker struct {
	pub Publisher
	cfg Config
	log zerolog.Logger

	hostname string
	pid      int
	start    time.Time

	heartbeatCount int
	versionCount   int
	lastBeat       time.Time
	lastVersionDay string // "2006-01-02" of the last announcement
}

// New creates a tracker publishing through pub.
func New(pub Publisher, cfg Config, log zerolog.Logger) *Tracker {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "edgeagent"
	}
	return &Tracker{
		pub:      pub,
		cfg:      cfg,
		log:      log,
		hostname: hostname,
		pid:      os.Getpid(),
		start:    time.Now(),
	}
}

// Run ticks once a second until ctx is cancelled. The fine-grained tick
// keeps the first heartbeat and the daily version rollover prompt even
// with long heartbeat intervals.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.Tick(now)
		}
	}
}

// Tick evaluates the clock once: publishes a version announcement on the
// first tick of each day and a heartbeat when the interval has elapsed.
func (t *Tracker) Tick(now time.Time) {
	day := now.Format("2006-01-02")
	if day != t.lastVersionDay {
		if err := t.publishVersion(now); err != nil {
			t.log.Error().Err(err).Msg("version publish failed")
		} else {
			t.lastVersionDay = day
		}
	}

	if now.Sub(t.lastBeat) >= t.cfg.Interval {
		if err := t.publishHeartbeat(now); err != nil {
			t.log.Error().Err(err).Msg("heartbeat publish failed")
		}
		// The beat is consumed even on failure; a tight error loop would
		// otherwise hammer a struggling broker.
		t.lastBeat = now
	}
}

func (t *Tracker) publishHeartbeat(now time.Time) error {
	t.heartbeatCount++
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	payload, err := json.Marshal(heartbeat{
		Hostname:       t.hostname,
		Timestamp:      now.Format(time.RFC3339),
		HeartbeatCount: t.heartbeatCount,
		UptimeSeconds:  int64(now.Sub(t.start).Seconds()),
		MemoryBytes:    mem.Sys,
		PID:            t.pid,
	})
	if err != nil {
		return err
	}

	t.log.Debug().Msg("publishing heartbeat")
	topic := fmt.Sprintf("%s/heartbeat/%s", t.cfg.TopicPrefix, t.hostname)
	return t.pub.PublishWith(topic, payload, 1, true)
}

func (t *Tracker) publishVersion(now time.Time) error {
	t.versionCount++
	payload, err := json.Marshal(versionInfo{
		Hostname:     t.hostname,
		Timestamp:    now.Format(time.RFC3339),
		Version:      t.cfg.Version,
		VersionCount: t.versionCount,
	})
	if err != nil {
		return err
	}

	t.log.Debug().Str("version", t.cfg.Version).Msg("publishing version")
	topic := fmt.Sprintf("%s/version/%s", t.cfg.TopicPrefix, t.hostname)
	return t.pub.PublishWith(topic, payload, 1, true)
}
