// Package daemon runs the watch loop: it polls resource statuses at an interval and
// hands each snapshot to an emitter.
package daemon

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/cirrus/internal/emitter"
)

// Config holds daemon configuration
type Config struct {
	Interval time.Duration
	Provider string
	Region   string
}

// Poller reads the current statuses of one resource kind.
type Poller struct {
	Kind string
	Poll func(ctx context.Context) ([]emitter.Status, error)
}

// Daemon manages continuous status polling
type Daemon struct {
	interval  time.Duration
	provider  string
	region    string
	pollers   []Poller
	emitter   emitter.Emitter
	metrics   *DaemonMetrics
	startTime time.Time
	pollCount atomic.Int64
}

// NewDaemon creates a new daemon instance. metrics may be nil.
func NewDaemon(config Config, em emitter.Emitter, metrics *DaemonMetrics, pollers ...Poller) (*Daemon, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("daemon: interval must be positive, got %s", config.Interval)
	}
	if em == nil {
		return nil, fmt.Errorf("daemon: emitter required")
	}
	if len(pollers) == 0 {
		return nil, fmt.Errorf("daemon: at least one poller required")
	}
	return &Daemon{
		interval:  config.Interval,
		provider:  config.Provider,
		region:    config.Region,
		pollers:   pollers,
		emitter:   em,
		metrics:   metrics,
		startTime: time.Now(),
	}, nil
}

// Start polls once immediately, then at every interval until ctx is done.
func (d *Daemon) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce polls every kind in order and emits the snapshots. A round cut short by
// ctx is not counted.
func (d *Daemon) RunOnce(ctx context.Context) {
	for _, p := range d.pollers {
		if ctx.Err() != nil {
			return
		}
		d.poll(ctx, p)
	}
	if ctx.Err() != nil {
		return
	}
	d.pollCount.Add(1)
}

func (d *Daemon) poll(ctx context.Context, p Poller) {
	start := time.Now()
	statuses, err := p.Poll(ctx)
	s := emitter.Snapshot{
		Provider: d.provider,
		Region:   d.region,
		Kind:     p.Kind,
		Statuses: statuses,
		PolledAt: start,
		Duration: time.Since(start),
		Error:    err,
	}

	if d.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		d.metrics.RecordPoll(ctx, status, p.Kind, d.provider, d.region)
		d.metrics.RecordPollDuration(ctx, s.Duration.Seconds(), p.Kind)
		if err == nil {
			d.metrics.RecordResources(ctx, int64(len(statuses)), p.Kind, d.provider, d.region)
		}
	}

	if err := d.emitter.Emit(ctx, s); err != nil {
		log.Warn().Err(err).Str("kind", p.Kind).Msg("emit snapshot failed")
	}
}

// Health returns daemon health status
func (d *Daemon) Health() HealthStatus {
	return HealthStatus{
		Status: "healthy",
		Uptime: int64(time.Since(d.startTime).Seconds()),
		Polls:  d.pollCount.Load(),
	}
}

// HealthStatus represents daemon health
type HealthStatus struct {
	Status string `json:"status"`
	Uptime int64  `json:"uptime_seconds"`
	Polls  int64  `json:"polls"`
}

// PollCount returns the number of completed poll rounds.
func (d *Daemon) PollCount() int64 {
	return d.pollCount.Load()
}
