// Package daemon runs the continuous drift watch loop.
package daemon

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/varusta/internal/telemetry"
)

// PlanFunc runs one observe-and-plan cycle and reports how many
// changes the plan contains. The daemon never applies anything.
type PlanFunc func(ctx context.Context) (changes int, err error)

// Config holds daemon configuration
type Config struct {
	Interval time.Duration
	Region   string
}

// Daemon repeatedly observes the cloud and reports drift.
type Daemon struct {
	interval   time.Duration
	region     string
	planFn     PlanFunc
	startTime  time.Time
	cycleCount atomic.Int64
	driftCount atomic.Int64
}

// New creates a daemon instance.
func New(config Config, planFn PlanFunc) (*Daemon, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("watch interval must be positive, got %s", config.Interval)
	}
	if planFn == nil {
		return nil, fmt.Errorf("plan function is required")
	}
	return &Daemon{
		interval:  config.Interval,
		region:    config.Region,
		planFn:    planFn,
		startTime: time.Now(),
	}, nil
}

// Run executes one cycle immediately, then ticks until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	d.runCycle(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.runCycle(ctx)
		}
	}
}

func (d *Daemon) runCycle(ctx context.Context) {
	start := time.Now()
	d.cycleCount.Add(1)

	changes, err := d.planFn(ctx)
	if err != nil {
		log.Error().Err(err).Msg("watch cycle failed")
		return
	}

	telemetry.RecordPlan(ctx, d.region, changes, time.Since(start).Seconds())

	if changes > 0 {
		d.driftCount.Add(1)
		log.Warn().Int("changes", changes).Msg("drift detected")
		return
	}
	log.Debug().Msg("cloud matches desired state")
}

// HealthStatus represents daemon health
type HealthStatus struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Cycles        int64  `json:"cycles"`
	DriftCycles   int64  `json:"drift_cycles"`
}

// Health returns daemon health status
func (d *Daemon) Health() HealthStatus {
	return HealthStatus{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(d.startTime).Seconds()),
		Cycles:        d.cycleCount.Load(),
		DriftCycles:   d.driftCount.Load(),
	}
}
