package main

import (
	"log"
	"sync/atomic"
	"time"

	"assetwatch/config"
)

// refreshGovernor adapts the poll cadence to push-event volume. A burst of
// events tightens the interval so the next snapshot lands quickly; a long idle
// stretch relaxes it to the quiet cadence.
type refreshGovernor struct {
	cfg         config.RefreshConfig
	intervals   map[string]time.Duration
	setInterval func(time.Duration)
	eventCount  atomic.Int64
	lastEventAt atomic.Int64
	state       string
	quit        chan struct{}
}

// Purpose: Construct a refreshGovernor for adaptive poll cadence.
// Key aspects: Returns nil unless enabled and a setInterval callback is provided.
// Upstream: Called by main during startup wiring.
// Downstream: None (just allocates state).
func newRefreshGovernor(cfg config.RefreshConfig, setInterval func(time.Duration)) *refreshGovernor {
	if !cfg.Enabled || setInterval == nil {
		return nil
	}
	return &refreshGovernor{
		cfg: cfg,
		intervals: map[string]time.Duration{
			"quiet":  time.Duration(cfg.QuietPollSeconds) * time.Second,
			"normal": time.Duration(cfg.NormalPollSeconds) * time.Second,
			"busy":   time.Duration(cfg.BusyPollSeconds) * time.Second,
		},
		setInterval: setInterval,
		state:       "normal",
		quit:        make(chan struct{}),
	}
}

// Purpose: Record an additional push event to drive cadence decisions.
// Key aspects: Atomic increments to avoid locks on the hot path.
// Upstream: Called by main's push event loop per accepted event.
// Downstream: atomic adds and stores.
func (r *refreshGovernor) IncrementEvents() {
	if r == nil {
		return
	}
	r.eventCount.Add(1)
	r.lastEventAt.Store(time.Now().UTC().UnixNano())
}

// Purpose: Start the periodic cadence evaluation loop.
// Key aspects: Runs a 30-second ticker; nil receivers are safe.
// Upstream: Called by main after construction.
// Downstream: time.NewTicker and r.evaluate in the goroutine.
func (r *refreshGovernor) Start() {
	if r == nil {
		return
	}
	ticker := time.NewTicker(30 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.evaluate(time.Now().UTC())
			case <-r.quit:
				return
			}
		}
	}()
}

// Purpose: Stop the cadence evaluation loop.
// Key aspects: Closing quit unblocks the goroutine.
// Upstream: Called by main during shutdown.
// Downstream: None (channel close only).
func (r *refreshGovernor) Stop() {
	if r == nil {
		return
	}
	close(r.quit)
}

// Purpose: Decide the poll cadence from recent push-event volume.
// Key aspects: Busy above the per-minute threshold, quiet after a long idle
// stretch, normal otherwise; the interval is only pushed on state change.
// Upstream: Start's ticker goroutine.
// Downstream: r.setInterval.
func (r *refreshGovernor) evaluate(now time.Time) {
	if r == nil {
		return
	}
	delta := r.eventCount.Swap(0)
	perMinute := delta * 2 // 30-second evaluation window

	state := "normal"
	if perMinute >= int64(r.cfg.BusyEventsPerMinute) {
		state = "busy"
	} else if last := r.lastEventAt.Load(); last == 0 ||
		now.Sub(time.Unix(0, last)) >= time.Duration(r.cfg.QuietIdleMinutes)*time.Minute {
		state = "quiet"
	}

	if state == r.state {
		return
	}
	interval, ok := r.intervals[state]
	if !ok || interval <= 0 {
		return
	}
	log.Printf("Refresh: cadence %s -> %s (poll every %s)", r.state, state, interval)
	r.state = state
	r.setInterval(interval)
}
