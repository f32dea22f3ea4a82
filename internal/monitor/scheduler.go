// Package monitor drives periodic silent re-execution of flagged
// presets.
package monitor

import (
	"context"
	"time"

	"qapi/internal/console"
)

// DefaultInterval is the monitor tick period.
const DefaultInterval = 10 * time.Second

// Scheduler fires silent runs for every monitored preset on a fixed
// tick. Runs are fire-and-forget: a tick never waits for the previous
// tick's requests, and overlapping pings for one preset resolve
// last-to-finish wins.
type Scheduler struct {
	session  *console.Session
	interval time.Duration
	onTick   func()
}

// New creates a scheduler over a session. A non-positive interval uses
// the default.
func New(session *console.Session, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{session: session, interval: interval}
}

// OnTick registers a callback invoked after each tick's runs have been
// dispatched (not completed). Used by the watch command to redraw.
func (s *Scheduler) OnTick(fn func()) {
	s.onTick = fn
}

// Interval returns the tick period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run ticks until the context is cancelled. Cancelling stops future
// ticks but does not cancel pings already in flight.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick dispatches one round of silent runs.
func (s *Scheduler) Tick(ctx context.Context) {
	for _, p := range s.session.MonitorTargets() {
		go s.session.Run(ctx, p.ID, true)
	}
	if s.onTick != nil {
		s.onTick()
	}
}
