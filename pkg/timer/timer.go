// Package timer provides cycle-time timers for loop controllers.
package timer

import "time"

// Timer measures time from Start against the time of a loop cycle.
// A Timer that was never started is not running and never expires.
type Timer struct {
	start   time.Time
	running bool
}

// Start (re)starts the timer at now.
func (t *Timer) Start(now time.Time) {
	t.start, t.running = now, true
}

// Stop stops the timer.
func (t *Timer) Stop() {
	t.running = false
}

// IsRunning returns true if the timer is running.
func (t *Timer) IsRunning() bool {
	return t.running
}

// Elapsed returns the time since Start, 0 when stopped.
func (t *Timer) Elapsed(now time.Time) time.Duration {
	if !t.running {
		return 0
	}
	return now.Sub(t.start)
}

// Remaining returns the time left to timeout, 0 when stopped or expired.
func (t *Timer) Remaining(now time.Time, timeout time.Duration) time.Duration {
	if r := timeout - t.Elapsed(now); t.running && r > 0 {
		return r
	}
	return 0
}

// HasExpired reports whether a running timer reached timeout.
func (t *Timer) HasExpired(now time.Time, timeout time.Duration) bool {
	return t.running && now.Sub(t.start) >= timeout
}

// Trigger is a one-shot delayed action armed by Fire and checked by Run.
// While pending, Run invokes hold every cycle.
type Trigger struct {
	Timeout time.Duration

	fired   bool
	pending Timer
}

// Fire arms the trigger; the countdown starts on the next Run.
func (g *Trigger) Fire() {
	g.fired = true
}

// Pending reports whether the trigger is armed or counting.
func (g *Trigger) Pending() bool {
	return g.fired || g.pending.IsRunning()
}

// Run advances the trigger. action runs once when the timeout elapses.
func (g *Trigger) Run(now time.Time, action, hold func()) {
	if g.fired {
		g.fired = false
		g.pending.Start(now)
	}
	if !g.pending.IsRunning() {
		return
	}
	if g.pending.HasExpired(now, g.Timeout) {
		g.pending.Stop()
		if action != nil {
			action()
		}
	}
	if hold != nil {
		hold()
	}
}
