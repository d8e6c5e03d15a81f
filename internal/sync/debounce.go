package sync

import (
	gosync "sync"
	"time"
)

// Debouncer delays a callback until a burst of triggers has quieted for a
// fixed window. Each Trigger resets the timer, so only the last event of
// a burst fires the callback. All three refresh trigger sources share
// this one implementation instead of hand-rolling their own timers.
type Debouncer struct {
	mu      gosync.Mutex
	window  time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a Debouncer with the given quiet window.
func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	return &Debouncer{window: window, fn: fn}
}

// Trigger schedules the callback after the quiet window, cancelling and
// restarting the timer if one is already pending.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		debounceCoalesced.Inc()
	}
	d.timer = time.AfterFunc(d.window, d.fn)
}

// Stop cancels any pending callback and disables the debouncer. Must be
// called on teardown so a late timer cannot fire into a stopped engine.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
