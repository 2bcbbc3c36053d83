package stream

import (
	"sync"
	"time"
)

// DefaultInterval is the minimum spacing between throttled updates.
const DefaultInterval = 80 * time.Millisecond

// Throttler rate-caps a string-valued callback. The first update in a quiet
// period is delivered immediately; updates arriving inside the interval are
// coalesced, keeping only the newest value; a trailing delivery is always
// scheduled so the final value is never dropped. Flush delivers any pending
// value synchronously.
//
// The callback must not call back into the Throttler.
type Throttler struct {
	interval time.Duration
	fn       func(string)

	mu      sync.Mutex
	last    time.Time
	pending string
	has     bool
	timer   *time.Timer
	stopped bool
}

func NewThrottler(interval time.Duration, fn func(string)) *Throttler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Throttler{interval: interval, fn: fn}
}

// Update offers a new value. Delivery is immediate when the interval has
// elapsed since the last delivery, otherwise deferred to a trailing fire.
func (t *Throttler) Update(value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	now := time.Now()
	if elapsed := now.Sub(t.last); elapsed >= t.interval {
		t.last = now
		t.has = false
		t.fn(value)
		return
	}
	t.pending = value
	t.has = true
	if t.timer == nil {
		remaining := t.interval - now.Sub(t.last)
		t.timer = time.AfterFunc(remaining, t.fire)
	}
}

func (t *Throttler) fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = nil
	if t.stopped || !t.has {
		return
	}
	t.has = false
	t.last = time.Now()
	t.fn(t.pending)
}

// Flush synchronously delivers a pending value, if any.
func (t *Throttler) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.stopped || !t.has {
		return
	}
	t.has = false
	t.last = time.Now()
	t.fn(t.pending)
}

// Stop cancels any pending delivery and ignores further updates.
func (t *Throttler) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.has = false
}
