package sync

import (
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// FlushScheduler decouples merge frequency from publish frequency.
//
// Each merge calls Mark; the first Mark of a burst arms a timer, further
// Marks within the interval coalesce into that same firing. The publish
// callback reads the store at fire time, so the published snapshot always
// reflects the latest merge, never an intermediate one.
// -----------------------------------------------------------------------------

type FlushScheduler struct {
	interval time.Duration
	publish  func()

	mu      sync.Mutex
	alive   bool
	pending bool
	timer   *time.Timer
}

// -----------------------------------------------------------------------------

func NewFlushScheduler(interval time.Duration, publish func()) *FlushScheduler {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &FlushScheduler{
		interval: interval,
		publish:  publish,
		alive:    true,
	}
}

// -----------------------------------------------------------------------------

// Mark notes that the store changed. No-op while a flush is already pending
// or after Close.
func (f *FlushScheduler) Mark() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.alive || f.pending {
		return
	}
	f.pending = true
	f.timer = time.AfterFunc(f.interval, f.fire)
}

// -----------------------------------------------------------------------------

func (f *FlushScheduler) fire() {
	f.mu.Lock()
	if !f.alive {
		// Fired after teardown; the liveness flag is the guard, not timer
		// cancellation timing.
		f.mu.Unlock()
		return
	}
	f.pending = false
	f.mu.Unlock()

	f.publish()
}

// -----------------------------------------------------------------------------

// Pending reports whether a flush is armed.
func (f *FlushScheduler) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// -----------------------------------------------------------------------------

// Close cancels any armed timer and suppresses late firings.
func (f *FlushScheduler) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.alive = false
	f.pending = false
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}
