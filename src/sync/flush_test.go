package sync

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestFlushCoalescesBurst(t *testing.T) {
	var fired atomic.Int64
	f := NewFlushScheduler(30*time.Millisecond, func() { fired.Add(1) })
	defer f.Close()

	for i := 0; i < 50; i++ {
		f.Mark()
	}

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("expected 1 coalesced flush, got %d", got)
	}
}

func TestFlushRearmsAfterFire(t *testing.T) {
	var fired atomic.Int64
	f := NewFlushScheduler(20*time.Millisecond, func() { fired.Add(1) })
	defer f.Close()

	f.Mark()
	time.Sleep(60 * time.Millisecond)
	f.Mark()
	time.Sleep(60 * time.Millisecond)

	if got := fired.Load(); got != 2 {
		t.Fatalf("expected 2 flushes across separate bursts, got %d", got)
	}
}

func TestFlushPublishSeesLatestState(t *testing.T) {
	// The callback must observe the value as of fire time, not Mark time.
	var current atomic.Int64
	var seen atomic.Int64

	f := NewFlushScheduler(30*time.Millisecond, func() { seen.Store(current.Load()) })
	defer f.Close()

	current.Store(1)
	f.Mark()
	current.Store(2)
	f.Mark() // coalesced
	current.Store(3)

	time.Sleep(100 * time.Millisecond)
	if got := seen.Load(); got != 3 {
		t.Fatalf("published stale state %d, want 3", got)
	}
}

func TestFlushAfterCloseIsNoOp(t *testing.T) {
	var fired atomic.Int64
	f := NewFlushScheduler(10*time.Millisecond, func() { fired.Add(1) })

	f.Mark()
	f.Close()

	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("flush fired after close: %d", got)
	}

	f.Mark()
	if f.Pending() {
		t.Fatalf("Mark armed a flush on a closed scheduler")
	}
}
