package directory

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDelayActionCoalescesBurst(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	action := NewDelayAction(50*time.Millisecond, func() { runs.Add(1) })
	defer action.Stop()

	for i := 0; i < 5; i++ {
		action.Do()
	}
	time.Sleep(200 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Fatalf("burst of 5 triggers ran %d times, want 1", got)
	}

	// A second burst is a fresh window.
	action.Do()
	time.Sleep(200 * time.Millisecond)
	if got := runs.Load(); got != 2 {
		t.Fatalf("second burst total = %d runs, want 2", got)
	}
}

func TestDelayActionStopCancelsPending(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	action := NewDelayAction(50*time.Millisecond, func() { runs.Add(1) })

	action.Do()
	action.Stop()

	time.Sleep(150 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Fatalf("stopped action still ran %d times", got)
	}
}

func TestDelayActionStopWithoutPending(t *testing.T) {
	t.Parallel()

	action := NewDelayAction(time.Millisecond, func() {})
	action.Stop()
	action.Stop()
}
