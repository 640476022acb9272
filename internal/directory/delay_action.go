package directory

import (
	"sync"
	"time"
)

// DelayAction coalesces bursts of triggers into a single deferred execution:
// each Do cancels any pending run and schedules a new one a fixed delay out,
// so the action runs at most once per burst, after the last trigger. The
// action must recompute from current state, not from captured arguments, so
// only the freshest state is ever published.
type DelayAction struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
}

// NewDelayAction creates a coalescing action with the given delay window.
func NewDelayAction(delay time.Duration, fn func()) *DelayAction {
	return &DelayAction{delay: delay, fn: fn}
}

// Do schedules the action, absorbing any pending execution.
func (a *DelayAction) Do() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fn)
}

// Stop cancels any pending execution.
func (a *DelayAction) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
