package consensus

import (
	"sync"
	"time"
)

// Timer runs one deferred callback at a time. Arming it again or
// denying it cancels the pending invocation.
type Timer struct {
	mu       sync.Mutex
	duration time.Duration
	pending  *time.Timer
}

func NewTimer(d time.Duration) *Timer {
	return &Timer{duration: d}
}

// Invoke schedules fn after the configured delay, replacing any
// pending invocation.
func (t *Timer) Invoke(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
	}
	t.pending = time.AfterFunc(t.duration, fn)
}

// Deny cancels the pending invocation.
func (t *Timer) Deny() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}
