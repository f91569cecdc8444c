package countdown

import (
	"sync"
	"time"
)

// Timer counts a deadline down one second at a time. The remaining value only
// ever decreases, with a floor of zero; the expiry callback fires exactly once
// per Start. Stop is safe to call from any state and any number of times.
type Timer struct {
	mu        sync.Mutex
	interval  time.Duration
	remaining int
	running   bool
	expired   bool
	done      chan struct{}
	onTick    func(remaining int)
	onExpire  func()
}

type Option func(*Timer)

// WithInterval overrides the one-second tick granularity. Intended for tests.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) {
		t.interval = d
	}
}

// OnTick registers a callback invoked with the remaining seconds after every
// decrement.
func OnTick(fn func(remaining int)) Option {
	return func(t *Timer) {
		t.onTick = fn
	}
}

// OnExpire registers a callback invoked once when the countdown reaches zero.
func OnExpire(fn func()) Option {
	return func(t *Timer) {
		t.onExpire = fn
	}
}

func New(opts ...Option) *Timer {
	t := &Timer{interval: time.Second}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins a fresh countdown from durationSeconds. A previous run, if any,
// is stopped first; its pending ticks are discarded.
func (t *Timer) Start(durationSeconds int) {
	t.mu.Lock()
	t.stopLocked()
	t.remaining = durationSeconds
	t.expired = false
	if durationSeconds <= 0 {
		t.mu.Unlock()
		return
	}
	t.running = true
	done := make(chan struct{})
	t.done = done
	interval := t.interval
	t.mu.Unlock()

	go t.loop(interval, done)
}

func (t *Timer) loop(interval time.Duration, done chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if t.tick() {
				return
			}
		case <-done:
			return
		}
	}
}

// tick applies a single one-second decrement. It reports whether the countdown
// has finished, either by expiry or because the timer was stopped.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if !t.running || t.remaining <= 0 {
		t.mu.Unlock()
		return true
	}

	t.remaining--
	remaining := t.remaining
	onTick, onExpire := t.onTick, t.onExpire

	expired := false
	if remaining == 0 && !t.expired {
		t.expired = true
		expired = true
		t.stopLocked()
	}
	t.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if expired && onExpire != nil {
		onExpire()
	}
	return expired
}

// Remaining returns the whole seconds left. Zero means expired or not started.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Stop halts ticking and releases the timer goroutine. Idempotent.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Timer) stopLocked() {
	if !t.running {
		return
	}
	t.running = false
	close(t.done)
	t.done = nil
}
