package clipboard

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultResetDelay is how long the copied acknowledgement stays set.
const DefaultResetDelay = 3 * time.Second

// WriteFunc performs the actual clipboard write. The embedding host owns the
// real clipboard; this package only manages the acknowledgement state.
type WriteFunc func(text string) error

// Helper copies text through an injected writer and keeps a copied flag that
// clears itself after a delay. Write failures are logged as a diagnostic and
// reported through the return value only; copy is a convenience, not a
// correctness-critical path.
type Helper struct {
	write  WriteFunc
	delay  time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	copied bool
	reset  *time.Timer
}

type Option func(*Helper)

// WithResetDelay overrides the acknowledgement reset delay.
func WithResetDelay(d time.Duration) Option {
	return func(h *Helper) {
		h.delay = d
	}
}

func New(write WriteFunc, logger *zap.Logger, opts ...Option) *Helper {
	h := &Helper{
		write:  write,
		delay:  DefaultResetDelay,
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Copy writes text to the clipboard and reports whether it succeeded. On
// success the copied flag is set and scheduled to clear after the reset delay.
func (h *Helper) Copy(text string) bool {
	if err := h.write(text); err != nil {
		h.logger.Warn("clipboard write failed", zap.Error(err))
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.copied = true
	if h.reset != nil {
		h.reset.Stop()
	}
	h.reset = time.AfterFunc(h.delay, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.copied = false
	})
	return true
}

// Copied reports whether a copy was acknowledged within the reset delay.
func (h *Helper) Copied() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.copied
}

// Close cancels any pending reset. Safe to call multiple times.
func (h *Helper) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reset != nil {
		h.reset.Stop()
		h.reset = nil
	}
	h.copied = false
}
