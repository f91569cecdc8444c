package quote

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bellodavid/external-payment/models/enum"
)

// Fetcher resolves the settlement-asset equivalent of one (amount, currency)
// key and tracks the fetch lifecycle: idle → loading → resolved|failed.
// Fetches run in the background; a newer request supersedes any pending one,
// so a slow stale response can never overwrite a fresher value. On failure the
// last resolved value is left in place for the caller's display fallback.
type Fetcher struct {
	svc    Service
	logger *zap.Logger

	mu       sync.Mutex
	amount   decimal.Decimal
	currency string
	status   enum.QuoteStatus
	value    decimal.Decimal
	resolved bool
	err      error
	token    uint64

	// onDone, when set, observes every committed fetch outcome.
	onDone func(value decimal.Decimal, err error)
}

func NewFetcher(svc Service, amount decimal.Decimal, currency string, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		svc:      svc,
		amount:   amount,
		currency: currency,
		status:   enum.QuoteStatusIdle,
		logger:   logger,
	}
}

// OnDone registers an observer for committed outcomes. Superseded fetches are
// never reported.
func (f *Fetcher) OnDone(fn func(value decimal.Decimal, err error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDone = fn
}

// Rekey changes the (amount, currency) the fetcher resolves. Any in-flight
// fetch for the old key is invalidated.
func (f *Fetcher) Rekey(amount decimal.Decimal, currency string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.amount = amount
	f.currency = currency
	f.token++
}

// Refetch issues a new background request for the current key. A previous
// pending request, if any, is superseded.
func (f *Fetcher) Refetch(ctx context.Context) {
	f.mu.Lock()
	f.token++
	token := f.token
	f.status = enum.QuoteStatusLoading
	f.err = nil
	amount, currency := f.amount, f.currency
	f.mu.Unlock()

	go func() {
		value, err := f.svc.Equivalent(ctx, amount, currency)

		f.mu.Lock()
		if token != f.token {
			// superseded while in flight
			f.mu.Unlock()
			return
		}
		onDone := f.onDone
		if err != nil {
			f.status = enum.QuoteStatusFailed
			f.err = err
			f.mu.Unlock()
			f.logger.Warn("equivalence fetch failed",
				zap.String("currency", currency),
				zap.Error(err))
			if onDone != nil {
				onDone(decimal.Zero, err)
			}
			return
		}
		f.status = enum.QuoteStatusResolved
		f.value = value
		f.resolved = true
		f.mu.Unlock()

		if onDone != nil {
			onDone(value, nil)
		}
	}()
}

func (f *Fetcher) Status() enum.QuoteStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Resolved returns the last successfully resolved equivalent, if any. The
// value survives later failures so consumers can keep displaying it.
func (f *Fetcher) Resolved() (decimal.Decimal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.resolved
}

// Err returns the failure of the most recent fetch, or nil.
func (f *Fetcher) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
