package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bellodavid/external-payment/config"
	"github.com/bellodavid/external-payment/metrics"
	"github.com/bellodavid/external-payment/quote"
	"github.com/bellodavid/external-payment/store"
	"github.com/bellodavid/external-payment/verification"

	"github.com/bellodavid/external-payment/account"
)

// Config is the embedding contract: what a host page supplies when it mounts
// the checkout. Amount and Currency are immutable for the session lifetime.
type Config struct {
	StoreID       string
	Amount        decimal.Decimal
	Currency      string
	WalletAddress string
	Description   string

	// CallbackURL is where the host is sent after success when no OnSuccess
	// hook is given. OnSuccess, when set, is invoked with the transaction id
	// in place of the redirect.
	CallbackURL string
	OnSuccess   func(transactionID string)

	// Optional overrides; zero values fall back to the manager defaults.
	SessionTTL    int
	RedirectDelay time.Duration

	// TickInterval overrides the countdown granularity. Tests only.
	TickInterval time.Duration
}

// Manager builds checkout sessions around a shared set of collaborators: the
// price-quote service, the payment verifier, the account provisioner, and the
// receipt store.
type Manager struct {
	quotes   quote.Service
	verifier verification.Verifier
	receipts store.ReceiptStore
	recorder metrics.Recorder
	logger   *zap.Logger
	pool     *ProvisionerPool

	defaultTTL      int
	defaultRedirect time.Duration
}

func NewManager(
	cfg *config.Config,
	quotes quote.Service,
	verifier verification.Verifier,
	accounts *account.Client,
	receipts store.ReceiptStore,
	recorder metrics.Recorder,
	logger *zap.Logger,
) *Manager {
	ttl := cfg.Checkout.SessionTTLSeconds
	if ttl <= 0 {
		ttl = 1800
	}
	redirect := time.Duration(cfg.Checkout.RedirectDelayMS) * time.Millisecond
	if redirect <= 0 {
		redirect = 3 * time.Second
	}

	return &Manager{
		quotes:          quotes,
		verifier:        verifier,
		receipts:        receipts,
		recorder:        recorder,
		logger:          logger,
		pool:            NewProvisionerPool(cfg.Checkout.ProvisionWorkers, cfg.Checkout.ProvisionQueueSize, accounts, recorder, logger),
		defaultTTL:      ttl,
		defaultRedirect: redirect,
	}
}

// NewSession starts a fresh checkout on the details step.
func (m *Manager) NewSession(cfg Config) (*Session, error) {
	if cfg.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("amount must be positive")
	}
	if cfg.Currency == "" {
		return nil, errors.New("currency is required")
	}
	if cfg.WalletAddress == "" {
		return nil, errors.New("wallet address is required")
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = m.defaultTTL
	}
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = m.defaultRedirect
	}

	return newSession(cfg, m), nil
}

// Close stops the shared provisioning workers. Sessions must be closed
// individually by their owners.
func (m *Manager) Close() {
	m.pool.Stop()
}
