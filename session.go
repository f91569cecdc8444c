package payment

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bellodavid/external-payment/countdown"
	"github.com/bellodavid/external-payment/form"
	"github.com/bellodavid/external-payment/metrics"
	"github.com/bellodavid/external-payment/models"
	"github.com/bellodavid/external-payment/models/enum"
	"github.com/bellodavid/external-payment/money"
	"github.com/bellodavid/external-payment/quote"
	"github.com/bellodavid/external-payment/verification"
)

// Session implements Checkout. It owns all per-checkout state; the manager's
// collaborators are shared.
type Session struct {
	id      string
	cfg     Config
	fee     decimal.Decimal
	total   decimal.Decimal
	manager *Manager
	events  *EventManager
	logger  *zap.Logger

	mu              sync.Mutex
	step            enum.CheckoutStep
	contact         models.Contact
	fieldErrors     map[string]string
	reference       string
	verificationErr string
	verifying       bool
	transactionID   string
	closed          bool
	generation      uint64
	timer           *countdown.Timer
	fetcher         *quote.Fetcher
	redirect        *time.Timer
}

func newSession(cfg Config, m *Manager) *Session {
	s := &Session{
		id:      ksuid.New().String(),
		cfg:     cfg,
		fee:     money.CalculateFee(cfg.Amount),
		total:   money.Total(cfg.Amount),
		manager: m,
		events:  NewEventManager(m.logger),
		step:    enum.CheckoutStepDetails,
		contact: models.Contact{SignUpConsent: true},
	}
	s.logger = m.logger.With(zap.String("session_id", s.id))
	s.fieldErrors = form.Validate(s.contact)

	tickOpts := []countdown.Option{countdown.OnExpire(s.handleExpiry)}
	if cfg.TickInterval > 0 {
		tickOpts = append(tickOpts, countdown.WithInterval(cfg.TickInterval))
	}
	s.timer = countdown.New(tickOpts...)

	m.recorder.IncCounter(metrics.EventSessionStarted, s.labels())
	return s
}

func (s *Session) labels() map[string]string {
	return map[string]string{"currency": s.cfg.Currency}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Step() enum.CheckoutStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Session) Contact() models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contact
}

// UpdateContact mutates one contact field by its JSON name and revalidates the
// whole record. Unknown field names are rejected.
func (s *Session) UpdateContact(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	switch field {
	case "firstName":
		s.contact.FirstName = value
	case "lastName":
		s.contact.LastName = value
	case "email":
		s.contact.Email = value
	case "phoneNumber":
		s.contact.PhoneNumber = value
	case "address":
		s.contact.Address = value
	default:
		return &UnknownFieldError{Field: field}
	}

	s.fieldErrors = form.Validate(s.contact)
	return nil
}

func (s *Session) SetSignUpConsent(consent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contact.SignUpConsent = consent
}

func (s *Session) FieldErrors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.fieldErrors))
	for k, v := range s.fieldErrors {
		out[k] = v
	}
	return out
}

func (s *Session) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fieldErrors) == 0
}

func (s *Session) Amount() decimal.Decimal { return s.cfg.Amount }
func (s *Session) Fee() decimal.Decimal    { return s.fee }
func (s *Session) Total() decimal.Decimal  { return s.total }
func (s *Session) Currency() string        { return s.cfg.Currency }
func (s *Session) WalletAddress() string   { return s.cfg.WalletAddress }
func (s *Session) Description() string     { return s.cfg.Description }

func (s *Session) Equivalent() (decimal.Decimal, bool) {
	s.mu.Lock()
	fetcher := s.fetcher
	s.mu.Unlock()
	if fetcher == nil {
		return decimal.Zero, false
	}
	return fetcher.Resolved()
}

// RefreshEquivalent re-runs the settlement equivalence fetch. No-op before the
// payment step, where there is nothing to refresh yet.
func (s *Session) RefreshEquivalent(ctx context.Context) {
	s.mu.Lock()
	fetcher := s.fetcher
	s.mu.Unlock()
	if fetcher != nil {
		fetcher.Refetch(ctx)
	}
}

func (s *Session) Remaining() int {
	return s.timer.Remaining()
}

// Expired reports whether the payment window has closed. Only meaningful on
// the payment step; details and success never expire.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step == enum.CheckoutStepPayment && s.timer.Remaining() == 0
}

func (s *Session) VerificationError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verificationErr
}

func (s *Session) Verifying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifying
}

// TransactionID returns the id minted by a successful verification, or "".
func (s *Session) TransactionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactionID
}

func (s *Session) Events() *EventManager {
	return s.events
}

// SubmitDetails validates the contact record and, if clean, advances to the
// payment step: the countdown starts, the equivalence fetch is issued, and an
// account sign-up is queued off the critical path.
func (s *Session) SubmitDetails(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.step != enum.CheckoutStepDetails {
		s.mu.Unlock()
		return ErrNotInDetails
	}

	s.fieldErrors = form.Validate(s.contact)
	if len(s.fieldErrors) > 0 {
		fields := make(map[string]string, len(s.fieldErrors))
		for k, v := range s.fieldErrors {
			fields[k] = v
		}
		s.mu.Unlock()
		s.events.publish(Event{
			Type:      enum.EventTypeDetailsRejected,
			SessionID: s.id,
			Step:      enum.CheckoutStepDetails,
			Fields:    fields,
		})
		return ErrDetailsInvalid
	}

	s.step = enum.CheckoutStepPayment
	contact := s.contact
	ttl := s.cfg.SessionTTL

	fetcher := quote.NewFetcher(s.manager.quotes, s.total, s.cfg.Currency, s.logger)
	fetcher.OnDone(s.handleQuoteOutcome)
	s.fetcher = fetcher
	s.mu.Unlock()

	s.timer.Start(ttl)
	fetcher.Refetch(ctx)
	s.queueProvisioning(contact)

	s.manager.recorder.IncCounter(metrics.EventStepAdvanced, s.labels())
	s.events.publish(Event{
		Type:      enum.EventTypeStepChanged,
		SessionID: s.id,
		Step:      enum.CheckoutStepPayment,
	})
	s.logger.Info("checkout advanced to payment",
		zap.String("currency", s.cfg.Currency),
		zap.Int("countdown_seconds", ttl))
	return nil
}

func (s *Session) queueProvisioning(contact models.Contact) {
	if !contact.SignUpConsent {
		s.logger.Debug("sign-up consent withheld, skipping provisioning")
		return
	}

	secret, err := money.GenerateSecret(money.DefaultSecretLength)
	if err != nil {
		// no credential, no sign-up; the payment flow is unaffected
		s.logger.Error("failed to generate placeholder credential", zap.Error(err))
		return
	}

	s.manager.pool.Submit(s.id, s.cfg.Currency, models.User{
		FirstName:      contact.FirstName,
		LastName:       contact.LastName,
		Email:          contact.Email,
		Password:       secret,
		TermsOfService: true,
	})
}

func (s *Session) handleQuoteOutcome(value decimal.Decimal, err error) {
	if err != nil {
		s.manager.recorder.IncCounter(metrics.EventQuoteFailed, s.labels())
		s.events.publish(Event{
			Type:      enum.EventTypeQuoteFailed,
			SessionID: s.id,
			Step:      s.Step(),
			Message:   err.Error(),
		})
		return
	}
	s.manager.recorder.IncCounter(metrics.EventQuoteResolved, s.labels())
	s.events.publish(Event{
		Type:      enum.EventTypeQuoteResolved,
		SessionID: s.id,
		Step:      s.Step(),
		Message:   value.StringFixed(2),
	})
}

func (s *Session) handleExpiry() {
	s.mu.Lock()
	if s.closed || s.step != enum.CheckoutStepPayment {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.manager.recorder.IncCounter(metrics.EventSessionExpired, s.labels())
	s.events.publish(Event{
		Type:      enum.EventTypeSessionExpired,
		SessionID: s.id,
		Step:      enum.CheckoutStepPayment,
	})
	s.logger.Info("payment session expired")
}

// Verify submits the user-supplied transaction reference to the verification
// collaborator. An expired countdown refuses the attempt locally, before any
// network call; this is a UX guard, not a security boundary.
func (s *Session) Verify(ctx context.Context, reference string) (*verification.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.step != enum.CheckoutStepPayment {
		s.mu.Unlock()
		return nil, ErrNotInPayment
	}
	if s.verifying {
		s.mu.Unlock()
		return nil, ErrVerificationPending
	}
	if s.timer.Remaining() == 0 {
		s.mu.Unlock()
		s.manager.recorder.IncCounter(metrics.EventVerificationRefused, s.labels())
		s.events.publish(Event{
			Type:      enum.EventTypeSessionExpired,
			SessionID: s.id,
			Step:      enum.CheckoutStepPayment,
			Message:   "Payment session has expired. Please start over.",
		})
		return nil, ErrSessionExpired
	}

	s.verifying = true
	s.reference = reference
	s.verificationErr = ""
	email := s.contact.Email
	gen := s.generation
	s.mu.Unlock()

	started := time.Now()
	result, err := s.manager.verifier.Verify(ctx, verification.Request{
		Reference: reference,
		Amount:    s.total,
		Currency:  s.cfg.Currency,
		StoreID:   s.cfg.StoreID,
		Email:     email,
	})
	elapsed := time.Since(started)
	s.manager.recorder.ObserveLatency(metrics.OpVerification, elapsed, s.labels())

	if err != nil {
		return nil, s.failVerification(err, gen)
	}
	if err = s.completeVerification(result, gen); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Session) failVerification(err error, gen uint64) error {
	s.mu.Lock()
	if s.closed || s.step != enum.CheckoutStepPayment || s.generation != gen {
		// the attempt was abandoned while the call was outstanding
		s.mu.Unlock()
		return err
	}
	s.verifying = false
	s.verificationErr = err.Error()
	s.mu.Unlock()

	s.manager.recorder.IncCounter(metrics.EventVerificationFailed, s.labels())
	s.events.publish(Event{
		Type:      enum.EventTypeVerificationFailed,
		SessionID: s.id,
		Step:      enum.CheckoutStepPayment,
		Message:   err.Error(),
	})
	s.logger.Warn("payment verification failed", zap.Error(err))
	return err
}

// completeVerification commits a successful outcome. The session may have
// been reset or closed while the verifier call was outstanding; a stale
// outcome is discarded instead of advancing the step.
func (s *Session) completeVerification(result *verification.Result, gen uint64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.step != enum.CheckoutStepPayment || s.generation != gen {
		s.mu.Unlock()
		return ErrNotInPayment
	}
	s.verifying = false
	s.step = enum.CheckoutStepSuccess
	s.transactionID = result.TransactionID
	delay := s.cfg.RedirectDelay
	s.redirect = time.AfterFunc(delay, func() {
		s.fireRedirect(result.TransactionID)
	})
	s.mu.Unlock()

	s.timer.Stop()
	s.saveReceipt(result)

	s.manager.recorder.IncCounter(metrics.EventVerificationOK, s.labels())
	s.events.publish(Event{
		Type:      enum.EventTypeVerificationSuccess,
		SessionID: s.id,
		Step:      enum.CheckoutStepSuccess,
		Fields:    map[string]string{"transactionId": result.TransactionID},
	})
	s.events.publish(Event{
		Type:      enum.EventTypeStepChanged,
		SessionID: s.id,
		Step:      enum.CheckoutStepSuccess,
	})
	s.logger.Info("payment verified",
		zap.String("transaction_id", result.TransactionID))
	return nil
}

func (s *Session) saveReceipt(result *verification.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var equivalent *decimal.Decimal
	if value, ok := s.Equivalent(); ok {
		equivalent = &value
	}

	s.mu.Lock()
	receipt := &models.Receipt{
		SessionID:     s.id,
		StoreID:       s.cfg.StoreID,
		Amount:        s.cfg.Amount,
		Fee:           s.fee,
		Total:         s.total,
		Currency:      s.cfg.Currency,
		Equivalent:    equivalent,
		TransactionID: result.TransactionID,
		Reference:     s.reference,
		Email:         s.contact.Email,
		CompletedAt:   time.Now().UTC(),
	}
	s.mu.Unlock()

	if err := s.manager.receipts.Save(ctx, receipt); err != nil {
		s.logger.Error("failed to store receipt", zap.Error(err))
	}
}

func (s *Session) fireRedirect(transactionID string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	onSuccess := s.cfg.OnSuccess
	callbackURL := s.cfg.CallbackURL
	s.mu.Unlock()

	if onSuccess != nil {
		onSuccess(transactionID)
		return
	}
	s.events.publish(Event{
		Type:      enum.EventTypeRedirect,
		SessionID: s.id,
		Step:      enum.CheckoutStepSuccess,
		Message:   callbackURL,
	})
}

// Reset returns the session to a blank details step. Valid from any step; an
// expired payment attempt restarts here.
func (s *Session) Reset() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.step = enum.CheckoutStepDetails
	s.contact = models.Contact{SignUpConsent: true}
	s.fieldErrors = form.Validate(s.contact)
	s.reference = ""
	s.verificationErr = ""
	s.verifying = false
	s.transactionID = ""
	s.fetcher = nil
	// invalidates any verification outcome still in flight
	s.generation++
	if s.redirect != nil {
		s.redirect.Stop()
		s.redirect = nil
	}
	s.mu.Unlock()

	s.timer.Stop()
	s.manager.recorder.IncCounter(metrics.EventSessionReset, s.labels())
	s.events.publish(Event{
		Type:      enum.EventTypeSessionReset,
		SessionID: s.id,
		Step:      enum.CheckoutStepDetails,
	})
	s.events.publish(Event{
		Type:      enum.EventTypeStepChanged,
		SessionID: s.id,
		Step:      enum.CheckoutStepDetails,
	})
}

// Close tears the session down and cancels every pending timer. A redirect
// scheduled but not yet fired will not fire. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.redirect != nil {
		s.redirect.Stop()
		s.redirect = nil
	}
	s.mu.Unlock()

	s.timer.Stop()
}
