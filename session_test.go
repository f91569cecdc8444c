package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bellodavid/external-payment/account"
	"github.com/bellodavid/external-payment/config"
	"github.com/bellodavid/external-payment/metrics"
	"github.com/bellodavid/external-payment/models/enum"
	"github.com/bellodavid/external-payment/store"
	"github.com/bellodavid/external-payment/verification"
)

// scriptedVerifier counts calls and replays a fixed outcome.
type scriptedVerifier struct {
	calls  atomic.Int64
	mu     sync.Mutex
	result *verification.Result
	err    error
}

func (v *scriptedVerifier) Verify(ctx context.Context, req verification.Request) (*verification.Result, error) {
	v.calls.Add(1)
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	return v.result, nil
}

func (v *scriptedVerifier) set(result *verification.Result, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.result, v.err = result, err
}

// fixedQuotes resolves every equivalence request to a constant.
type fixedQuotes struct {
	value decimal.Decimal
}

func (q fixedQuotes) UnitPrice(ctx context.Context, currency string) (decimal.Decimal, error) {
	return decimal.New(1, 0), nil
}

func (q fixedQuotes) Equivalent(ctx context.Context, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	return q.value, nil
}

// gatedVerifier blocks every call until released, so tests control when the
// outcome lands.
type gatedVerifier struct {
	release chan struct{}
	result  *verification.Result
	err     error
}

func (v *gatedVerifier) Verify(ctx context.Context, req verification.Request) (*verification.Result, error) {
	<-v.release
	if v.err != nil {
		return nil, v.err
	}
	return v.result, nil
}

func newManagerWith(t *testing.T, verifier verification.Verifier, receipts store.ReceiptStore) *Manager {
	t.Helper()
	signupSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(signupSrv.Close)

	logger := zap.NewNop()
	m := NewManager(
		&config.Config{},
		fixedQuotes{value: decimal.New(5, 0)},
		verifier,
		account.NewClient(signupSrv.URL, logger),
		receipts,
		metrics.NoopRecorder{},
		logger,
	)
	t.Cleanup(m.Close)
	return m
}

type testEnv struct {
	manager  *Manager
	verifier *scriptedVerifier
	receipts *store.MemoryStore
	signups  *atomic.Int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	var signups atomic.Int64
	signupSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signups.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(signupSrv.Close)

	verifier := &scriptedVerifier{}
	verifier.set(&verification.Result{TransactionID: "TX-test00001", Message: "Payment verified successfully"}, nil)

	receipts := store.NewMemoryStore()
	logger := zap.NewNop()
	manager := NewManager(
		&config.Config{},
		fixedQuotes{value: decimal.RequireFromString("5.51")},
		verifier,
		account.NewClient(signupSrv.URL, logger),
		receipts,
		metrics.NoopRecorder{},
		logger,
	)
	t.Cleanup(manager.Close)

	return &testEnv{manager: manager, verifier: verifier, receipts: receipts, signups: &signups}
}

func sessionConfig() Config {
	return Config{
		StoreID:       "store-1",
		Amount:        decimal.New(100, 0),
		Currency:      "ZAR",
		WalletAddress: "0xfeedface",
		Description:   "Test order",
		RedirectDelay: 25 * time.Millisecond,
	}
}

func fillContact(t *testing.T, s *Session) {
	t.Helper()
	for field, value := range map[string]string{
		"firstName":   "Ada",
		"lastName":    "Lovelace",
		"email":       "ada@example.com",
		"phoneNumber": "+2348012345678",
		"address":     "12 Analytical Way",
	} {
		if err := s.UpdateContact(field, value); err != nil {
			t.Fatalf("UpdateContact(%s) err: %v", field, err)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func TestNewSessionDerivedAmounts(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.manager.NewSession(sessionConfig())
	if err != nil {
		t.Fatalf("NewSession err: %v", err)
	}
	defer s.Close()

	if s.Step() != enum.CheckoutStepDetails {
		t.Fatalf("initial step = %s, want details", s.Step())
	}
	if !s.Fee().Equal(decimal.RequireFromString("1.99")) {
		t.Fatalf("fee = %s, want 1.99", s.Fee())
	}
	if !s.Total().Equal(decimal.RequireFromString("101.99")) {
		t.Fatalf("total = %s, want 101.99", s.Total())
	}
}

func TestNewSessionRejectsBadConfig(t *testing.T) {
	env := newTestEnv(t)
	bad := sessionConfig()
	bad.Amount = decimal.Zero
	if _, err := env.manager.NewSession(bad); err == nil {
		t.Fatalf("expected error for non-positive amount")
	}
	bad = sessionConfig()
	bad.WalletAddress = ""
	if _, err := env.manager.NewSession(bad); err == nil {
		t.Fatalf("expected error for missing wallet address")
	}
}

func TestSubmitDetailsRejectsInvalidContact(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.manager.NewSession(sessionConfig())
	defer s.Close()

	var rejected []Event
	s.Events().Subscribe(enum.EventTypeDetailsRejected, func(e Event) {
		rejected = append(rejected, e)
	})

	fillContact(t, s)
	_ = s.UpdateContact("email", "not-an-email")

	err := s.SubmitDetails(context.Background())
	if !errors.Is(err, ErrDetailsInvalid) {
		t.Fatalf("err = %v, want ErrDetailsInvalid", err)
	}
	if s.Step() != enum.CheckoutStepDetails {
		t.Fatalf("step = %s, want details", s.Step())
	}
	if len(rejected) != 1 {
		t.Fatalf("expected one details-rejected event, got %d", len(rejected))
	}
	if rejected[0].Fields["email"] != "Please enter a valid email address" {
		t.Fatalf("event fields = %v", rejected[0].Fields)
	}
}

func TestSubmitDetailsAdvancesToPayment(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.manager.NewSession(sessionConfig())
	defer s.Close()

	fillContact(t, s)
	if !s.IsValid() {
		t.Fatalf("contact should be valid: %v", s.FieldErrors())
	}

	if err := s.SubmitDetails(context.Background()); err != nil {
		t.Fatalf("SubmitDetails err: %v", err)
	}
	if s.Step() != enum.CheckoutStepPayment {
		t.Fatalf("step = %s, want payment", s.Step())
	}
	if s.Remaining() != 1800 {
		t.Fatalf("countdown = %d, want a fresh 1800", s.Remaining())
	}

	// provisioning runs detached from the flow
	waitFor(t, func() bool { return env.signups.Load() == 1 })

	// equivalence resolves in the background
	waitFor(t, func() bool {
		_, ok := s.Equivalent()
		return ok
	})
	value, _ := s.Equivalent()
	if !value.Equal(decimal.RequireFromString("5.51")) {
		t.Fatalf("equivalent = %s", value)
	}
}

func TestVerifyRefusedAfterExpiry(t *testing.T) {
	env := newTestEnv(t)
	cfg := sessionConfig()
	cfg.SessionTTL = 1
	cfg.TickInterval = 2 * time.Millisecond
	s, _ := env.manager.NewSession(cfg)
	defer s.Close()

	expired := make(chan struct{}, 2)
	s.Events().Subscribe(enum.EventTypeSessionExpired, func(Event) {
		expired <- struct{}{}
	})

	fillContact(t, s)
	if err := s.SubmitDetails(context.Background()); err != nil {
		t.Fatalf("SubmitDetails err: %v", err)
	}

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatalf("session never expired")
	}
	if !s.Expired() {
		t.Fatalf("Expired() = false after countdown hit zero")
	}

	_, err := s.Verify(context.Background(), "0xdead")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if env.verifier.calls.Load() != 0 {
		t.Fatalf("verifier was called %d times despite local expiry guard", env.verifier.calls.Load())
	}
}

func TestVerifyFailureLeavesPaymentResumable(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.manager.NewSession(sessionConfig())
	defer s.Close()

	var failures []Event
	s.Events().Subscribe(enum.EventTypeVerificationFailed, func(e Event) {
		failures = append(failures, e)
	})

	fillContact(t, s)
	_ = s.SubmitDetails(context.Background())

	env.verifier.set(nil, &verification.Error{Message: "Transfer not found on chain"})
	_, err := s.Verify(context.Background(), "0xbad")
	var vErr *verification.Error
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want verification.Error", err)
	}
	if s.Step() != enum.CheckoutStepPayment {
		t.Fatalf("step = %s after failed verification, want payment", s.Step())
	}
	if s.VerificationError() != "Transfer not found on chain" {
		t.Fatalf("verification error = %q", s.VerificationError())
	}
	if len(failures) != 1 || failures[0].Message != "Transfer not found on chain" {
		t.Fatalf("failure events = %v", failures)
	}

	// a corrected reference can still succeed while time remains
	env.verifier.set(&verification.Result{TransactionID: "TX-retry0001"}, nil)
	result, err := s.Verify(context.Background(), "0xgood")
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if s.Step() != enum.CheckoutStepSuccess {
		t.Fatalf("step = %s, want success", s.Step())
	}
	if result.TransactionID != "TX-retry0001" {
		t.Fatalf("transaction id = %s", result.TransactionID)
	}
	if s.VerificationError() != "" {
		t.Fatalf("verification error not cleared on new attempt")
	}
}

func TestVerifySuccessStoresReceiptAndFiresOnSuccess(t *testing.T) {
	env := newTestEnv(t)
	cfg := sessionConfig()
	var gotTx atomic.Value
	cfg.OnSuccess = func(transactionID string) {
		gotTx.Store(transactionID)
	}
	s, _ := env.manager.NewSession(cfg)
	defer s.Close()

	fillContact(t, s)
	_ = s.SubmitDetails(context.Background())

	if _, err := s.Verify(context.Background(), "0xdeadbeef"); err != nil {
		t.Fatalf("Verify err: %v", err)
	}

	receipt, err := env.receipts.Get(context.Background(), s.ID())
	if err != nil {
		t.Fatalf("receipt not stored: %v", err)
	}
	if receipt.TransactionID != "TX-test00001" || receipt.Reference != "0xdeadbeef" {
		t.Fatalf("receipt = %+v", receipt)
	}
	if !receipt.Total.Equal(decimal.RequireFromString("101.99")) {
		t.Fatalf("receipt total = %s", receipt.Total)
	}

	waitFor(t, func() bool { return gotTx.Load() != nil })
	if gotTx.Load().(string) != "TX-test00001" {
		t.Fatalf("OnSuccess got %v", gotTx.Load())
	}
}

func TestCloseBeforeRedirectCancelsCallback(t *testing.T) {
	env := newTestEnv(t)
	cfg := sessionConfig()
	cfg.RedirectDelay = 40 * time.Millisecond
	var fired atomic.Bool
	cfg.OnSuccess = func(string) { fired.Store(true) }
	s, _ := env.manager.NewSession(cfg)

	fillContact(t, s)
	_ = s.SubmitDetails(context.Background())
	if _, err := s.Verify(context.Background(), "0xdead"); err != nil {
		t.Fatalf("Verify err: %v", err)
	}

	s.Close()
	time.Sleep(100 * time.Millisecond)
	if fired.Load() {
		t.Fatalf("redirect callback fired after teardown")
	}
}

func TestResetReturnsToBlankDetails(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.manager.NewSession(sessionConfig())
	defer s.Close()

	fillContact(t, s)
	_ = s.SubmitDetails(context.Background())
	if _, err := s.Verify(context.Background(), "0xdead"); err != nil {
		t.Fatalf("Verify err: %v", err)
	}

	s.Reset()
	if s.Step() != enum.CheckoutStepDetails {
		t.Fatalf("step = %s after reset, want details", s.Step())
	}
	if s.Contact().FirstName != "" {
		t.Fatalf("contact survives reset")
	}
	if s.TransactionID() != "" {
		t.Fatalf("transaction id survives reset")
	}
	if !s.Contact().SignUpConsent {
		t.Fatalf("consent default lost on reset")
	}
}

func TestResetDuringInFlightVerifyDiscardsOutcome(t *testing.T) {
	verifier := &gatedVerifier{
		release: make(chan struct{}),
		result:  &verification.Result{TransactionID: "TX-late00001"},
	}
	receipts := store.NewMemoryStore()
	manager := newManagerWith(t, verifier, receipts)

	cfg := sessionConfig()
	var fired atomic.Bool
	cfg.OnSuccess = func(string) { fired.Store(true) }
	s, err := manager.NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession err: %v", err)
	}
	defer s.Close()

	fillContact(t, s)
	if err = s.SubmitDetails(context.Background()); err != nil {
		t.Fatalf("SubmitDetails err: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, verifyErr := s.Verify(context.Background(), "0xslow")
		done <- verifyErr
	}()

	// abandon the attempt while the verifier call is outstanding
	waitFor(t, func() bool { return s.Verifying() })
	s.Reset()
	close(verifier.release)

	if err = <-done; err == nil {
		t.Fatalf("stale verification outcome was accepted")
	}
	if s.Step() != enum.CheckoutStepDetails {
		t.Fatalf("step = %s after reset, want details", s.Step())
	}
	if s.TransactionID() != "" {
		t.Fatalf("transaction id committed for an abandoned attempt")
	}
	if _, err = receipts.Get(context.Background(), s.ID()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("receipt stored for an abandoned attempt, err = %v", err)
	}

	// the redirect must not fire late either
	time.Sleep(60 * time.Millisecond)
	if fired.Load() {
		t.Fatalf("success callback fired for an abandoned attempt")
	}
}

func TestResetDuringInFlightVerifyFailureLeavesStateClean(t *testing.T) {
	verifier := &gatedVerifier{
		release: make(chan struct{}),
		err:     &verification.Error{Message: "Transfer not found on chain"},
	}
	manager := newManagerWith(t, verifier, store.NewMemoryStore())

	s, err := manager.NewSession(sessionConfig())
	if err != nil {
		t.Fatalf("NewSession err: %v", err)
	}
	defer s.Close()

	var failures atomic.Int64
	s.Events().Subscribe(enum.EventTypeVerificationFailed, func(Event) {
		failures.Add(1)
	})

	fillContact(t, s)
	if err = s.SubmitDetails(context.Background()); err != nil {
		t.Fatalf("SubmitDetails err: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, verifyErr := s.Verify(context.Background(), "0xslow")
		done <- verifyErr
	}()

	waitFor(t, func() bool { return s.Verifying() })
	s.Reset()
	close(verifier.release)

	if err = <-done; err == nil {
		t.Fatalf("expected the abandoned attempt to surface its error")
	}
	if s.VerificationError() != "" {
		t.Fatalf("verification error %q recorded on a reset session", s.VerificationError())
	}
	if failures.Load() != 0 {
		t.Fatalf("failure event published for an abandoned attempt")
	}
	if s.Step() != enum.CheckoutStepDetails {
		t.Fatalf("step = %s after reset, want details", s.Step())
	}
}

func TestVerifyOutsidePaymentStep(t *testing.T) {
	env := newTestEnv(t)
	s, _ := env.manager.NewSession(sessionConfig())
	defer s.Close()

	if _, err := s.Verify(context.Background(), "0xdead"); !errors.Is(err, ErrNotInPayment) {
		t.Fatalf("err = %v, want ErrNotInPayment", err)
	}
	if err := s.SubmitDetails(context.Background()); !errors.Is(err, ErrDetailsInvalid) {
		t.Fatalf("empty contact must not pass validation, err = %v", err)
	}
}
