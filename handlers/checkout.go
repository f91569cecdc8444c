package handlers

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	payment "github.com/bellodavid/external-payment"
	"github.com/bellodavid/external-payment/models/enum"
	"github.com/bellodavid/external-payment/money"
	"github.com/bellodavid/external-payment/verification"
)

type CheckoutHandler interface {
	CreateSession(c echo.Context) error
	GetSession(c echo.Context) error
	UpdateContact(c echo.Context) error
	SubmitDetails(c echo.Context) error
	VerifyPayment(c echo.Context) error
	ResetSession(c echo.Context) error
	CloseSession(c echo.Context) error
	WalletQR(c echo.Context) error
}

// expiredSessionGrace is how long an expired session stays addressable. An
// expired checkout can still be restarted with a reset, so eviction waits
// before giving up on the client.
const expiredSessionGrace = 10 * time.Minute

type checkoutHandler struct {
	Manager   *payment.Manager
	Logger    *zap.Logger
	reapGrace time.Duration

	mu       sync.RWMutex
	sessions map[string]*payment.Session
}

func NewCheckoutHandler(manager *payment.Manager, logger *zap.Logger) CheckoutHandler {
	return &checkoutHandler{
		Manager:   manager,
		Logger:    logger,
		reapGrace: expiredSessionGrace,
		sessions:  make(map[string]*payment.Session),
	}
}

type createSessionRequest struct {
	StoreID       string `json:"store_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	WalletAddress string `json:"wallet_address"`
	Description   string `json:"description"`
	CallbackURL   string `json:"callback_url"`
}

type sessionView struct {
	ID                string            `json:"id"`
	Step              enum.CheckoutStep `json:"step"`
	Amount            string            `json:"amount"`
	Fee               string            `json:"fee"`
	Total             string            `json:"total"`
	Currency          string            `json:"currency"`
	WalletAddress     string            `json:"wallet_address"`
	Description       string            `json:"description,omitempty"`
	Equivalent        string            `json:"equivalent,omitempty"`
	RemainingSeconds  int               `json:"remaining_seconds"`
	Countdown         string            `json:"countdown"`
	Expired           bool              `json:"expired"`
	FieldErrors       map[string]string `json:"field_errors,omitempty"`
	VerificationError string            `json:"verification_error,omitempty"`
	TransactionID     string            `json:"transaction_id,omitempty"`
}

func newSessionView(s *payment.Session) sessionView {
	view := sessionView{
		ID:                s.ID(),
		Step:              s.Step(),
		Amount:            s.Amount().StringFixed(2),
		Fee:               s.Fee().StringFixed(2),
		Total:             s.Total().StringFixed(2),
		Currency:          s.Currency(),
		WalletAddress:     s.WalletAddress(),
		Description:       s.Description(),
		RemainingSeconds:  s.Remaining(),
		Countdown:         money.FormatCountdown(s.Remaining()),
		Expired:           s.Expired(),
		FieldErrors:       s.FieldErrors(),
		VerificationError: s.VerificationError(),
		TransactionID:     s.TransactionID(),
	}
	if equivalent, ok := s.Equivalent(); ok {
		view.Equivalent = equivalent.StringFixed(2)
	}
	return view
}

func (ch *checkoutHandler) CreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	if err := validateCreateSessionRequest(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "amount must be a decimal number"})
	}

	session, err := ch.Manager.NewSession(payment.Config{
		StoreID:       req.StoreID,
		Amount:        amount,
		Currency:      req.Currency,
		WalletAddress: req.WalletAddress,
		Description:   req.Description,
		CallbackURL:   req.CallbackURL,
	})
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ch.mu.Lock()
	ch.sessions[session.ID()] = session
	ch.mu.Unlock()

	session.Events().Subscribe(enum.EventTypeSessionExpired, func(payment.Event) {
		time.AfterFunc(ch.reapGrace, func() {
			ch.reapIfExpired(session.ID())
		})
	})

	ch.Logger.Info("checkout session created",
		zap.String("session_id", session.ID()),
		zap.String("store_id", req.StoreID),
		zap.String("currency", req.Currency))
	return c.JSON(http.StatusCreated, newSessionView(session))
}

func (ch *checkoutHandler) GetSession(c echo.Context) error {
	session, err := ch.lookup(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}
	return c.JSON(http.StatusOK, newSessionView(session))
}

type updateContactRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (ch *checkoutHandler) UpdateContact(c echo.Context) error {
	session, err := ch.lookup(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}

	var req updateContactRequest
	if err = c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	if req.Field == "signUpConsent" {
		session.SetSignUpConsent(req.Value == "true")
		return c.JSON(http.StatusOK, newSessionView(session))
	}

	if err = session.UpdateContact(req.Field, req.Value); err != nil {
		var unknown *payment.UnknownFieldError
		if errors.As(err, &unknown) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, newSessionView(session))
}

func (ch *checkoutHandler) SubmitDetails(c echo.Context) error {
	session, err := ch.lookup(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}

	if err = session.SubmitDetails(c.Request().Context()); err != nil {
		if errors.Is(err, payment.ErrDetailsInvalid) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{
				"error":        err.Error(),
				"field_errors": session.FieldErrors(),
			})
		}
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, newSessionView(session))
}

type verifyRequest struct {
	Reference string `json:"reference"`
}

func (ch *checkoutHandler) VerifyPayment(c echo.Context) error {
	session, err := ch.lookup(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}

	var req verifyRequest
	if err = c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	result, err := session.Verify(c.Request().Context(), req.Reference)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrSessionExpired):
			return c.JSON(http.StatusGone, map[string]string{"error": "Payment session has expired. Please start over."})
		case errors.Is(err, payment.ErrVerificationPending):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, payment.ErrNotInPayment), errors.Is(err, payment.ErrSessionClosed):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}

		var vErr *verification.Error
		if errors.As(err, &vErr) {
			return c.JSON(http.StatusPaymentRequired, map[string]string{"error": vErr.Message})
		}

		ch.Logger.Error("verification call failed",
			zap.Error(err),
			zap.String("session_id", session.ID()))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Verification is temporarily unavailable"})
	}

	view := newSessionView(session)
	view.TransactionID = result.TransactionID
	return c.JSON(http.StatusOK, view)
}

func (ch *checkoutHandler) ResetSession(c echo.Context) error {
	session, err := ch.lookup(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}
	session.Reset()
	return c.JSON(http.StatusOK, newSessionView(session))
}

func (ch *checkoutHandler) CloseSession(c echo.Context) error {
	id := c.Param("id")

	ch.mu.Lock()
	session, ok := ch.sessions[id]
	delete(ch.sessions, id)
	ch.mu.Unlock()

	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}
	session.Close()
	return c.NoContent(http.StatusNoContent)
}

// WalletQR renders the settlement wallet address as a QR code PNG.
func (ch *checkoutHandler) WalletQR(c echo.Context) error {
	session, err := ch.lookup(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}

	png, err := qrcode.Encode(session.WalletAddress(), qrcode.Medium, 256)
	if err != nil {
		ch.Logger.Error("failed to generate wallet QR code", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate QR code"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// reapIfExpired evicts a session that is still expired once the grace period
// has passed. A session the client reset in the meantime is left alone.
func (ch *checkoutHandler) reapIfExpired(id string) {
	ch.mu.Lock()
	session, ok := ch.sessions[id]
	if !ok || !session.Expired() {
		ch.mu.Unlock()
		return
	}
	delete(ch.sessions, id)
	ch.mu.Unlock()

	session.Close()
	ch.Logger.Info("reaped expired checkout session", zap.String("session_id", id))
}

func (ch *checkoutHandler) lookup(id string) (*payment.Session, error) {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	session, ok := ch.sessions[id]
	if !ok {
		return nil, errors.New("session not found")
	}
	return session, nil
}

func validateCreateSessionRequest(req createSessionRequest) error {
	if req.Amount == "" {
		return errors.New("amount is required")
	}
	if req.Currency == "" {
		return errors.New("currency is required")
	}
	if req.WalletAddress == "" {
		return errors.New("wallet_address is required")
	}
	return nil
}
