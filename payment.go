package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bellodavid/external-payment/models"
	"github.com/bellodavid/external-payment/models/enum"
	"github.com/bellodavid/external-payment/verification"
)

// Checkout is one run of the details → payment → success flow. A session is
// safe for concurrent use; all mutations are serialized internally.
type Checkout interface {
	ID() string
	Step() enum.CheckoutStep

	// Contact handling. Fields are editable at any step but only validated
	// before leaving the details step.
	Contact() models.Contact
	UpdateContact(field, value string) error
	SetSignUpConsent(consent bool)
	FieldErrors() map[string]string
	IsValid() bool

	// Amounts. The base amount and currency are fixed for the session.
	Amount() decimal.Decimal
	Fee() decimal.Decimal
	Total() decimal.Decimal
	Currency() string
	WalletAddress() string
	Description() string

	// Equivalent reports the settlement-asset amount once resolved.
	Equivalent() (decimal.Decimal, bool)
	RefreshEquivalent(ctx context.Context)

	// Payment-step state.
	Remaining() int
	Expired() bool
	VerificationError() string
	Verifying() bool
	TransactionID() string

	// Transitions.
	SubmitDetails(ctx context.Context) error
	Verify(ctx context.Context, reference string) (*verification.Result, error)
	Reset()

	Events() *EventManager
	Close()
}
