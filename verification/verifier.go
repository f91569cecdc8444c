package verification

import (
	"context"

	"github.com/shopspring/decimal"
)

// Request carries everything the external collaborator needs to verify a
// transfer. The reference is opaque to this system.
type Request struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	StoreID   string          `json:"store_id"`
	Email     string          `json:"email"`
}

// Result is a successful verification outcome.
type Result struct {
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

// Error is a verification rejection. Its message is shown to the user
// verbatim, so implementations must keep it human-readable.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

type Verifier interface {
	Verify(ctx context.Context, req Request) (*Result, error)
}
