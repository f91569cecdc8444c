package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt records a completed checkout. It is written once when a session
// reaches the success step and is never updated.
type Receipt struct {
	SessionID     string           `json:"session_id"`
	StoreID       string           `json:"store_id"`
	Amount        decimal.Decimal  `json:"amount"`
	Fee           decimal.Decimal  `json:"fee"`
	Total         decimal.Decimal  `json:"total"`
	Currency      string           `json:"currency"`
	Equivalent    *decimal.Decimal `json:"equivalent,omitempty"`
	TransactionID string           `json:"transaction_id"`
	Reference     string           `json:"reference"`
	Email         string           `json:"email"`
	CompletedAt   time.Time        `json:"completed_at"`
}
