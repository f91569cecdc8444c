package store

import (
	"context"
	"errors"

	"github.com/bellodavid/external-payment/models"
)

var ErrNotFound = errors.New("receipt not found")

// ReceiptStore persists completed-checkout receipts. This is the only
// persistence in the module; live sessions are never stored.
type ReceiptStore interface {
	Save(ctx context.Context, receipt *models.Receipt) error
	Get(ctx context.Context, sessionID string) (*models.Receipt, error)
	Delete(ctx context.Context, sessionID string) error
}
