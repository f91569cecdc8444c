package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoQuote means the price service answered but carried no quote for the
// requested currency. Distinct from transport or HTTP failures.
var ErrNoQuote = errors.New("no quote available")

type Service interface {
	// UnitPrice returns the settlement asset's unit price denominated in the
	// given currency code.
	UnitPrice(ctx context.Context, currency string) (decimal.Decimal, error)
	// Equivalent converts amount from the given currency into the settlement
	// asset at the current unit price.
	Equivalent(ctx context.Context, amount decimal.Decimal, currency string) (decimal.Decimal, error)
}

type service struct {
	baseURL string
	assetID string
	client  *http.Client
	logger  *zap.Logger
}

func NewService(baseURL, assetID string, logger *zap.Logger) Service {
	return &service{
		baseURL: strings.TrimRight(baseURL, "/"),
		assetID: assetID,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (s *service) UnitPrice(ctx context.Context, currency string) (decimal.Decimal, error) {
	code := strings.ToLower(currency)
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		s.baseURL, url.QueryEscape(s.assetID), url.QueryEscape(code))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build quote request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch %s price: %w", s.assetID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("failed to fetch %s price: unexpected status %d", s.assetID, resp.StatusCode)
	}

	var payload map[string]map[string]decimal.Decimal
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode quote response: %w", err)
	}

	price, ok := payload[s.assetID][code]
	if !ok || price.IsZero() {
		return decimal.Zero, fmt.Errorf("%w for %s", ErrNoQuote, currency)
	}

	return price, nil
}

func (s *service) Equivalent(ctx context.Context, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	price, err := s.UnitPrice(ctx, currency)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Div(price), nil
}
