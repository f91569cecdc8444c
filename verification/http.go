package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPVerifier submits verification requests to the external collaborator.
type HTTPVerifier struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

func NewHTTPVerifier(endpoint string, logger *zap.Logger) *HTTPVerifier {
	return &HTTPVerifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

type verifyResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("verification request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verification request failed: unexpected status %d", resp.StatusCode)
	}

	var payload verifyResponse
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode verification response: %w", err)
	}

	if !payload.Success {
		message := payload.Message
		if message == "" {
			message = "Payment verification failed. Please try again."
		}
		return nil, &Error{Message: message}
	}

	return &Result{
		TransactionID: payload.TransactionID,
		Message:       payload.Message,
	}, nil
}
