package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bellodavid/external-payment/models"
)

// ProvisioningError reports a non-success response from the sign-up endpoint.
type ProvisioningError struct {
	StatusCode int
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("account provisioning failed with status %d", e.StatusCode)
}

// Client provisions accounts against the external sign-up endpoint. Failures
// here never block the payment flow; callers log and move on.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

func NewClient(endpoint string, logger *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

type signUpRequest struct {
	User models.User `json:"user"`
}

// SignUp creates an account for the given user. The email is trimmed and
// lowercased before submission; the response body beyond the status is not
// consumed.
func (c *Client) SignUp(ctx context.Context, user models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	body, err := json.Marshal(signUpRequest{User: user})
	if err != nil {
		return fmt.Errorf("failed to marshal sign-up request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sign-up request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sign-up request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &ProvisioningError{StatusCode: resp.StatusCode}
	}

	return nil
}
