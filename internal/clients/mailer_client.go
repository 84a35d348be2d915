package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/agrimarket/marketplace-api/pkg/circuitbreaker"
	"github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
	"github.com/agrimarket/marketplace-api/pkg/retry"
)

// MailerClient talks to the mail gateway. Calls go through a retry loop and a
// circuit breaker; the caller decides whether a failure matters, because
// notifications never block or roll back domain state.
type MailerClient struct {
	baseURL     string
	httpClient  *http.Client
	logger      logger.Logger
	retryConfig *retry.RetryConfig
	breaker     *circuitbreaker.CircuitBreaker
}

// EmailRequest is the payload sent to the mail gateway
type EmailRequest struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Template string `json:"template,omitempty"`
}

// NewMailerClient creates a MailerClient for the given gateway base URL
func NewMailerClient(baseURL string, logger logger.Logger) *MailerClient {
	return &MailerClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
		retryConfig: &retry.RetryConfig{
			MaxAttempts: 3,
			BackoffStrategy: &retry.ExponentialBackoff{
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
				Multiplier:      1.5,
				JitterFactor:    0.2,
			},
			Logger: logger,
			RetryableErrors: []error{
				errors.ErrTimeout,
				errors.ErrTemporaryFailure,
				errors.ErrServiceUnavailable,
			},
		},
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			HalfOpenMaxCalls: 2,
		}),
	}
}

// SendEmail delivers one email through the gateway
func (c *MailerClient) SendEmail(ctx context.Context, req *EmailRequest) error {
	if !c.breaker.Allow() {
		return errors.NewTemporaryError("mail gateway circuit is open")
	}

	err := retry.Retry(ctx, func() error {
		return c.post(ctx, req)
	}, c.retryConfig)

	if err != nil {
		c.breaker.Failure()
		return err
	}

	c.breaker.Success()
	return nil
}

// BreakerState exposes the circuit state for the health endpoint
func (c *MailerClient) BreakerState() map[string]interface{} {
	return c.breaker.Metrics()
}

func (c *MailerClient) post(ctx context.Context, email *EmailRequest) error {
	payload, err := json.Marshal(email)

	if err != nil {
		return errors.NewInternalError(fmt.Sprintf("failed to marshal email: %v", err))
	}

	url := fmt.Sprintf("%s/api/v1/emails", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))

	if err != nil {
		return errors.NewInternalError(fmt.Sprintf("failed to create request: %v", err))
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)

	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return errors.NewTimeoutError("mail gateway request timed out")
		}
		return errors.NewTemporaryError(fmt.Sprintf("mail gateway request failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)

	if err != nil {
		return errors.NewInternalError(fmt.Sprintf("failed to read response body: %v", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return errors.NewTemporaryError(fmt.Sprintf("mail gateway returned %d: %s", resp.StatusCode, body))
	default:
		return errors.NewInternalError(fmt.Sprintf("mail gateway rejected request with %d: %s", resp.StatusCode, body))
	}
}
