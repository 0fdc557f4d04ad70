// Package webhook delivers the run summary to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// SignatureHeader carries the hex HMAC-SHA256 of the body for AuthType "hmac".
const SignatureHeader = "X-Tandem-Signature"

// Client represents a webhook HTTP client
type Client struct {
	httpClient  *http.Client
	config      *Config
	retryConfig *RetryConfig
	logger      *slog.Logger
}

// Delivery reports how a Send went.
type Delivery struct {
	Attempts   int
	StatusCode int
}

// NewClient creates a new webhook client. A nil logger discards retry
// diagnostics.
func NewClient(config *Config, retryConfig *RetryConfig, logger *slog.Logger) *Client {
	if config.Method == "" {
		config.Method = http.MethodPost
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second, // Per-request timeout
		},
		config:      config,
		retryConfig: retryConfig,
		logger:      logger,
	}
}

// Send sends the payload to the webhook with retry logic
func (c *Client) Send(ctx context.Context, payload any) (*Delivery, error) {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	delivery := &Delivery{}
	var (
		lastErr    error
		retryAfter time.Duration
	)

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryConfig.nextDelay(attempt, retryAfter)
			c.logger.Debug("webhook retry", "attempt", attempt, "max_retries", c.retryConfig.MaxRetries, "delay", delay)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return delivery, fmt.Errorf("webhook timeout after %d attempts: %w", attempt, ctx.Err())
			}
		}

		delivery.Attempts++
		var statusCode int
		statusCode, retryAfter, err = c.sendRequest(ctx, jsonPayload)
		delivery.StatusCode = statusCode

		if err == nil && statusCode >= 200 && statusCode < 300 {
			c.logger.Debug("webhook delivered", "status", statusCode, "attempts", delivery.Attempts)
			return delivery, nil
		}

		if err != nil {
			lastErr = fmt.Errorf("attempt %d failed: %w", attempt+1, err)
		} else {
			lastErr = fmt.Errorf("attempt %d failed with status %d", attempt+1, statusCode)
		}

		if statusCode > 0 && !isRetryableStatus(statusCode) {
			c.logger.Debug("webhook status not retryable", "status", statusCode)
			return delivery, lastErr
		}
	}

	return delivery, fmt.Errorf("webhook failed after %d attempts: %w", c.retryConfig.MaxRetries+1, lastErr)
}

func (c *Client) sendRequest(ctx context.Context, payload []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, c.config.Method, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	switch c.config.AuthType {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	case "api-key":
		req.Header.Set("X-API-Key", c.config.AuthToken)
	case "hmac":
		req.Header.Set(SignatureHeader, Sign(c.config.AuthToken, payload))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain response body to reuse connection
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()), nil
}

// Sign returns "sha256=<hex>" of the HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
