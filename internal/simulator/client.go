package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	userAgent      = "repo-feed-simulator/1.0"
	maxResponseLen = 4 * 1024
)

// DeliveryResult describes one delivery attempt.
type DeliveryResult struct {
	Success      bool
	StatusCode   int
	ResponseBody string
	Error        error
}

// Client posts simulated deliveries to a webhook endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient returns a client delivering to webhookURL. A zero timeout leaves
// the http.Client default (none).
func NewClient(webhookURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:        webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
	}
}

// URL returns the delivery target.
func (c *Client) URL() string {
	return c.url
}

// Deliver builds the payload for req and posts it. Unknown kinds fail before
// any request is made; the error wraps ErrUnknownKind.
func (c *Client) Deliver(ctx context.Context, req Request) DeliveryResult {
	eventType, payload, err := BuildPayload(req, c.now())
	if err != nil {
		return DeliveryResult{Error: err}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return DeliveryResult{Error: fmt.Errorf("encode payload: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return DeliveryResult{Error: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("X-GitHub-Event", string(eventType))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return DeliveryResult{Error: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseLen))
	result := DeliveryResult{
		StatusCode:   resp.StatusCode,
		ResponseBody: string(respBody),
		Success:      resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
	if !result.Success {
		result.Error = fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	c.logger.Debug("simulated delivery sent",
		zap.String("event_type", string(eventType)),
		zap.Int("status_code", resp.StatusCode))

	return result
}
