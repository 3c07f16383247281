package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manav03panchal/medtime/internal/config"
	"github.com/manav03panchal/medtime/internal/errors"
)

const userAgent = "medtime/1.0"

// maxErrorBody caps how much of a failed response is quoted in errors.
const maxErrorBody = 512

// HTTPClient posts webhook payloads with retry on 429 and 5xx.
type HTTPClient struct {
	client      *http.Client
	maxAttempts int
	retryDelays []time.Duration
}

// NewHTTPClient creates a client from the http config section.
func NewHTTPClient(cfg config.HTTPConfig) *HTTPClient {
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	return &HTTPClient{
		client:      &http.Client{Timeout: cfg.Timeout},
		maxAttempts: attempts,
		retryDelays: cfg.RetryDelays,
	}
}

// SendResult contains the result of a send operation.
type SendResult struct {
	StatusCode int
	Duration   time.Duration
	Attempts   int
	Error      error
}

// delay returns the wait before the given zero-based attempt.
func (c *HTTPClient) delay(attempt int) time.Duration {
	if len(c.retryDelays) == 0 {
		return 0
	}
	if attempt < len(c.retryDelays) {
		return c.retryDelays[attempt]
	}
	return c.retryDelays[len(c.retryDelays)-1]
}

// Send POSTs body to url, retrying transient failures.
func (c *HTTPClient) Send(ctx context.Context, url, contentType string, body []byte) *SendResult {
	result := &SendResult{}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		result.Attempts = attempt + 1

		if d := c.delay(attempt); d > 0 {
			select {
			case <-ctx.Done():
				result.Error = ctx.Err()
				return result
			case <-time.After(d):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			result.Error = fmt.Errorf("failed to create request: %w", err)
			return result
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				result.Error = ctx.Err()
				return result
			}
			result.Error = errors.NewRecoverableError("request failed", errors.ErrNetworkUnavailable, c.maxAttempts)
			continue
		}

		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		result.StatusCode = resp.StatusCode

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			result.Error = nil
			return result
		case resp.StatusCode == http.StatusTooManyRequests:
			result.Error = errors.NewRecoverableError("rate limited (HTTP 429)", nil, c.maxAttempts)
		case resp.StatusCode >= 500:
			result.Error = errors.NewRecoverableError(
				fmt.Sprintf("server error (HTTP %d): %s", resp.StatusCode, bodyBytes), nil, c.maxAttempts)
		default:
			result.Error = fmt.Errorf("client error (HTTP %d): %s", resp.StatusCode, bodyBytes)
			return result
		}
	}

	return result
}
