package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/helixir/paperbot/internal/domain"
)

// DefaultUserAgent is sent when a request carries no User-Agent of its own.
const DefaultUserAgent = "paperbot/1.0 (+https://github.com/helixir/paperbot)"

// minBackoffRate is the floor HTTPClient lowers a provider's rate to after
// repeated 429 responses.
const minBackoffRate = 0.05

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Source names the provider in logs, metrics, and errors.
	Source string

	// Timeout is the request timeout for HTTP operations. Ignored when
	// Base is set.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional credential sent on every request.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g., "Authorization").
	APIKeyHeader string

	// Base is an optional underlying client, e.g. one returned by an
	// oauth2 token source. A plain client with Timeout is used otherwise.
	Base *http.Client

	// Recorder receives request telemetry. Optional.
	Recorder RequestRecorder
}

// HTTPClient wraps http.Client with rate limiting and retries.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	recorder    RequestRecorder
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting.
// The client applies rate limiting before each request and automatically
// retries on 429 (Too Many Requests) and 5xx server errors.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Source == "" {
		cfg.Source = "http"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	client := cfg.Base
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	var recorder RequestRecorder = nopRecorder{}
	if cfg.Recorder != nil {
		recorder = cfg.Recorder
	}

	return &HTTPClient{
		client:      client,
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		recorder:    recorder,
		config:      cfg,
	}
}

// Source returns the provider name the client reports under.
func (c *HTTPClient) Source() string {
	return c.config.Source
}

// Do executes an HTTP request with rate limiting and retries.
// It waits for the rate limiter before each attempt, sets the User-Agent and
// optional API key headers, and retries on 429 with Retry-After support and
// on 5xx server errors.
//
// When retries are exhausted on 429 the returned error wraps a
// *domain.RateLimitError and the client halves its own rate.
//
// The request body is resent on retry only when GetBody is set.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	endpoint := req.URL.Path
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			c.recorder.RecordProviderRequestFailed(c.config.Source, endpoint, ErrorTypeCanceled)
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		c.recorder.RecordProviderRequest(c.config.Source, endpoint, time.Since(start).Seconds())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.recorder.RecordProviderRequestFailed(c.config.Source, endpoint, ErrorTypeCanceled)
				return nil, err
			}
			c.recorder.RecordProviderRequestFailed(c.config.Source, endpoint, ErrorTypeTransport)
			lastErr = fmt.Errorf("%s request failed: %w", c.config.Source, err)
			if attempt < c.config.MaxRetries {
				if err := c.prepareRetry(req, c.config.RetryDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if !shouldRetry(resp.StatusCode) {
			return resp, nil
		}

		retryDelay := c.getRetryDelay(resp)
		if resp.Body != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		errType := ErrorTypeServer
		if resp.StatusCode == http.StatusTooManyRequests {
			errType = ErrorTypeRateLimited
		}
		c.recorder.RecordProviderRequestFailed(c.config.Source, endpoint, errType)

		if attempt < c.config.MaxRetries {
			lastErr = fmt.Errorf("%s returned status %d", c.config.Source, resp.StatusCode)
			if err := c.prepareRetry(req, retryDelay); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			c.backOff()
			return nil, fmt.Errorf("max retries exhausted after %d attempts: %w",
				c.config.MaxRetries+1, domain.NewRateLimitError(c.config.Source, retryDelay))
		}
		return nil, fmt.Errorf("max retries exhausted after %d attempts, last status: %d: %w",
			c.config.MaxRetries+1, resp.StatusCode, domain.ErrServiceUnavailable)
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("unexpected error: no response received")
}

// prepareRetry waits out the delay and rewinds the request body.
func (c *HTTPClient) prepareRetry(req *http.Request, delay time.Duration) error {
	if err := waitForRetry(req.Context(), delay); err != nil {
		return err
	}
	if err := resetRequestBody(req); err != nil {
		return fmt.Errorf("cannot retry request: %w", err)
	}
	return nil
}

// backOff halves the sustained rate, bounded below by minBackoffRate.
func (c *HTTPClient) backOff() {
	next := c.rateLimiter.Rate() / 2
	if next < minBackoffRate {
		next = minBackoffRate
	}
	c.rateLimiter.SetRate(next)
}

// shouldRetry returns true if the status code indicates we should retry.
func shouldRetry(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// getRetryDelay determines how long to wait before retrying.
// It respects the Retry-After header if present, otherwise uses the configured retry delay.
func (c *HTTPClient) getRetryDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.config.RetryDelay
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return c.config.RetryDelay
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return c.config.RetryDelay
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resetRequestBody resets the request body for retry if possible.
func resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}

// ReadErrorBody drains up to 1MB of an error response for diagnostics.
func ReadErrorBody(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return string(body)
}
