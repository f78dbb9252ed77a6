package odata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// Transport sends one HTTP request. It is the only component that performs
// I/O; cancellation and timeouts are carried by ctx.
type Transport interface {
	Send(ctx context.Context, method, url string, header http.Header, body []byte) (*TransportResponse, error)
}

// TransportResponse is a fully read HTTP response
type TransportResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RetryConfig defines retry behavior for HTTP requests
type RetryConfig struct {
	MaxRetries        int           // Maximum number of retry attempts (0 = no retries)
	InitialBackoff    time.Duration // Initial delay before first retry
	MaxBackoff        time.Duration // Maximum delay between retries
	BackoffMultiplier float64       // Multiplier for exponential backoff
	JitterFraction    float64       // Random jitter fraction (0.0-1.0)
	RetryableStatuses []int         // HTTP status codes that trigger retry

	// RetryWrites allows retrying requests that may change server state, such
	// as POST, PATCH and DELETE or a $batch with changesets. A write that timed
	// out may already have been applied, so this is off by default.
	RetryWrites bool
}

// DefaultRetryConfig returns sensible defaults for retry behavior
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
		RetryableStatuses: []int{429, 500, 502, 503, 504},
	}
}

// CalculateBackoff returns the delay for a given attempt (0-indexed).
// Attempt 0 returns InitialBackoff; later attempts grow exponentially up to MaxBackoff.
func (c *RetryConfig) CalculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.InitialBackoff
	}

	backoff := float64(c.InitialBackoff) * math.Pow(c.BackoffMultiplier, float64(attempt))
	if backoff > float64(c.MaxBackoff) {
		backoff = float64(c.MaxBackoff)
	}

	if c.JitterFraction > 0 {
		jitterRange := backoff * c.JitterFraction
		backoff += (rand.Float64()*2 - 1) * jitterRange
		if backoff < 0 {
			backoff = 0
		}
	}

	return time.Duration(backoff)
}

// ShouldRetry determines if a request should be retried based on status code and attempt count
func (c *RetryConfig) ShouldRetry(statusCode int, attempt int) bool {
	if attempt >= c.MaxRetries {
		return false
	}
	return c.IsRetryableStatus(statusCode)
}

// IsRetryableStatus checks if a status code is in the retryable list
func (c *RetryConfig) IsRetryableStatus(statusCode int) bool {
	for _, code := range c.RetryableStatuses {
		if statusCode == code {
			return true
		}
	}
	return false
}

type readOnlyKey struct{}

// withReadOnly marks the request sent with ctx as free of side effects, so it
// may be retried whatever its method.
func withReadOnly(ctx context.Context) context.Context {
	return context.WithValue(ctx, readOnlyKey{}, true)
}

// isReplayable reports whether a request may be sent again after a failure
// without risking a duplicate write.
func (c *RetryConfig) isReplayable(ctx context.Context, method string) bool {
	if c.RetryWrites {
		return true
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	readOnly, _ := ctx.Value(readOnlyKey{}).(bool)
	return readOnly
}

// HTTPTransport sends requests with a *http.Client and retries transient failures.
type HTTPTransport struct {
	client *http.Client
	retry  *RetryConfig
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewHTTPTransport creates a transport. A nil client uses http.DefaultClient;
// a nil retry config disables retries.
func NewHTTPTransport(client *http.Client, retry *RetryConfig) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	if retry == nil {
		retry = &RetryConfig{}
	}
	return &HTTPTransport{
		client: client,
		retry:  retry,
		logger: slog.Default(),
		sleep:  sleepContext,
	}
}

// SetLogger sets the logger used for retry messages.
// If not called, slog.Default() is used.
func (t *HTTPTransport) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	t.logger = logger
}

// Send performs the request, retrying retryable statuses and network errors
// until the retry budget is spent or ctx is done. Only GET, HEAD and OPTIONS
// requests and read-only batches are retried unless RetryWrites is set.
// Retry-After, when given in seconds, takes precedence over the computed backoff.
func (t *HTTPTransport) Send(ctx context.Context, method, url string, header http.Header, body []byte) (*TransportResponse, error) {
	replayable := t.retry.isReplayable(ctx, method)
	for attempt := 0; ; attempt++ {
		resp, err := t.do(ctx, method, url, header, body)
		if err != nil {
			if !replayable || ctx.Err() != nil || attempt >= t.retry.MaxRetries {
				return nil, err
			}
			delay := t.retry.CalculateBackoff(attempt)
			t.logger.Debug("Retrying request after transport error",
				"method", method, "url", url, "attempt", attempt+1, "delay", delay, "error", err)
			if err := t.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if !replayable || !t.retry.ShouldRetry(resp.StatusCode, attempt) {
			return resp, nil
		}
		delay := t.retry.CalculateBackoff(attempt)
		if after, ok := retryAfter(resp.Header); ok {
			delay = after
		}
		t.logger.Debug("Retrying request",
			"method", method, "url", url, "status", resp.StatusCode, "attempt", attempt+1, "delay", delay)
		if err := t.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (t *HTTPTransport) do(ctx context.Context, method, url string, header http.Header, body []byte) (*TransportResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &TransportResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func retryAfter(h http.Header) (time.Duration, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
