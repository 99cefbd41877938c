// Package fetch provides HTTP fetching with exponential-backoff retry for
// transient failures. All collectors go through this package; browser
// automation is deliberately out of scope.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/tenderwatch/internal/logger"
)

// ErrExhausted is returned when every retry attempt has failed. Callers use
// it to distinguish a dead upstream from a malformed response.
var ErrExhausted = errors.New("retry attempts exhausted")

// RetryConfig configures the backoff behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int `mapstructure:"max_attempts"`
	// InitialDelay is the delay before the second attempt.
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration `mapstructure:"max_delay"`
	// Multiplier is the exponential backoff multiplier.
	Multiplier float64 `mapstructure:"multiplier"`
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// statusError is a non-2xx HTTP response.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.code, e.url)
}

// retryable reports whether an error is worth another attempt: network
// errors and 5xx responses are, client errors are not.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError
	}
	return true
}

// Client fetches URLs with a fixed User-Agent and retry policy.
type Client struct {
	http      *http.Client
	retry     RetryConfig
	userAgent string
	log       logger.Interface
}

// NewClient creates a fetch client. A zero timeout disables the per-try
// deadline.
func NewClient(timeout time.Duration, retry RetryConfig, userAgent string, log logger.Interface) *Client {
	if retry.MaxAttempts < 1 {
		retry = DefaultRetryConfig()
	}

	return &Client{
		http:      &http.Client{Timeout: timeout},
		retry:     retry,
		userAgent: userAgent,
		log:       log,
	}
}

// FetchBytes performs a GET with retry and returns the response body.
// Exhausted retries return an error wrapping ErrExhausted.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	delay := c.retry.InitialDelay
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		body, err := c.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !retryable(err) {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		if attempt == c.retry.MaxAttempts {
			break
		}

		c.log.Warn("fetch failed, retrying",
			"url", url, "attempt", attempt, "delay", delay.String(), "error", err)

		if err := sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}

		delay = time.Duration(float64(delay) * c.retry.Multiplier)
		if c.retry.MaxDelay > 0 && delay > c.retry.MaxDelay {
			delay = c.retry.MaxDelay
		}
	}

	return nil, fmt.Errorf("fetch %s after %d attempts: %w: %w",
		url, c.retry.MaxAttempts, ErrExhausted, lastErr)
}

// FetchDocument fetches a URL and parses the body as an HTML document.
func (c *Client) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := c.FetchBytes(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", url, err)
	}

	return doc, nil
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &statusError{code: resp.StatusCode, url: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

// sleep waits for the given duration or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
