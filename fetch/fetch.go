// Package fetch downloads candidate and query images over HTTP.
//
// Some reference-image hosts reject non-browser clients or serve HTML error
// pages with a 200 status, so the client sends a browser User-Agent and
// rejects text/html payloads. Timeouts are fixed per attempt rather than
// caller-cancellable; contexts are threaded for process shutdown only.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36"

var (
	// ErrUnsupportedContent is returned when the response body is not an image
	// (e.g. an HTML error page served with status 200).
	ErrUnsupportedContent = errors.New("fetch: unsupported content type")

	// ErrAllAttemptsFailed is returned by FetchRetry when every bounded
	// attempt failed.
	ErrAllAttemptsFailed = errors.New("fetch: all attempts failed")
)

// ErrBadStatus indicates a non-2xx HTTP response.
type ErrBadStatus struct {
	StatusCode int
	URL        string
}

func (e *ErrBadStatus) Error() string {
	return fmt.Sprintf("fetch: unexpected status %d for %s", e.StatusCode, e.URL)
}

// Options contains configuration options for the download client.
type Options struct {
	// Timeout is the fixed per-request timeout. Defaults to 10s.
	Timeout time.Duration

	// MaxAttempts bounds FetchRetry. Defaults to 5.
	MaxAttempts int

	// RequestsPerSecond rate-limits outgoing requests across all callers.
	// 0 disables limiting.
	RequestsPerSecond float64

	// UserAgent overrides the default browser User-Agent.
	UserAgent string
}

// DefaultOptions contains the default configuration options for the client.
var DefaultOptions = Options{
	Timeout:     10 * time.Second,
	MaxAttempts: 5,
}

// Client is an image download client, safe for concurrent use.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	opts    Options
}

// New creates a download client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions.Timeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultOptions.MaxAttempts
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: limiter,
		opts:    opts,
	}
}

// Fetch downloads url in a single attempt. It fails on network errors,
// timeouts, non-2xx statuses and non-image content types.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ErrBadStatus{StatusCode: resp.StatusCode, URL: url}
	}

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ct, "text") || strings.Contains(ct, "html") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, ct)
	}

	return io.ReadAll(resp.Body)
}

// FetchFirst tries primary, then fallback if primary fails. It returns the
// image bytes together with the URL that actually produced them, which may be
// the fallback.
func (c *Client) FetchFirst(ctx context.Context, primary, fallback string) ([]byte, string, error) {
	data, err := c.Fetch(ctx, primary)
	if err == nil {
		return data, primary, nil
	}
	if fallback == "" {
		return nil, "", err
	}

	data, fbErr := c.Fetch(ctx, fallback)
	if fbErr != nil {
		return nil, "", fmt.Errorf("primary: %w; fallback: %w", err, fbErr)
	}
	return data, fallback, nil
}

// FetchRetry downloads url with up to MaxAttempts bounded attempts, each with
// its own timeout, stopping at the first success.
func (c *Client) FetchRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.opts.MaxAttempts; attempt++ {
		data, err := c.Fetch(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrAllAttemptsFailed, url, lastErr)
}
