package gtfsrt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const maxFeedBytes = 64 << 20

// ErrFeedTooLarge is returned when a feed body exceeds the client's size limit
var ErrFeedTooLarge = errors.New("gtfsrt: feed exceeds size limit")

// StatusError is a non-200 response from a feed endpoint
type StatusError struct {
	StatusCode int
	URL        string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// RateLimited reports whether the upstream asked us to slow down
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

// RateLimit reports whether err wraps a rate-limit StatusError and how long
// the upstream asked us to wait, zero when it sent no Retry-After.
func RateLimit(err error) (retryAfter time.Duration, limited bool) {
	var se *StatusError
	if errors.As(err, &se) && se.RateLimited() {
		return se.RetryAfter, true
	}
	return 0, false
}

// Client fetches GTFS-RT protobuf payloads over HTTP with a bounded timeout
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewClient creates a new GTFS-RT HTTP client
func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxBytes:   maxFeedBytes,
	}
}

// Fetch downloads one feed and returns the raw protobuf bytes
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/x-protobuf, application/octet-stream")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		se := &StatusError{StatusCode: resp.StatusCode, URL: url}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			se.RetryAfter = time.Duration(secs) * time.Second
		}
		return nil, se
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", url, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: %s sent more than %d bytes", ErrFeedTooLarge, url, c.maxBytes)
	}
	return body, nil
}
