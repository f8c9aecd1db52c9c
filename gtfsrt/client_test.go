package gtfsrt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte{0x0a, 0x00})
	}))
	defer srv.Close()

	body, err := NewClient(time.Second, "cybus-test").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x00}, body)
	assert.Equal(t, "cybus-test", gotUA)
}

func TestClient_FetchStatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		retryAfter  string
		rateLimited bool
		wantRetry   time.Duration
	}{
		{"too many requests", http.StatusTooManyRequests, "30", true, 30 * time.Second},
		{"unavailable", http.StatusServiceUnavailable, "", true, 0},
		{"server error", http.StatusInternalServerError, "", false, 0},
		{"not found", http.StatusNotFound, "junk", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewClient(time.Second, "").Fetch(context.Background(), srv.URL)
			require.Error(t, err)

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.rateLimited, se.RateLimited())
			wait, limited := RateLimit(fmt.Errorf("wrapped: %w", err))
			assert.Equal(t, tt.rateLimited, limited)
			assert.Equal(t, tt.wantRetry, wait)
			assert.Equal(t, tt.wantRetry, se.RetryAfter)
			assert.Contains(t, se.Error(), fmt.Sprintf("HTTP %d", tt.status))
		})
	}
}

func TestClient_FetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(50*time.Millisecond, "").Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	_, limited := RateLimit(err)
	assert.False(t, limited)
}

func TestClient_FetchSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	c := NewClient(time.Second, "")
	c.maxBytes = 10
	body, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, body, 10)

	c.maxBytes = 4
	_, err = c.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrFeedTooLarge)
	_, limited := RateLimit(err)
	assert.False(t, limited)
}

func TestClient_FetchBadURL(t *testing.T) {
	_, err := NewClient(time.Second, "").Fetch(context.Background(), "://bad")
	assert.Error(t, err)
}
