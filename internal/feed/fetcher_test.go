package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetcher_Success(t *testing.T) {
	const body = `<?xml version="1.0"?><rss version="2.0"><channel></channel></rss>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.Header.Get("Accept"), "application/rss+xml")
		assert.Contains(t, r.Header.Get("User-Agent"), "cfa-fire-forecast")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body)) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, discardLogger())
	got, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestFetcher_HTTPError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
		{"rate limited", http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			f := NewFetcher(5*time.Second, discardLogger())
			_, err := f.Fetch(context.Background(), srv.URL)

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, FetchHTTP, fe.Kind)
			assert.Equal(t, tt.status, fe.Status)
			assert.Contains(t, fe.Error(), srv.URL)
		})
	}
}

func TestFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := NewFetcher(50*time.Millisecond, discardLogger())
	_, err := f.Fetch(context.Background(), srv.URL)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FetchTimeout, fe.Kind)
}

func TestFetcher_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewFetcher(5*time.Second, discardLogger())
	_, err := f.Fetch(ctx, srv.URL)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FetchTimeout, fe.Kind)
}

func TestFetcher_NetworkError(t *testing.T) {
	// A server that is already closed refuses the connection.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := NewFetcher(5*time.Second, discardLogger())
	_, err := f.Fetch(context.Background(), url)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FetchNetwork, fe.Kind)
	assert.NotNil(t, errors.Unwrap(fe))
}
