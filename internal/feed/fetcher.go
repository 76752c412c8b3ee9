// Package feed fetches and parses CFA RSS feeds into domain forecast sets.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// FetchErrorKind classifies a failed fetch attempt.
type FetchErrorKind string

const (
	// FetchTimeout covers client timeouts and deadline expiry.
	FetchTimeout FetchErrorKind = "timeout"
	// FetchHTTP covers non-200 responses; Status carries the code.
	FetchHTTP FetchErrorKind = "http"
	// FetchNetwork covers DNS, connection, and transport failures.
	FetchNetwork FetchErrorKind = "network"
)

// FetchError is a typed failure from a single fetch attempt.
type FetchError struct {
	Kind   FetchErrorKind
	Status int
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchHTTP:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	default:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// maxFeedBytes bounds the response body read. CFA feeds are a few KB; the
// cap guards against a misbehaving upstream streaming forever.
const maxFeedBytes = 1 << 20

// Fetcher performs single-attempt HTTP GETs against CFA feed URLs.
// Retries and backoff belong to the polling scheduler, not here.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher whose requests time out after the given
// duration.
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "cfa-fire-forecast/1.0",
		logger:    logger,
	}
}

// Fetch performs one HTTP GET and returns the raw feed text. Failures come
// back as a *FetchError classifying timeout, HTTP status, or network fault.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{Kind: FetchNetwork, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{Kind: classifyTransportError(err), URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxFeedBytes)) //nolint:errcheck // drain for keep-alive
		return "", &FetchError{Kind: FetchHTTP, Status: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return "", &FetchError{Kind: classifyTransportError(err), URL: url, Err: err}
	}

	f.logger.Debug("feed fetched", "url", url, "bytes", len(body))
	return string(body), nil
}

func classifyTransportError(err error) FetchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FetchTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FetchTimeout
	}
	return FetchNetwork
}
