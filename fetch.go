package pingsync

import (
	"context"
	"time"

	"github.com/jpalmerr/pingsync/internal/fetcher"
)

const defaultFetchTimeout = 30 * time.Second

// FetchResponse is what a [Fetcher] returns for a GET request.
type FetchResponse struct {
	// StatusCode is the HTTP status code, zero if no response was received.
	StatusCode int

	// Body is the response body.
	Body []byte

	// Latency is the total time taken by the request.
	Latency time.Duration
}

// Fetcher performs a blocking GET against an arbitrary URL.
//
// Implementations must return a non-nil error for transport failures and
// for any response the caller should not use, including non-2xx statuses.
// The returned FetchResponse should still carry StatusCode and Latency when
// they are known.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// FetcherFunc adapts an ordinary function to the [Fetcher] interface.
type FetcherFunc func(ctx context.Context, url string) (FetchResponse, error)

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) (FetchResponse, error) {
	return f(ctx, url)
}

// httpFetcher is the default [Fetcher], backed by the internal HTTP client.
type httpFetcher struct {
	client  *fetcher.Client
	timeout time.Duration
}

func newHTTPFetcher(timeout time.Duration, userAgent string, headers map[string]string) *httpFetcher {
	return &httpFetcher{
		client: fetcher.NewClient(
			fetcher.WithUserAgent(userAgent),
			fetcher.WithHeaders(headers),
		),
		timeout: timeout,
	}
}

func (h *httpFetcher) Fetch(ctx context.Context, url string) (FetchResponse, error) {
	resp := h.client.Fetch(ctx, url, h.timeout)
	return FetchResponse{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Latency:    resp.Latency,
	}, resp.Error
}

func (h *httpFetcher) close() {
	h.client.Close()
}
