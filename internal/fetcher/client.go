package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxBodySize caps how much of a response body is read.
const DefaultMaxBodySize = 4 << 20 // 4MB

// DefaultTimeout applies when a zero timeout is passed to [Client.Fetch].
const DefaultTimeout = 30 * time.Second

const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 2
	defaultIdleConnTimeout     = 60 * time.Second
)

// ErrBodyTooLarge is set on [Response.Error] when the body exceeds the
// client's max body size. The truncated body must not be used.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// StatusError reports a response whose status code is outside 2xx.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected status: %s", e.Status)
	}
	return fmt.Sprintf("unexpected status: %d", e.StatusCode)
}

// Response holds the result of an HTTP request made by [Client].
type Response struct {
	// Body contains the HTTP response body, at most the client's max body size.
	Body []byte

	// StatusCode is the HTTP status code (e.g., 200, 404, 500).
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error contains any error that occurred during the request, including
	// a [*StatusError] for non-2xx responses. nil means the body is usable.
	Error error
}

// Client is an HTTP client wrapper for downloading remote documents.
//
// Timeouts are applied per request via context rather than as a global
// client timeout, so callers can change the timeout without rebuilding
// the client.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	headers     map[string]string
	maxBodySize int64
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeaders sets extra headers sent with every request.
// The map is copied.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		c.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithMaxBodySize sets the largest accepted response body. Larger bodies
// fail with [ErrBodyTooLarge]. Non-positive values keep the default.
func WithMaxBodySize(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithHTTPClient replaces the underlying [http.Client].
// Mainly useful for tests and custom transports.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new [Client].
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs a GET request and returns a structured [Response].
//
// The timeout is applied via context cancellation; zero uses
// [DefaultTimeout]. Fetch always returns a Response; errors are captured in
// the Error field rather than returned separately.
func (c *Client) Fetch(ctx context.Context, url string, timeout time.Duration) Response {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	// one extra byte tells a body at the limit from one over it
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	result := Response{
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
	switch {
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		result.Error = &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	case int64(len(body)) > c.maxBodySize:
		result.Error = fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, c.maxBodySize)
	}
	if int64(len(body)) <= c.maxBodySize {
		result.Body = body
	}
	return result
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times and on a nil receiver. After Close, the client
// remains usable but new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
