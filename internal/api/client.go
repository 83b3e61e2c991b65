// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Configuration constants for the backend client.
const (
	// DefaultTimeout is the per-attempt timeout for ordinary requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxAttempts is the default attempt budget for retryable
	// failures (the first attempt plus two retries).
	DefaultMaxAttempts = 3

	// defaultBackoffBase is the delay before the first retry; it doubles
	// per attempt (1s, 2s, 4s, ...).
	defaultBackoffBase = time.Second

	// probeTimeout is the short fixed timeout for reachability probes.
	probeTimeout = 3 * time.Second

	// maxResponseSize caps response bodies to prevent memory exhaustion.
	maxResponseSize = 10 * 1024 * 1024
)

const userAgent = "oncosight-tui/1.0"

// sharedTransport pools connections for all backend requests. Timeouts are
// enforced per call via context, not on the http.Client.
var sharedTransport = &http.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// TokenSource supplies the bearer token for authenticated calls. The session
// manager implements it; the client itself never stores credentials.
type TokenSource interface {
	AccessToken() string
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is the single choke point for outbound calls to the backend.
// It is stateless across calls except for the pooled transport.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      TokenSource
	maxAttempts int
	timeout     time.Duration
	backoffBase time.Duration
}

// NewClient creates a client for the given backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  &http.Client{Transport: sharedTransport},
		maxAttempts: DefaultMaxAttempts,
		timeout:     DefaultTimeout,
		backoffBase: defaultBackoffBase,
	}
}

// WithTokenSource sets the bearer token provider for authenticated calls.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	c.tokens = ts
	return c
}

// WithTimeout sets the default per-attempt timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// WithMaxAttempts sets the default attempt budget.
func (c *Client) WithMaxAttempts(n int) *Client {
	c.maxAttempts = n
	return c
}

// WithBackoffBase overrides the backoff base delay. Tests shrink it so the
// retry schedule runs in milliseconds.
func (c *Client) WithBackoffBase(d time.Duration) *Client {
	c.backoffBase = d
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CallOptions overrides the client defaults for a single call. Zero values
// fall back to the defaults.
type CallOptions struct {
	// MaxAttempts is the total attempt budget including the first try.
	MaxAttempts int
	// Timeout is the per-attempt deadline.
	Timeout time.Duration
	// Authenticated attaches the bearer token from the TokenSource.
	Authenticated bool
}

// =============================================================================
// CALL WITH RETRY
// =============================================================================

// Call issues an HTTP request and decodes the JSON response into out (which
// may be nil to discard the body). Retryable failures — 5xx, timeouts,
// connection errors — are retried with exponential backoff until the attempt
// budget is exhausted; 4xx responses and decode failures are terminal.
// Cancelling ctx aborts the in-flight attempt and any pending backoff wait.
func (c *Client) Call(ctx context.Context, method, path string, body, out any, opts CallOptions) error {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = c.maxAttempts
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			// 1s, 2s, 4s, ... at the default base.
			delay := c.backoffBase << (attempt - 2)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.do(ctx, method, path, payload, out, timeout, opts.Authenticated)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

// Probe checks backend reachability with a single short attempt. It never
// retries and never backs off.
func (c *Client) Probe(ctx context.Context) error {
	return c.Call(ctx, http.MethodGet, "/health", nil, nil, CallOptions{
		MaxAttempts: 1,
		Timeout:     probeTimeout,
	})
}

// retryable decides whether an attempt failure is worth retrying.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}
	if errors.Is(err, ErrDecode) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	// Connection-level failures.
	return true
}

// =============================================================================
// SINGLE ATTEMPT
// =============================================================================

// do performs one attempt. The per-attempt context guarantees the
// cancellation handle is released on every exit path.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any, timeout time.Duration, authed bool) error {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if authed && c.tokens != nil {
		if tok := c.tokens.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	c.logRequest(req)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classifyTransport(ctx, reqCtx, err, timeout)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	respBody, err := readBody(resp)
	if err != nil {
		return c.classifyTransport(ctx, reqCtx, err, timeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, respBody),
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}
	return nil
}

// classifyTransport maps a transport failure to the error taxonomy:
// caller cancellation propagates as-is, a fired per-attempt deadline becomes
// ErrTimeout, everything else is a connection-level error.
func (c *Client) classifyTransport(ctx, reqCtx context.Context, err error, timeout time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return fmt.Errorf("request failed: %w", err)
}

// readBody reads the response body with a size limit.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == maxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", maxResponseSize)
	}
	return body, nil
}

// =============================================================================
// REQUEST/RESPONSE LOGGING
// =============================================================================

// logRequest logs an outbound request. Headers and bodies are never logged:
// they carry credentials and patient questions.
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs the status and duration of a response, nothing else.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}
