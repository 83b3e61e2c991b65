// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient returns a client pointed at the server with a millisecond
// backoff so retry schedules run instantly.
func newTestClient(server *httptest.Server) *Client {
	return NewClient(server.URL).WithBackoffBase(time.Millisecond)
}

// =============================================================================
// RETRY POLICY TESTS
// =============================================================================

func TestCallNeverRetries4xx(t *testing.T) {
	statuses := []int{400, 401, 404, 429}

	for _, status := range statuses {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
			w.Write([]byte(`{"detail":"nope"}`))
		}))

		client := newTestClient(server)
		err := client.Call(context.Background(), http.MethodPost, "/x", map[string]string{"a": "b"}, nil, CallOptions{})

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: expected *APIError, got %v", status, err)
		}
		if apiErr.Status != status {
			t.Errorf("status = %d, expected %d", apiErr.Status, status)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("status %d: %d calls issued, expected exactly 1", status, got)
		}
		server.Close()
	}
}

func TestCallRetries5xxUpToBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server)
	err := client.Call(context.Background(), http.MethodPost, "/x", nil, nil, CallOptions{MaxAttempts: 3})

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 503 {
		t.Fatalf("expected 503 APIError after exhaustion, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("%d calls issued, expected 3", got)
	}
}

func TestCallSucceedsAfterTransient5xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	var out struct {
		OK bool `json:"ok"`
	}
	err := client.Call(context.Background(), http.MethodGet, "/x", nil, &out, CallOptions{MaxAttempts: 3})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if !out.OK {
		t.Error("response body not decoded")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("%d calls issued, expected 3", got)
	}
}

func TestCallBackoffDoubles(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	base := 20 * time.Millisecond
	client := NewClient(server.URL).WithBackoffBase(base)

	start := time.Now()
	client.Call(context.Background(), http.MethodGet, "/x", nil, nil, CallOptions{MaxAttempts: 3})
	elapsed := time.Since(start)

	// Delays are base and 2*base: total wait at least 3*base.
	if elapsed < 3*base {
		t.Errorf("elapsed %v, expected at least %v of backoff", elapsed, 3*base)
	}
}

func TestCallTimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := newTestClient(server)
	err := client.Call(context.Background(), http.MethodGet, "/slow", nil, nil, CallOptions{
		MaxAttempts: 2,
		Timeout:     20 * time.Millisecond,
	})

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("%d calls issued, expected 2", got)
	}
}

func TestCallContextCancellationIsTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	client := newTestClient(server)
	err := client.Call(ctx, http.MethodGet, "/x", nil, nil, CallOptions{MaxAttempts: 3})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("%d calls issued after cancellation, expected 1", got)
	}
}

func TestCallConnectionErrorIsRetried(t *testing.T) {
	// A server that is immediately closed produces connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server)
	err := client.Call(context.Background(), http.MethodGet, "/x", nil, nil, CallOptions{MaxAttempts: 2})
	if err == nil {
		t.Fatal("expected error against closed server")
	}
	// Exhaustion wraps the last error; the message carries the budget.
	if got := err.Error(); !strings.Contains(got, "2 attempts") {
		t.Errorf("exhaustion error = %q, expected attempt budget mention", got)
	}
}

// =============================================================================
// AUTH HEADER AND DECODE TESTS
// =============================================================================

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

func TestCallAttachesBearerOnlyWhenAuthenticated(t *testing.T) {
	var lastAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server).WithTokenSource(staticToken("tok123"))

	client.Call(context.Background(), http.MethodGet, "/x", nil, nil, CallOptions{Authenticated: true})
	if got := lastAuth.Load().(string); got != "Bearer tok123" {
		t.Errorf("Authorization = %q, expected bearer token", got)
	}

	client.Call(context.Background(), http.MethodGet, "/x", nil, nil, CallOptions{})
	if got := lastAuth.Load().(string); got != "" {
		t.Errorf("Authorization = %q on anonymous call, expected empty", got)
	}
}

func TestCallDecodeFailureIsTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	client := newTestClient(server)
	var out map[string]any
	err := client.Call(context.Background(), http.MethodGet, "/x", nil, &out, CallOptions{MaxAttempts: 3})

	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("%d calls issued for decode failure, expected 1", got)
	}
}

// =============================================================================
// ERROR ENVELOPE TESTS
// =============================================================================

func TestErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "detail string",
			status: 401,
			body:   `{"detail":"Invalid credentials"}`,
			want:   "Invalid credentials",
		},
		{
			name:   "detail validation list with loc path",
			status: 422,
			body:   `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"}]}`,
			want:   "value is not a valid email address (email)",
		},
		{
			name:   "errors list",
			status: 400,
			body:   `{"errors":[{"msg":"something broke"}]}`,
			want:   "something broke",
		},
		{
			name:   "empty body falls back to status",
			status: 502,
			body:   ``,
			want:   "HTTP 502",
		},
		{
			name:   "unparseable body falls back to status",
			status: 500,
			body:   `<html>oops</html>`,
			want:   "HTTP 500",
		},
		{
			name:   "numeric loc segments",
			status: 422,
			body:   `{"detail":[{"loc":["body","items",0,"name"],"msg":"field required"}]}`,
			want:   "field required (items.0.name)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := errorMessage(tc.status, []byte(tc.body)); got != tc.want {
				t.Errorf("errorMessage = %q, expected %q", got, tc.want)
			}
		})
	}
}

// =============================================================================
// PROBE TESTS
// =============================================================================

func TestProbeSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server)
	err := client.Probe(context.Background())
	if err == nil {
		t.Fatal("expected probe failure")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("probe issued %d calls, expected exactly 1", got)
	}
}

func TestProbeHitsHealthEndpoint(t *testing.T) {
	var path atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	if err := client.Probe(context.Background()); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if got := path.Load().(string); got != "/health" {
		t.Errorf("probe path = %q, expected /health", got)
	}
}
