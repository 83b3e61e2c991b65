// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/oncosight/oncosight-tui/internal/api"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager owns the session lifecycle. It implements api.TokenSource, so the
// HTTP client pulls the current access token from it on every authenticated
// call and token rotation is picked up without re-wiring.
//
// Network calls run outside the mutex; only state mutations take it.
type Manager struct {
	mu       sync.Mutex
	client   *api.Client
	store    Store
	pair     TokenPair
	identity *Identity
}

// NewManager creates a session manager backed by the given store.
func NewManager(client *api.Client, store Store) *Manager {
	return &Manager{client: client, store: store}
}

// AccessToken implements api.TokenSource. Empty when logged out.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair.AccessToken
}

// Authenticated reports whether a token pair is held.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair.Valid()
}

// Identity returns the cached profile, or nil before FetchIdentity.
func (m *Manager) Identity() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// =============================================================================
// LOGIN / SIGNUP
// =============================================================================

// Login authenticates with the backend, persists the issued token pair, and
// loads the user profile. On failure nothing is stored.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}

	var pair TokenPair
	err := m.client.Call(ctx, http.MethodPost, "/auth/login", body, &pair, api.CallOptions{})
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Status {
			case http.StatusUnauthorized:
				return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
			case http.StatusForbidden:
				return fmt.Errorf("%w: %s", ErrEmailUnverified, apiErr.Message)
			}
		}
		return fmt.Errorf("login failed: %w", err)
	}
	if !pair.Valid() {
		return fmt.Errorf("login failed: backend returned incomplete token pair")
	}

	m.setPair(pair)
	log.Printf("session: login succeeded")

	if err := m.FetchIdentity(ctx); err != nil {
		// The session is established even if the profile fetch hiccups.
		log.Printf("session: profile fetch after login failed: %v", err)
	}
	return nil
}

// SignUpRequest is the registration payload.
type SignUpRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      Role   `json:"user_type"`
}

// SignUp registers a new account. The account starts unverified; the
// backend sends a verification email. No tokens are issued.
func (m *Manager) SignUp(ctx context.Context, req SignUpRequest) error {
	err := m.client.Call(ctx, http.MethodPost, "/auth/signup", req, nil, api.CallOptions{})
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Status {
			case http.StatusConflict:
				return fmt.Errorf("%w: %s", ErrEmailTaken, apiErr.Message)
			case http.StatusUnprocessableEntity:
				return fmt.Errorf("%w: %s", ErrValidation, apiErr.Message)
			}
		}
		return fmt.Errorf("signup failed: %w", err)
	}
	return nil
}

// =============================================================================
// SESSION RESTORE
// =============================================================================

// Bootstrap restores a persisted session at startup. It loads the stored
// token pair and validates it against the backend. ErrUnauthenticated means
// the app starts anonymous; any other error means the backend could not be
// reached and the stored session is kept for a later retry.
func (m *Manager) Bootstrap(ctx context.Context) error {
	pair, err := m.store.Load()
	if errors.Is(err, ErrNoTokens) {
		return ErrUnauthenticated
	}
	if errors.Is(err, ErrCorruptStore) {
		log.Printf("session: discarding unreadable credential store")
		m.store.Clear()
		return ErrUnauthenticated
	}
	if err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}

	m.mu.Lock()
	m.pair = pair
	m.mu.Unlock()

	return m.FetchIdentity(ctx)
}

// FetchIdentity loads the user profile for the current session. A 401 is
// given one refresh-and-retry; if the retry is rejected too, the session is
// confirmed dead and cleared. Network failures and 5xx preserve the session.
func (m *Manager) FetchIdentity(ctx context.Context) error {
	err := m.fetchIdentityOnce(ctx)
	if err == nil {
		return nil
	}

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.Status {
	case http.StatusUnauthorized:
		if err := m.RefreshAccessToken(ctx); err != nil {
			return err
		}
		retryErr := m.fetchIdentityOnce(ctx)
		if retryErr == nil {
			return nil
		}
		if errors.As(retryErr, &apiErr) &&
			(apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			m.clearSession()
			return fmt.Errorf("%w: %s", ErrUnauthenticated, apiErr.Message)
		}
		return retryErr

	case http.StatusForbidden:
		m.clearSession()
		return fmt.Errorf("%w: %s", ErrUnauthenticated, apiErr.Message)
	}

	return err
}

func (m *Manager) fetchIdentityOnce(ctx context.Context) error {
	var id Identity
	err := m.client.Call(ctx, http.MethodGet, "/auth/me", nil, &id, api.CallOptions{Authenticated: true})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.identity = &id
	m.mu.Unlock()
	return nil
}

// RefreshAccessToken exchanges the refresh token for a new pair. A 4xx
// response confirms the refresh token is dead and clears the session; a
// network failure or 5xx leaves the stored pair untouched.
func (m *Manager) RefreshAccessToken(ctx context.Context) error {
	m.mu.Lock()
	refresh := m.pair.RefreshToken
	m.mu.Unlock()

	if refresh == "" {
		return ErrUnauthenticated
	}

	body := map[string]string{"refresh_token": refresh}
	var pair TokenPair
	err := m.client.Call(ctx, http.MethodPost, "/auth/refresh", body, &pair, api.CallOptions{})
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			m.clearSession()
			log.Printf("session: refresh rejected, credentials cleared")
			return fmt.Errorf("%w: %s", ErrUnauthenticated, apiErr.Message)
		}
		return fmt.Errorf("token refresh failed: %w", err)
	}
	if !pair.Valid() {
		return fmt.Errorf("token refresh failed: backend returned incomplete token pair")
	}

	m.setPair(pair)
	log.Printf("session: tokens refreshed")
	return nil
}

// =============================================================================
// LOGOUT
// =============================================================================

// Logout revokes the current refresh token on the backend and clears local
// credentials. The local clear happens regardless of the server call's
// outcome: logout must never fail from the user's point of view. The
// refresh token travels in the body; it is never sent as a header.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	refresh := m.pair.RefreshToken
	m.mu.Unlock()

	var body any
	if refresh != "" {
		body = map[string]string{"refresh_token": refresh}
	}
	err := m.client.Call(ctx, http.MethodPost, "/auth/logout", body, nil, api.CallOptions{
		MaxAttempts: 1,
	})
	if err != nil {
		log.Printf("session: server-side logout failed (clearing locally anyway): %v", err)
	}
	m.clearSession()
}

// LogoutAll revokes every session for the account, then clears locally.
func (m *Manager) LogoutAll(ctx context.Context) {
	err := m.client.Call(ctx, http.MethodPost, "/auth/logout-all", nil, nil, api.CallOptions{
		MaxAttempts:   1,
		Authenticated: true,
	})
	if err != nil {
		log.Printf("session: server-side logout failed (clearing locally anyway): %v", err)
	}
	m.clearSession()
}

// =============================================================================
// ACCOUNT OPERATIONS
// =============================================================================

// VerifyEmail confirms an email address with the token from the
// verification email.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	body := map[string]string{"token": token}
	if err := m.client.Call(ctx, http.MethodPost, "/auth/verify-email", body, nil, api.CallOptions{}); err != nil {
		return fmt.Errorf("email verification failed: %w", err)
	}
	return nil
}

// ResendVerification asks the backend to send a fresh verification email.
// Available before login, so an unverified user is not locked out of
// requesting it.
func (m *Manager) ResendVerification(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	if err := m.client.Call(ctx, http.MethodPost, "/auth/resend-verification", body, nil, api.CallOptions{}); err != nil {
		return fmt.Errorf("failed to resend verification email: %w", err)
	}
	return nil
}

// ForgotPassword starts the password reset flow for the given email.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	if err := m.client.Call(ctx, http.MethodPost, "/auth/forgot-password", body, nil, api.CallOptions{}); err != nil {
		return fmt.Errorf("failed to request password reset: %w", err)
	}
	return nil
}

// ResetPassword completes the reset flow with the emailed token.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "new_password": newPassword}
	err := m.client.Call(ctx, http.MethodPost, "/auth/reset-password", body, nil, api.CallOptions{})
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
			return fmt.Errorf("%w: %s", ErrValidation, apiErr.Message)
		}
		return fmt.Errorf("password reset failed: %w", err)
	}
	return nil
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

func (m *Manager) setPair(pair TokenPair) {
	m.mu.Lock()
	m.pair = pair
	m.mu.Unlock()

	if err := m.store.Save(pair); err != nil {
		// The in-memory session still works; it just won't survive a
		// restart.
		log.Printf("session: failed to persist credentials: %v", err)
	}
}

func (m *Manager) clearSession() {
	m.mu.Lock()
	m.pair = TokenPair{}
	m.identity = nil
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		log.Printf("session: failed to clear credential store: %v", err)
	}
}
