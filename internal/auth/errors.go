// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import "errors"

// Sentinel errors for session outcomes. Callers branch on these with
// errors.Is; the wrapped chain keeps the backend's message for display.
var (
	// ErrInvalidCredentials indicates the backend rejected the
	// email/password combination.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailUnverified indicates the account exists but its email
	// address has not been verified yet.
	ErrEmailUnverified = errors.New("email address not verified")

	// ErrEmailTaken indicates signup failed because the email address
	// is already registered.
	ErrEmailTaken = errors.New("email address already registered")

	// ErrValidation indicates the backend rejected the request payload.
	ErrValidation = errors.New("invalid request")

	// ErrUnauthenticated indicates there is no usable session: either no
	// tokens are stored, or the backend confirmed they are no longer
	// honored. The user must log in again.
	ErrUnauthenticated = errors.New("not authenticated")
)
