// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth manages the user session: login, signup, token refresh,
// logout, and encrypted at-rest storage of the token pair.
//
// Manager is the only component that holds credentials. It implements
// api.TokenSource so the HTTP client can attach the access token without
// ever storing it. Tokens persist across restarts through Store; the file
// implementation encrypts them with AES-256-GCM under a key derived from a
// per-install secret.
//
// The clearing policy distinguishes confirmed rejection from ambiguity: a
// 4xx response to a refresh attempt means the backend no longer honors the
// credentials and they are cleared, while a network failure or 5xx leaves
// them in place so a transient outage cannot log the user out.
package auth
