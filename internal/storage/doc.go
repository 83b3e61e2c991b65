// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage caches chat metadata locally so the recents list renders
// instantly and stays usable while the backend is unreachable. The backend
// remains the source of truth; the cache is refreshed from it whenever the
// listing succeeds.
package storage
