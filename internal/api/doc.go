// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the resilient HTTP client for the OncoSight backend.
//
// All outbound calls go through Client.Call, which is the single place that
// knows about timeouts, cancellation, and the retry/backoff policy. Callers
// reason only in terms of a decoded response or a typed failure:
//
//   - *APIError with a 4xx status: terminal, never retried
//   - *APIError with a 5xx status: retried with exponential backoff
//   - ErrTimeout: the per-attempt deadline elapsed, retried
//   - other transport errors: retried
//   - context cancellation: never retried
//
// Reachability probes (Probe) use a short fixed timeout and a single
// attempt; they never participate in the backoff schedule.
package api
