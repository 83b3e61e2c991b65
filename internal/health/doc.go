// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package health tracks backend reachability so the UI can show a
// connection badge and gate sends while offline.
//
// The monitor probes on an interval and on demand. Forced checks are rate
// limited: mashing the retry key must not turn into a probe flood.
package health
