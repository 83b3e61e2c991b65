// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives the conversation loop: sending questions to the
// agent endpoints, resuming server-side history, and turning failures into
// in-conversation error messages instead of crashes.
//
// Engine is the single owner of the active conversation. UI layers read
// snapshots and call Open, Send, and Clear; they never mutate the
// conversation directly. One send is in flight at a time.
package chat
