// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// A Conversation's message list is kept sorted by timestamp at all times:
// locally created messages and history loaded from the backend interleave,
// so insertion order alone is not a valid ordering key. Merging server
// history with optimistic local messages deduplicates by (timestamp,
// content, role) because client-generated and server-side message ids never
// match.
package model
