// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the full-screen terminal interface: the login
// form, the chat view, and the recent-chats list. It is a thin layer over
// the chat engine and session manager; all network work runs in Bubble Tea
// commands so the event loop never blocks.
package ui
