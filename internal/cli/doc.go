// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-based plain mode used on terminals that
// cannot run the full-screen interface, and in scripted sessions. It wraps
// the same chat engine behind a readline-style prompt with slash commands.
package cli
