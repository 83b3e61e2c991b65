// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for the OncoSight client.
//
// Configuration precedence, highest first:
//   - ONCOSIGHT_* environment variables
//   - ~/.oncosight/config.toml
//   - Built-in defaults
//
// Watch re-reads the file on change so a running session picks up edits
// without a restart.
package config
