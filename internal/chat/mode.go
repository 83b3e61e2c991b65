// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"time"

	"github.com/oncosight/oncosight-tui/internal/api"
)

// =============================================================================
// AGENT MODES
// =============================================================================

// Mode selects which agent answers the user's questions.
type Mode string

const (
	// ModeGeneral is the fast general-purpose agent.
	ModeGeneral Mode = "general"
	// ModePatient is the deep agent tuned for patient questions.
	ModePatient Mode = "patient"
	// ModeResearch is the deep agent tuned for researchers.
	ModeResearch Mode = "research"
)

// DefaultDeepTimeout covers the long-running patient and research agents
// when the config does not say otherwise. Those calls are expensive on the
// backend, so they get one attempt and no retry.
const DefaultDeepTimeout = 6 * time.Minute

// ParseMode validates a mode string from config or flags.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGeneral, ModePatient, ModeResearch:
		return Mode(s), nil
	case "":
		return ModeGeneral, nil
	}
	return "", fmt.Errorf("unknown agent mode %q (want general, patient, or research)", s)
}

// Endpoint returns the backend path serving this mode.
func (m Mode) Endpoint() string {
	switch m {
	case ModePatient:
		return "/agents/patient"
	case ModeResearch:
		return "/agents/research"
	default:
		return "/agents/generic"
	}
}

// CallOptions returns the retry and timeout policy for this mode, with
// deepTimeout bounding the patient and research agents (non-positive falls
// back to DefaultDeepTimeout). Deep agents run for minutes; retrying them
// would double the backend's work for a question the user can simply resend.
func (m Mode) CallOptions(deepTimeout time.Duration) api.CallOptions {
	if m == ModePatient || m == ModeResearch {
		if deepTimeout <= 0 {
			deepTimeout = DefaultDeepTimeout
		}
		return api.CallOptions{
			MaxAttempts:   1,
			Timeout:       deepTimeout,
			Authenticated: true,
		}
	}
	return api.CallOptions{
		MaxAttempts:   api.DefaultMaxAttempts,
		Timeout:       api.DefaultTimeout,
		Authenticated: true,
	}
}
