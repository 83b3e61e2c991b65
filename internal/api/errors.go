// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error variables for transport-level failures.
var (
	// ErrTimeout indicates the per-attempt deadline elapsed before a
	// response arrived. The in-flight call is cancelled when this fires.
	ErrTimeout = errors.New("request timed out")

	// ErrDecode indicates a 2xx response whose body could not be parsed.
	// Terminal: retrying will not make the body well-formed.
	ErrDecode = errors.New("failed to decode response body")
)

// APIError represents a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("oncosight api error (HTTP %d): %s", e.Status, e.Message)
}

// Retryable reports whether the status is a server error worth retrying.
// Everything in 400-499 is a caller/auth error and terminal.
func (e *APIError) Retryable() bool {
	return e.Status >= 500 && e.Status <= 599
}

// =============================================================================
// ERROR ENVELOPE
// =============================================================================

// fieldError is one entry of a FastAPI-style validation error list.
type fieldError struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// errorMessage extracts a human-readable message from an error response
// body. The backend sends either a "detail" field (a string, or a list of
// {loc, msg} validation errors) or an "errors" list of {msg}. An absent or
// unparseable body falls back to a generic message with the status code.
func errorMessage(status int, body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
		Errors []fieldError    `json:"errors"`
	}

	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		if len(env.Detail) > 0 {
			var s string
			if json.Unmarshal(env.Detail, &s) == nil && s != "" {
				return s
			}

			var items []fieldError
			if json.Unmarshal(env.Detail, &items) == nil && len(items) > 0 && items[0].Msg != "" {
				msg := items[0].Msg
				if path := locPath(items[0].Loc); path != "" {
					msg += " (" + path + ")"
				}
				return msg
			}
		}

		if len(env.Errors) > 0 && env.Errors[0].Msg != "" {
			return env.Errors[0].Msg
		}
	}

	return "HTTP " + strconv.Itoa(status)
}

// locPath joins a validation error location into a dotted field path,
// skipping the leading "body" segment the backend prepends.
func locPath(loc []any) string {
	parts := make([]string, 0, len(loc))
	for i, p := range loc {
		s := fmt.Sprint(p)
		if i == 0 && s == "body" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ".")
}
