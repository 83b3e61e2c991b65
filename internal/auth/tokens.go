// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

// =============================================================================
// TOKEN PAIR
// =============================================================================

// TokenPair is the credential set issued by the backend on login and
// rotated on refresh. Field names follow the backend's token response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Valid reports whether the pair carries both tokens.
func (t TokenPair) Valid() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// =============================================================================
// IDENTITY
// =============================================================================

// Role distinguishes the two user populations the backend serves.
type Role string

const (
	RolePatient    Role = "patient"
	RoleResearcher Role = "researcher"
)

// Identity is the authenticated user's profile as returned by the backend.
type Identity struct {
	UserID     string `json:"userid"`
	FirstName  string `json:"firstname"`
	LastName   string `json:"lastname"`
	Email      string `json:"email"`
	Role       Role   `json:"user_type"`
	Verified   bool   `json:"is_verified"`
	SignupTime string `json:"signup_timestamp"`
	LastLogin  string `json:"last_login"`
}

// DisplayName returns the user's name for the UI, falling back to the
// email address when the profile has no name set.
func (id Identity) DisplayName() string {
	switch {
	case id.FirstName != "" && id.LastName != "":
		return id.FirstName + " " + id.LastName
	case id.FirstName != "":
		return id.FirstName
	default:
		return id.Email
	}
}
