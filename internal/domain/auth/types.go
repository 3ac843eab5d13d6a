// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// Credential is the Drive bearer credential obtained at login.
// RefreshToken is empty when the provider granted no offline access.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// Valid reports whether the access token is present and not within skew of expiry.
func (c Credential) Valid(now time.Time, skew time.Duration) bool {
	if c.AccessToken == "" {
		return false
	}
	if c.Expiry.IsZero() {
		return true
	}
	return now.Add(skew).Before(c.Expiry)
}

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID     string // stable user identifier (the OIDC subject)
	FirstName  string
	LastName   string
	Email      string
	Verified   bool
	Credential Credential
	ExpiresAt  time.Time // absolute session expiry
}

// Domain returns the lower-cased part of the email after the last '@'.
func (i Identity) Domain() string {
	idx := strings.LastIndexByte(i.Email, '@')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(i.Email[idx+1:])
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	Credential Credential `json:"credential"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// IsGuest returns true if the session role is guest.
func (s Session) IsGuest() bool { return s.Role == RoleGuest }

// Public strips the Drive credential so the session can be shown to the browser.
func (s Session) Public() Session {
	s.Credential = Credential{}
	return s
}
