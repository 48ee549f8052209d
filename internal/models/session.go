package models

import (
	"fmt"
	"time"
)

// Session represents an authenticated identity plus the delegated Spotify
// access token issued via OAuth.
//
// A session is either fully usable (token present, unexpired) or must be
// treated as absent. Callers check [Session.Usable] and never inspect the
// token fields piecemeal.
type Session struct {
	id           string
	userID       string
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
	createdAt    time.Time
	updatedAt    time.Time
	expiresAt    time.Time
}

// NewSession creates a session for the given user with the delegated token pair.
func NewSession(userID, accessToken, refreshToken string, tokenExpiry, expiresAt time.Time) *Session {
	now := time.Now()
	return &Session{
		userID:       userID,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		tokenExpiry:  tokenExpiry,
		createdAt:    now,
		updatedAt:    now,
		expiresAt:    expiresAt,
	}
}

func (s *Session) ID() string             { return s.id }
func (s *Session) UserID() string         { return s.userID }
func (s *Session) AccessToken() string    { return s.accessToken }
func (s *Session) RefreshToken() string   { return s.refreshToken }
func (s *Session) TokenExpiry() time.Time { return s.tokenExpiry }
func (s *Session) CreatedAt() time.Time   { return s.createdAt }
func (s *Session) UpdatedAt() time.Time   { return s.updatedAt }
func (s *Session) ExpiresAt() time.Time   { return s.expiresAt }

func (s *Session) SetID(id string)          { s.id = id }
func (s *Session) SetCreatedAt(t time.Time) { s.createdAt = t }
func (s *Session) SetUpdatedAt(t time.Time) { s.updatedAt = t }

// SetTokens replaces the delegated token pair, e.g. after a transparent refresh.
func (s *Session) SetTokens(accessToken, refreshToken string, tokenExpiry time.Time) {
	s.accessToken = accessToken
	if refreshToken != "" {
		s.refreshToken = refreshToken
	}
	s.tokenExpiry = tokenExpiry
	s.updatedAt = time.Now()
}

// Validate checks the session's required fields.
func (s *Session) Validate() error {
	if s.userID == "" {
		return fmt.Errorf("session requires a user id")
	}
	if s.expiresAt.IsZero() {
		return fmt.Errorf("session requires an expiry")
	}
	return nil
}

// Expired reports whether the session itself has outlived its lifetime.
func (s *Session) Expired() bool {
	return time.Now().After(s.expiresAt)
}

// TokenUsable reports whether the delegated access token can be sent upstream.
// A token with no recorded expiry is assumed live; the upstream 401 path
// handles the case where that assumption is wrong.
func (s *Session) TokenUsable() bool {
	if s.accessToken == "" {
		return false
	}
	if s.tokenExpiry.IsZero() {
		return true
	}
	return time.Now().Before(s.tokenExpiry)
}

// Usable reports whether the session is fully valid: unexpired and carrying
// a usable delegated token. There is no partially-valid state.
func (s *Session) Usable() bool {
	return !s.Expired() && s.TokenUsable()
}
