package models

import (
	"fmt"
	"time"
)

// Embed kinds correspond to the public widget endpoints.
const (
	EmbedKindNowPlaying = "now-playing"
	EmbedKindTopTracks  = "top-tracks"
)

// Embed themes accepted by the widget renderer.
const (
	EmbedThemeLight = "light"
	EmbedThemeDark  = "dark"
)

// Embed registers a public widget, pairing an opaque embed id with its
// owning user. Embed requests are authorized against this record before
// any upstream call is made.
type Embed struct {
	id        string
	userID    string
	kind      string
	theme     string
	createdAt time.Time
	updatedAt time.Time
	revokedAt *time.Time
}

// NewEmbed creates an embed registration for the given user.
func NewEmbed(userID, kind, theme string) *Embed {
	now := time.Now()
	if theme == "" {
		theme = EmbedThemeLight
	}
	return &Embed{
		userID:    userID,
		kind:      kind,
		theme:     theme,
		createdAt: now,
		updatedAt: now,
	}
}

func (e *Embed) ID() string            { return e.id }
func (e *Embed) UserID() string        { return e.userID }
func (e *Embed) Kind() string          { return e.kind }
func (e *Embed) Theme() string         { return e.theme }
func (e *Embed) CreatedAt() time.Time  { return e.createdAt }
func (e *Embed) UpdatedAt() time.Time  { return e.updatedAt }
func (e *Embed) RevokedAt() *time.Time { return e.revokedAt }

func (e *Embed) SetID(id string)           { e.id = id }
func (e *Embed) SetCreatedAt(t time.Time)  { e.createdAt = t }
func (e *Embed) SetUpdatedAt(t time.Time)  { e.updatedAt = t }
func (e *Embed) SetRevokedAt(t *time.Time) { e.revokedAt = t }

// Revoked reports whether the embed has been withdrawn by its owner.
func (e *Embed) Revoked() bool { return e.revokedAt != nil }

// Validate checks the embed's required fields.
func (e *Embed) Validate() error {
	if e.userID == "" {
		return fmt.Errorf("embed requires a user id")
	}
	switch e.kind {
	case EmbedKindNowPlaying, EmbedKindTopTracks:
	default:
		return fmt.Errorf("unknown embed kind: %s", e.kind)
	}
	switch e.theme {
	case EmbedThemeLight, EmbedThemeDark:
	default:
		return fmt.Errorf("unknown embed theme: %s", e.theme)
	}
	return nil
}
