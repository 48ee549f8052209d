package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/tempoapp/tempo/internal/models"
	"golang.org/x/oauth2"
)

// Mode selects how the accessor reports a missing token. It is an explicit
// construction parameter: the same absence is a recoverable 401 for an API
// route and an immediate invalidation for a page render.
type Mode int

const (
	// ModeAPI returns [ErrNoAccessToken] so the caller can produce a
	// structured 401. The accessor never redirects in this mode.
	ModeAPI Mode = iota

	// ModePage invokes the invalidation callback and returns
	// [ErrRedirectRequired]; the caller's only job is to stop rendering.
	ModePage
)

// ErrNoAccessToken reports that the current session carries no usable
// delegated token.
var ErrNoAccessToken = errors.New("no access token in session")

// ErrRedirectRequired reports that invalidation has been triggered and the
// caller should abandon the current render.
var ErrRedirectRequired = errors.New("session invalidated, redirect required")

// Store is the slice of the session repository the accessor needs.
type Store interface {
	Get(id string) (*models.Session, error)
	Update(session *models.Session) error
}

// Accessor resolves the delegated access token for a session. Each call
// consults the store exactly once; nothing is cached between calls because
// the identity layer may refresh or revoke sessions concurrently.
type Accessor struct {
	store     Store
	oauth     *oauth2.Config
	mode      Mode
	onInvalid func(reason string)
	logger    *log.Logger
}

// NewAccessor creates an accessor for the given mode. onInvalid is invoked
// only in [ModePage]; it may be nil in [ModeAPI].
func NewAccessor(store Store, oauth *oauth2.Config, mode Mode, onInvalid func(reason string), logger *log.Logger) *Accessor {
	return &Accessor{store: store, oauth: oauth, mode: mode, onInvalid: onInvalid, logger: logger}
}

// Token returns the delegated access token for the session, refreshing it
// through the OAuth2 refresh grant when expired and a refresh token is on
// file. The refreshed token pair is persisted before returning.
func (a *Accessor) Token(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", a.fail(ReasonNoAccessToken)
	}

	sess, err := a.store.Get(sessionID)
	if err != nil {
		return "", a.fail(ReasonSessionExpired)
	}

	if sess.TokenUsable() {
		return sess.AccessToken(), nil
	}

	if sess.RefreshToken() == "" || a.oauth == nil {
		return "", a.fail(ReasonNoAccessToken)
	}

	token, err := a.refresh(ctx, sess)
	if err != nil {
		if a.logger != nil {
			a.logger.Warn("token refresh failed", "session", sessionID, "error", err)
		}
		return "", a.fail(ReasonTokenExpired)
	}

	return token, nil
}

// refresh exchanges the stored refresh token for a fresh access token and
// persists the rotated pair.
func (a *Accessor) refresh(ctx context.Context, sess *models.Session) (string, error) {
	seed := &oauth2.Token{RefreshToken: sess.RefreshToken()}

	var refreshed *oauth2.Token
	source := newPersistingTokenSource(a.oauth.TokenSource(ctx, seed), func(token *oauth2.Token) {
		refreshed = token
	})

	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("refresh grant failed: %w", err)
	}

	if refreshed != nil {
		sess.SetTokens(refreshed.AccessToken, refreshed.RefreshToken, refreshed.Expiry)
		if err := a.store.Update(sess); err != nil {
			return "", fmt.Errorf("failed to persist refreshed token: %w", err)
		}
	}

	return token.AccessToken, nil
}

// fail reports a missing token according to the accessor's mode.
func (a *Accessor) fail(reason string) error {
	if a.mode == ModePage {
		if a.onInvalid != nil {
			a.onInvalid(reason)
		}
		return ErrRedirectRequired
	}
	return ErrNoAccessToken
}

// Provider adapts the accessor to the upstream client's token provider
// contract for a single session.
func (a *Accessor) Provider(sessionID string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return a.Token(ctx, sessionID)
	}
}
