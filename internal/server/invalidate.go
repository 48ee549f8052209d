package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tempoapp/tempo/internal/repositories"
	"github.com/tempoapp/tempo/internal/session"
)

// Invalidator is the server-side session invalidation backend. It deletes the
// persisted session, expires every auth cookie by policy prefix and redirects
// to the logged-out landing page.
//
// Invalidation is idempotent: a request carrying no session cookie, or a
// cookie for a session already gone, still clears cookies and redirects.
type Invalidator struct {
	sessions *repositories.SessionRepository
	logger   *log.Logger
}

// NewInvalidator creates an invalidator backed by the given session store.
func NewInvalidator(sessions *repositories.SessionRepository, logger *log.Logger) *Invalidator {
	return &Invalidator{sessions: sessions, logger: logger}
}

// Invalidate signs the request's session out and redirects. A non-empty
// reason is carried to the landing page as a timestamped error param; an
// empty reason produces a plain redirect (deliberate sign-out).
func (i *Invalidator) Invalidate(w http.ResponseWriter, r *http.Request, reason string) {
	if cookie, err := r.Cookie(session.SessionCookie); err == nil && cookie.Value != "" {
		if err := i.sessions.Delete(cookie.Value); err != nil && i.logger != nil {
			i.logger.Warn("failed to delete session", "session", cookie.Value, "error", err)
		}
	}

	i.clearCookies(w, r)

	target := session.LandingPath
	if reason != "" {
		target = session.LandingURL(reason, time.Now())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// clearCookies expires every request cookie whose name falls under the
// policy prefixes. Clearing by prefix means a new auth cookie added later
// is covered without touching this code.
//
// Each cookie is expired for both the root path and the request's path: a
// browser only honors a deletion whose path matches the cookie's scope, so
// a cookie set under a sub-path would survive a root-only clear.
func (i *Invalidator) clearCookies(w http.ResponseWriter, r *http.Request) {
	paths := []string{"/"}
	if p := r.URL.Path; p != "" && p != "/" {
		paths = append(paths, p)
	}

	for _, cookie := range r.Cookies() {
		if !session.MatchesAuthCookie(cookie.Name) {
			continue
		}
		for _, path := range paths {
			http.SetCookie(w, &http.Cookie{
				Name:     cookie.Name,
				Value:    "",
				Path:     path,
				MaxAge:   -1,
				HttpOnly: true,
			})
		}
	}
}
