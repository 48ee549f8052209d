package server

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tempoapp/tempo/internal/models"
	"github.com/tempoapp/tempo/internal/repositories"
	"github.com/tempoapp/tempo/internal/session"
	"github.com/tempoapp/tempo/internal/shared"
	"github.com/tempoapp/tempo/internal/spotify"
	"golang.org/x/oauth2"
)

// AuthHandler implements the browser-facing OAuth2 authorization code flow:
// login redirect, callback exchange, sign-out and the logged-out landing page.
type AuthHandler struct {
	oauth       *oauth2.Config
	sessions    *repositories.SessionRepository
	invalidator *Invalidator
	ttl         time.Duration
	apiBase     string
	logger      *log.Logger
}

// AuthOpts contains configuration options for creating an AuthHandler.
type AuthOpts struct {
	OAuth       *oauth2.Config
	Sessions    *repositories.SessionRepository
	Invalidator *Invalidator
	TTL         time.Duration
	APIBase     string // upstream API base URL, defaults to the live API
	Logger      *log.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(opts AuthOpts) *AuthHandler {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &AuthHandler{
		oauth:       opts.OAuth,
		sessions:    opts.Sessions,
		invalidator: opts.Invalidator,
		ttl:         opts.TTL,
		apiBase:     opts.APIBase,
		logger:      opts.Logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/auth/login", "/auth/callback", "/auth/logout", session.LandingPath}
}

// ServeHTTP dispatches to the endpoint for the request path.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login":
		h.login(w, r)
	case "/auth/callback":
		h.callback(w, r)
	case "/auth/logout":
		h.logout(w, r)
	case session.LandingPath:
		h.landing(w, r)
	default:
		http.NotFound(w, r)
	}
}

// login starts the authorization flow with a fresh CSRF state token.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()

	http.SetCookie(w, &http.Cookie{
		Name:     session.StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusSeeOther)
}

// callback validates state, exchanges the authorization code, resolves the
// user's identity and persists the session. Any failure along the way routes
// through the invalidator so the browser lands signed out with a reason.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(session.StateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		h.invalidator.Invalidate(w, r, session.ReasonAuthFailed)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		if h.logger != nil {
			h.logger.Warn("authorization refused", "error", r.URL.Query().Get("error"))
		}
		h.invalidator.Invalidate(w, r, session.ReasonAuthFailed)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("token exchange failed", "error", err)
		}
		h.invalidator.Invalidate(w, r, session.ReasonAuthFailed)
		return
	}

	user, err := h.fetchProfile(r.Context(), token.AccessToken)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("profile fetch failed after exchange", "error", err)
		}
		h.invalidator.Invalidate(w, r, session.ReasonAuthFailed)
		return
	}

	sess := models.NewSession(user.ID, token.AccessToken, token.RefreshToken, token.Expiry, time.Now().Add(h.ttl))
	if err := h.sessions.Create(sess); err != nil {
		if h.logger != nil {
			h.logger.Error("failed to persist session", "error", err)
		}
		h.invalidator.Invalidate(w, r, session.ReasonAuthFailed)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.SessionCookie,
		Value:    sess.ID(),
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     session.StateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// logout signs the session out with no error reason.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.invalidator.Invalidate(w, r, "")
}

// fetchProfile resolves the authenticated user behind a freshly issued token.
func (h *AuthHandler) fetchProfile(ctx context.Context, accessToken string) (*spotify.User, error) {
	client, err := spotify.NewClient(spotify.ClientOpts{
		BaseURL: h.apiBase,
		Provider: spotify.TokenProviderFunc(func(context.Context) (string, error) {
			return accessToken, nil
		}),
		Logger: h.logger,
	})
	if err != nil {
		return nil, err
	}
	return client.Profile(ctx)
}

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>tempo</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0 0 1rem 0; }
        .notice { color: #b91c1c; margin: 0 0 1rem 0; }
        a { color: #1DB954; }
    </style>
</head>
<body>
    <div class="container">
        <h1>tempo</h1>
        {{if .Notice}}<p class="notice">{{.Notice}}</p>{{end}}
        <p>Your listening stats, one login away.</p>
        <a href="/auth/login">Sign in with Spotify</a>
    </div>
</body>
</html>
`))

// landing renders the logged-out page. A timestamped error reason in the
// query shows a notice; stale or absent reasons render the plain page.
func (h *AuthHandler) landing(w http.ResponseWriter, r *http.Request) {
	reason := session.FreshError(r.URL.Query(), time.Now())

	w.Header().Set("Content-Type", "text/html")
	landingTemplate.Execute(w, struct{ Notice string }{Notice: noticeText(reason)})
}

// noticeText maps a landing reason code to its user-facing message.
func noticeText(reason string) string {
	switch reason {
	case session.ReasonSessionExpired:
		return "Your session expired. Please sign in again."
	case session.ReasonTokenExpired:
		return "Your Spotify authorization expired. Please sign in again."
	case session.ReasonInvalidToken:
		return "Your Spotify authorization is no longer valid. Please sign in again."
	case session.ReasonNoAccessToken:
		return "You were signed out. Please sign in again."
	case session.ReasonAuthFailed:
		return "Sign-in failed. Please try again."
	default:
		return ""
	}
}
