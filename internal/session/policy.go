package session

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tempoapp/tempo/internal/spotify"
)

// Cookie names used by the auth layer. Every cookie carrying auth state
// shares one of the policy prefixes so invalidation can clear by prefix
// instead of maintaining a second list.
const (
	SessionCookie = "tempo_session_id"
	StateCookie   = "tempo_auth_state"
)

// CookiePrefixes match every cookie that must be cleared on invalidation.
var CookiePrefixes = []string{"tempo_session", "tempo_auth"}

// LandingPath is the well-known logged-out entry point.
const LandingPath = "/login"

// StaleWindow is how long a landing-page error param stays meaningful.
// Consumers discard the error when ts is absent or older than this, so a
// reload minutes later does not resurface a stale notice.
const StaleWindow = 10 * time.Second

// Reason codes carried to the logged-out landing page.
const (
	ReasonSessionExpired = "session_expired"
	ReasonAuthFailed     = "authentication_failed"
	ReasonNoAccessToken  = "no_access_token"
	ReasonInvalidToken   = "invalid_token"
	ReasonTokenExpired   = "token_expired"
)

// MatchesAuthCookie reports whether a cookie name falls under the policy
// prefixes and must be cleared on invalidation.
func MatchesAuthCookie(name string) bool {
	for _, prefix := range CookiePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// LandingURL builds the logged-out redirect target with the reason code and
// the moment the failure was raised (epoch milliseconds).
func LandingURL(reason string, now time.Time) string {
	q := url.Values{}
	q.Set("error", reason)
	q.Set("ts", strconv.FormatInt(now.UnixMilli(), 10))
	return fmt.Sprintf("%s?%s", LandingPath, q.Encode())
}

// FreshError returns the error reason from landing-page query parameters,
// or "" when the reason is absent or stale. A missing or unparseable ts
// always counts as stale.
func FreshError(query url.Values, now time.Time) string {
	reason := query.Get("error")
	if reason == "" {
		return ""
	}

	millis, err := strconv.ParseInt(query.Get("ts"), 10, 64)
	if err != nil {
		return ""
	}

	raised := time.UnixMilli(millis)
	if now.Sub(raised) > StaleWindow || raised.After(now.Add(StaleWindow)) {
		return ""
	}
	return reason
}

// ReasonFor maps an auth failure to its landing-page reason code.
func ReasonFor(err error) string {
	switch {
	case spotify.IsKind(err, spotify.KindTokenExpired):
		return ReasonTokenExpired
	case spotify.IsKind(err, spotify.KindInvalidToken):
		return ReasonInvalidToken
	case spotify.IsKind(err, spotify.KindNoAccessToken):
		return ReasonNoAccessToken
	default:
		return ReasonAuthFailed
	}
}
