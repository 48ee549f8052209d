package dispatch

import (
	"net/http"
	"net/url"
	"time"

	"github.com/tempoapp/tempo/internal/session"
)

// CookieInvalidator is the client-side invalidation backend. It drops every
// auth cookie from the jar by policy prefix and then navigates to the
// logged-out landing page. It mirrors the server-side invalidator for
// clients that hold their own cookie state.
type CookieInvalidator struct {
	jar      http.CookieJar
	base     *url.URL
	navigate func(target string)
}

// NewCookieInvalidator creates a cookie invalidator over the given jar.
// navigate receives the landing target and may be nil for headless use.
func NewCookieInvalidator(jar http.CookieJar, base *url.URL, navigate func(target string)) *CookieInvalidator {
	return &CookieInvalidator{jar: jar, base: base, navigate: navigate}
}

// Invalidate clears matching cookies and navigates. Idempotent: an empty
// jar still results in a navigation.
//
// Expiry entries are written for both the root path and the base URL's
// path; the jar keys cookies by path, so a root-only expiry would leave a
// cookie scoped to the current path behind.
func (i *CookieInvalidator) Invalidate(reason string) {
	paths := []string{"/"}
	if p := i.base.Path; p != "" && p != "/" {
		paths = append(paths, p)
	}

	expiry := time.Unix(0, 0)
	for _, cookie := range i.jar.Cookies(i.base) {
		if !session.MatchesAuthCookie(cookie.Name) {
			continue
		}
		for _, path := range paths {
			i.jar.SetCookies(i.base, []*http.Cookie{{
				Name:    cookie.Name,
				Value:   "",
				Path:    path,
				MaxAge:  -1,
				Expires: expiry,
			}})
		}
	}

	if i.navigate != nil {
		target := session.LandingPath
		if reason != "" {
			target = session.LandingURL(reason, time.Now())
		}
		i.navigate(target)
	}
}
