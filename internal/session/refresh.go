package session

import (
	"golang.org/x/oauth2"
)

// persistingTokenSource wraps an [oauth2.TokenSource] and fires a callback
// whenever the underlying source hands back a different access token, so
// refreshed tokens reach the session store before anyone uses them.
type persistingTokenSource struct {
	source   oauth2.TokenSource
	callback func(token *oauth2.Token)
	last     string
}

func newPersistingTokenSource(source oauth2.TokenSource, callback func(token *oauth2.Token)) *persistingTokenSource {
	return &persistingTokenSource{source: source, callback: callback}
}

// Token returns the current token, invoking the callback on change.
// A panicking callback must not break token resolution.
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.source.Token()
	if err != nil {
		return nil, err
	}

	if s.callback != nil && token.AccessToken != s.last {
		s.last = token.AccessToken
		func() {
			defer func() { _ = recover() }()
			s.callback(token)
		}()
	}

	return token, nil
}
