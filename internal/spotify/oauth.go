package spotify

import (
	"golang.org/x/oauth2"
)

// Spotify account service endpoints for the authorization code flow.
const (
	AuthURL  = "https://accounts.spotify.com/authorize"
	TokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes returns every permission the application requests. All endpoints
// are read-only.
func Scopes() []string {
	return []string{
		ScopeCurrentlyPlaying,
		ScopeTopRead,
		ScopeRecentlyPlayed,
		ScopePrivateProfile,
		ScopePlaylistRead,
		ScopePlaybackState,
	}
}

// OAuthConfig builds the OAuth2 configuration for the authorization code flow.
func OAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
	}
}
