package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.spotify.com/v1"

// Scopes required per endpoint, used to name the missing permission when
// upstream reports an insufficient-scope failure.
const (
	ScopeCurrentlyPlaying = "user-read-currently-playing"
	ScopeTopRead          = "user-top-read"
	ScopeRecentlyPlayed   = "user-read-recently-played"
	ScopePrivateProfile   = "user-read-private"
	ScopePlaylistRead     = "playlist-read-private"
	ScopePlaybackState    = "user-read-playback-state"
)

// TokenProvider resolves the current delegated access token. Implementations
// consult the session store on every call; the client never caches tokens.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenProviderFunc adapts a function to the [TokenProvider] interface.
type TokenProviderFunc func(ctx context.Context) (string, error)

func (f TokenProviderFunc) AccessToken(ctx context.Context) (string, error) { return f(ctx) }

// Client issues read-only requests to the Spotify Web API.
//
// All requests are GETs and safe for the caller to retry. Every failure is
// a [*Error]; success with an empty body is reported as no content, not as
// an error.
type Client struct {
	baseURL    string
	provider   TokenProvider
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// ClientOpts contains configuration options for creating a Client.
type ClientOpts struct {
	BaseURL    string
	Provider   TokenProvider
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     *log.Logger
}

// NewClient creates a Client with the given options. Provider is required.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 0)
	}

	return &Client{
		baseURL:    opts.BaseURL,
		provider:   opts.Provider,
		httpClient: opts.HTTPClient,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}, nil
}

// get performs an authenticated GET and decodes the response into out.
// The returned bool is false when upstream answered with no content
// (204, or a 2xx body that is empty or not valid JSON).
func (c *Client) get(ctx context.Context, endpoint, requiredScope string, out any) (bool, error) {
	token, err := c.provider.AccessToken(ctx)
	if err != nil || token == "" {
		return false, errNoAccessToken(err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return false, &Error{Kind: KindUnknown, Message: "request cancelled while rate limited", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return false, &Error{Kind: KindUnknown, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("upstream request failed", "endpoint", endpoint, "error", err)
		}
		return false, &Error{Kind: KindUnknown, Message: "upstream request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, &Error{Kind: KindUnknown, StatusCode: resp.StatusCode, Message: "failed to read upstream response", Cause: err}
	}

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		classified := Classify(resp.StatusCode, body, requiredScope)
		if classified.Kind == KindRateLimited {
			// The Retry-After header is authoritative when present.
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
				classified.RetryAfter = secs
				classified.Message = fmt.Sprintf("rate limited, retry after %d seconds", secs)
			}
		}
		if c.logger != nil {
			c.logger.Warn("upstream error", "endpoint", endpoint, "status", resp.StatusCode, "kind", classified.Kind.String())
		}
		return false, classified
	}

	if len(body) == 0 || out == nil {
		return false, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		// Some endpoints legitimately return empty or non-JSON bodies on success.
		return false, nil
	}

	return true, nil
}

// CurrentlyPlaying retrieves the user's active playback. Returns (nil, nil)
// when nothing is playing (upstream 204).
func (c *Client) CurrentlyPlaying(ctx context.Context) (*CurrentlyPlaying, error) {
	var playing CurrentlyPlaying
	found, err := c.get(ctx, "/me/player/currently-playing", ScopeCurrentlyPlaying, &playing)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &playing, nil
}

// TopTracks retrieves the user's top tracks for the given time range.
func (c *Client) TopTracks(ctx context.Context, timeRange string, limit, offset int) (*PagedTracks, error) {
	endpoint := fmt.Sprintf("/me/top/tracks?time_range=%s&limit=%d&offset=%d", timeRange, clampLimit(limit, 50), offset)

	var tracks PagedTracks
	if _, err := c.get(ctx, endpoint, ScopeTopRead, &tracks); err != nil {
		return nil, err
	}
	return &tracks, nil
}

// TopArtists retrieves the user's top artists for the given time range.
func (c *Client) TopArtists(ctx context.Context, timeRange string, limit, offset int) (*PagedArtists, error) {
	endpoint := fmt.Sprintf("/me/top/artists?time_range=%s&limit=%d&offset=%d", timeRange, clampLimit(limit, 50), offset)

	var artists PagedArtists
	if _, err := c.get(ctx, endpoint, ScopeTopRead, &artists); err != nil {
		return nil, err
	}
	return &artists, nil
}

// RecentlyPlayed retrieves the user's listening history, newest first.
func (c *Client) RecentlyPlayed(ctx context.Context, limit int) (*RecentlyPlayed, error) {
	endpoint := fmt.Sprintf("/me/player/recently-played?limit=%d", clampLimit(limit, 50))

	var recent RecentlyPlayed
	if _, err := c.get(ctx, endpoint, ScopeRecentlyPlayed, &recent); err != nil {
		return nil, err
	}
	return &recent, nil
}

// Profile retrieves the current authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var user User
	if _, err := c.get(ctx, "/me", ScopePrivateProfile, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Playlists retrieves the current user's playlists with pagination.
func (c *Client) Playlists(ctx context.Context, limit, offset int) (*PagedPlaylists, error) {
	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", clampLimit(limit, 50), offset)

	var playlists PagedPlaylists
	if _, err := c.get(ctx, endpoint, ScopePlaylistRead, &playlists); err != nil {
		return nil, err
	}
	return &playlists, nil
}

// Devices retrieves the user's registered playback devices.
func (c *Client) Devices(ctx context.Context) (*Devices, error) {
	var devices Devices
	if _, err := c.get(ctx, "/me/player/devices", ScopePlaybackState, &devices); err != nil {
		return nil, err
	}
	return &devices, nil
}

func clampLimit(limit, ceiling int) int {
	if limit <= 0 {
		return 20
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

// AsError extracts the typed [*Error] from err, wrapping anything foreign
// as [KindUnknown] so callers always hold exactly one classification.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return &Error{Kind: KindUnknown, Message: err.Error(), Cause: err}
}
