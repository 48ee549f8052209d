package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tempoapp/tempo/internal/models"
	"github.com/tempoapp/tempo/internal/repositories"
	"github.com/tempoapp/tempo/internal/session"
	"github.com/tempoapp/tempo/internal/spotify"
	"github.com/tempoapp/tempo/internal/stats"
)

// ClientFactory builds an upstream client bound to one session. Each request
// gets its own client so the token provider resolves against the session
// carried by that request's cookie.
type ClientFactory func(sessionID string) (*spotify.Client, error)

// AccessorClientFactory builds clients whose token provider goes through the
// given accessor, sharing the base options (HTTP client, limiter, logger).
func AccessorClientFactory(accessor *session.Accessor, base spotify.ClientOpts) ClientFactory {
	return func(sessionID string) (*spotify.Client, error) {
		opts := base
		opts.Provider = spotify.TokenProviderFunc(accessor.Provider(sessionID))
		return spotify.NewClient(opts)
	}
}

// APIHandler serves the authenticated JSON data routes. Every response is an
// [Envelope]; auth failures answer 401 and never redirect, leaving recovery
// to the caller.
type APIHandler struct {
	newClient ClientFactory
	sessions  session.Store
	embeds    *repositories.EmbedRepository
	logger    *log.Logger
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(newClient ClientFactory, sessions session.Store, embeds *repositories.EmbedRepository, logger *log.Logger) *APIHandler {
	return &APIHandler{newClient: newClient, sessions: sessions, embeds: embeds, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{
		"/api/now-playing",
		"/api/top-tracks",
		"/api/top-artists",
		"/api/recently-played",
		"/api/profile",
		"/api/playlists",
		"/api/devices",
		"/api/stats/genres",
		"/api/stats/hours",
		"/api/stats/gems",
		"/api/embeds",
	}
}

// ServeHTTP dispatches to the endpoint for the request path.
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/embeds" {
		switch r.Method {
		case http.MethodGet:
			h.listEmbeds(w, r)
		case http.MethodPost:
			h.createEmbed(w, r)
		default:
			Failure(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed").Write(w)
		}
		return
	}

	if r.Method != http.MethodGet {
		Failure(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed").Write(w)
		return
	}

	switch r.URL.Path {
	case "/api/now-playing":
		h.nowPlaying(w, r)
	case "/api/top-tracks":
		h.topTracks(w, r)
	case "/api/top-artists":
		h.topArtists(w, r)
	case "/api/recently-played":
		h.recentlyPlayed(w, r)
	case "/api/profile":
		h.profile(w, r)
	case "/api/playlists":
		h.playlists(w, r)
	case "/api/devices":
		h.devices(w, r)
	case "/api/stats/genres":
		h.statsGenres(w, r)
	case "/api/stats/hours":
		h.statsHours(w, r)
	case "/api/stats/gems":
		h.statsGems(w, r)
	default:
		NotFound("unknown endpoint").Write(w)
	}
}

// sessionID reads the session cookie; absence is reported downstream as a
// missing-token failure, not here.
func (h *APIHandler) sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(session.SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func (h *APIHandler) client(r *http.Request) (*spotify.Client, error) {
	return h.newClient(h.sessionID(r))
}

// writeErr maps any failure to its envelope through the upstream taxonomy.
func (h *APIHandler) writeErr(w http.ResponseWriter, err error) {
	FromUpstream(spotify.AsError(err)).Write(w)
}

// timeRangeParam validates the time_range query parameter, defaulting to the
// medium term.
func timeRangeParam(r *http.Request) (string, *Envelope) {
	timeRange := r.URL.Query().Get("time_range")
	if timeRange == "" {
		return spotify.TimeRangeMedium, nil
	}
	if !spotify.ValidTimeRange(timeRange) {
		return "", BadRequest(fmt.Sprintf("invalid time_range: %s", timeRange))
	}
	return timeRange, nil
}

// intParam parses a non-negative integer query parameter with a fallback.
func intParam(r *http.Request, name string, fallback int) (int, *Envelope) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, BadRequest(fmt.Sprintf("invalid %s: %s", name, raw))
	}
	return value, nil
}

func (h *APIHandler) nowPlaying(w http.ResponseWriter, r *http.Request) {
	client, err := h.client(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	playing, err := client.CurrentlyPlaying(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if playing == nil {
		Success("no active playback", nil).Write(w)
		return
	}
	Success("currently playing retrieved", playing).Write(w)
}

func (h *APIHandler) topTracks(w http.ResponseWriter, r *http.Request) {
	timeRange, envelope := timeRangeParam(r)
	if envelope != nil {
		envelope.Write(w)
		return
	}
	limit, envelope := intParam(r, "limit", 20)
	if envelope != nil {
		envelope.Write(w)
		return
	}
	offset, envelope := intParam(r, "offset", 0)
	if envelope != nil {
		envelope.Write(w)
		return
	}

	client, err := h.client(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	tracks, err := client.TopTracks(r.Context(), timeRange, limit, offset)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	Success("top tracks retrieved", tracks).Write(w)
}

func (h *APIHandler) topArtists(w http.ResponseWriter, r *http.Request) {
	timeRange, envelope := timeRangeParam(r)
	if envelope != nil {
		envelope.Write(w)
		return
	}
	limit, envelope := intParam(r, "limit", 20)
	if envelope != nil {
		envelope.Write(w)
		return
	}
	offset, envelope := intParam(r, "offset", 0)
	if envelope != nil {
		envelope.Write(w)
		return
	}

	client, err := h.client(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	artists, err := client.TopArtists(r.Context(), timeRange, limit, offset)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	Success("top artists retrieved", artists).Write(w)
}

func (h *APIHandler) recentlyPlayed(w http.ResponseWriter, r *http.Request) {
	limit, envelope := intParam(r, "limit", 20)
	if envelope != nil {
		envelope.Write(w)
		return
	}

	client, err := h.client(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	recent, err := client.RecentlyPlayed(r.Context(), limit)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	Success("recently played retrieved", recent).Write(w)
}

func (h *APIHandler) profile(w http.ResponseWriter, r *http.Request) {
	client, err := h.client(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	user, err := client.Profile(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	Success("profile retrieved", user).Write(w)
}

func (h *APIHandler) playlists(w http.ResponseWriter, r *http.Request) {
	limit, envelope := intParam(r, "limit", 20)
	if envelope != nil {
		envelope.Write(w)
		return
	}
	offset, envelope := intParam(r, "offset", 0)
	if envelope != nil {
		envelope.Write(w)
		return
	}

	client, err := h.client(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	playlists, err := client.Playlists(r.Context(), limit, offset)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	Success("playlists retrieved", playlists).Write(w)
}

func (h *APIHandler) devices(w http.ResponseWriter, r *http.Request) {
	client, err := h.client(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	devices, err := client.Devices(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	Success("devices retrieved", devices).Write(w)
}

func (h *APIHandler) statsGenres(w http.ResponseWriter, r *http.Request) {
	timeRange, envelope := timeRangeParam(r)
	if envelope != nil {
		envelope.Write(w)
		return
	}
	limit, envelope := intParam(r, "limit", 10)
	if envelope != nil {
		envelope.Write(w)
		return
	}

	client, err := h.client(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	artists, err := client.TopArtists(r.Context(), timeRange, 50, 0)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	Success("genre breakdown computed", stats.Genres(artists.Items, limit)).Write(w)
}

func (h *APIHandler) statsHours(w http.ResponseWriter, r *http.Request) {
	client, err := h.client(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	recent, err := client.RecentlyPlayed(r.Context(), 50)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	Success("listening hours computed", stats.ListeningHours(recent.Items)).Write(w)
}

func (h *APIHandler) statsGems(w http.ResponseWriter, r *http.Request) {
	timeRange, envelope := timeRangeParam(r)
	if envelope != nil {
		envelope.Write(w)
		return
	}
	ceiling, envelope := intParam(r, "max_popularity", 0)
	if envelope != nil {
		envelope.Write(w)
		return
	}

	client, err := h.client(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	tracks, err := client.TopTracks(r.Context(), timeRange, 50, 0)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	Success("hidden gems computed", stats.HiddenGems(tracks.Items, ceiling)).Write(w)
}

// embedView is the wire shape for embed registrations.
type embedView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Theme     string    `json:"theme"`
	CreatedAt time.Time `json:"created_at"`
}

func viewEmbed(embed *models.Embed) embedView {
	return embedView{
		ID:        embed.ID(),
		UserID:    embed.UserID(),
		Kind:      embed.Kind(),
		Theme:     embed.Theme(),
		CreatedAt: embed.CreatedAt(),
	}
}

// currentUser resolves the request's session to its owning user.
func (h *APIHandler) currentUser(r *http.Request) (string, *Envelope) {
	sessionID := h.sessionID(r)
	if sessionID == "" {
		return "", Unauthorized(spotify.KindNoAccessToken.String(), "sign in required")
	}
	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		return "", Unauthorized(spotify.KindNoAccessToken.String(), "sign in required")
	}
	return sess.UserID(), nil
}

func (h *APIHandler) createEmbed(w http.ResponseWriter, r *http.Request) {
	userID, envelope := h.currentUser(r)
	if envelope != nil {
		envelope.Write(w)
		return
	}

	var body struct {
		Kind  string `json:"kind"`
		Theme string `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		BadRequest("invalid request body").Write(w)
		return
	}

	embed := models.NewEmbed(userID, body.Kind, body.Theme)
	if err := h.embeds.Create(embed); err != nil {
		BadRequest(err.Error()).Write(w)
		return
	}

	Created("embed registered", viewEmbed(embed)).Write(w)
}

func (h *APIHandler) listEmbeds(w http.ResponseWriter, r *http.Request) {
	userID, envelope := h.currentUser(r)
	if envelope != nil {
		envelope.Write(w)
		return
	}

	embeds, err := h.embeds.ListForUser(userID)
	if err != nil {
		Failure(http.StatusInternalServerError, "internal_error", "failed to list embeds").Write(w)
		return
	}

	views := make([]embedView, 0, len(embeds))
	for _, embed := range embeds {
		views = append(views, viewEmbed(embed))
	}
	Success("embeds retrieved", views).Write(w)
}
