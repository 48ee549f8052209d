package server

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/tempoapp/tempo/internal/models"
	"github.com/tempoapp/tempo/internal/repositories"
	"github.com/tempoapp/tempo/internal/spotify"
)

// embedTrackLimit caps how many tracks a public widget shows regardless of
// the requested limit.
const embedTrackLimit = 20

// EmbedHandler serves the public, unauthenticated widget endpoints. Every
// request must name both an embed id and the owning user id; the pair is
// authorized against the embed registry before any upstream call is made,
// so guessing ids cannot surface another user's listening data.
//
// Failures render small self-contained HTML rather than JSON or a bare
// status, since the response lands inside a third-party page.
type EmbedHandler struct {
	embeds    *repositories.EmbedRepository
	sessions  *repositories.SessionRepository
	newClient ClientFactory
	logger    *log.Logger
}

// NewEmbedHandler creates the embed handler.
func NewEmbedHandler(embeds *repositories.EmbedRepository, sessions *repositories.SessionRepository, newClient ClientFactory, logger *log.Logger) *EmbedHandler {
	return &EmbedHandler{embeds: embeds, sessions: sessions, newClient: newClient, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *EmbedHandler) Routes() []string {
	return []string{"/embed/now-playing", "/embed/top-tracks"}
}

// ServeHTTP dispatches to the widget for the request path.
func (h *EmbedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.renderError(w, http.StatusMethodNotAllowed, models.EmbedThemeLight, "Unsupported request.")
		return
	}

	switch r.URL.Path {
	case "/embed/now-playing":
		h.widget(w, r, models.EmbedKindNowPlaying)
	case "/embed/top-tracks":
		h.widget(w, r, models.EmbedKindTopTracks)
	default:
		h.renderError(w, http.StatusNotFound, models.EmbedThemeLight, "Unknown widget.")
	}
}

// widget authorizes the embed, resolves the owner's session and renders.
func (h *EmbedHandler) widget(w http.ResponseWriter, r *http.Request, kind string) {
	embedID := r.URL.Query().Get("embed_id")
	userID := r.URL.Query().Get("user_id")
	if embedID == "" || userID == "" {
		h.renderError(w, http.StatusBadRequest, models.EmbedThemeLight, "This widget is missing its configuration.")
		return
	}

	embed, err := h.embeds.Authorize(embedID, userID)
	if err != nil || embed.Kind() != kind {
		h.renderError(w, http.StatusNotFound, models.EmbedThemeLight, "This widget is no longer available.")
		return
	}

	sess, err := h.sessions.GetForUser(userID)
	if err != nil {
		h.renderError(w, http.StatusOK, embed.Theme(), "The owner needs to sign in to reactivate this widget.")
		return
	}

	client, err := h.newClient(sess.ID())
	if err != nil {
		h.renderError(w, http.StatusOK, embed.Theme(), "This widget is temporarily unavailable.")
		return
	}

	switch kind {
	case models.EmbedKindNowPlaying:
		h.nowPlaying(w, r, client, embed)
	case models.EmbedKindTopTracks:
		h.topTracks(w, r, client, embed)
	}
}

func (h *EmbedHandler) nowPlaying(w http.ResponseWriter, r *http.Request, client *spotify.Client, embed *models.Embed) {
	playing, err := client.CurrentlyPlaying(r.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("embed upstream failure", "embed", embed.ID(), "error", err)
		}
		h.renderError(w, http.StatusOK, embed.Theme(), "This widget is temporarily unavailable.")
		return
	}

	data := nowPlayingView{Theme: embed.Theme()}
	if playing != nil && playing.Item != nil {
		data.Playing = playing.IsPlaying
		data.Track = playing.Item.Name
		if len(playing.Item.Artists) > 0 {
			data.Artist = playing.Item.Artists[0].Name
		}
		if len(playing.Item.Album.Images) > 0 {
			data.ImageURL = playing.Item.Album.Images[0].URL
		}
	}

	w.Header().Set("Content-Type", "text/html")
	nowPlayingWidget.Execute(w, data)
}

func (h *EmbedHandler) topTracks(w http.ResponseWriter, r *http.Request, client *spotify.Client, embed *models.Embed) {
	limit := embedTrackLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed < embedTrackLimit {
			limit = parsed
		}
	}

	timeRange := r.URL.Query().Get("time_range")
	if !spotify.ValidTimeRange(timeRange) {
		timeRange = spotify.TimeRangeMedium
	}

	tracks, err := client.TopTracks(r.Context(), timeRange, limit, 0)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("embed upstream failure", "embed", embed.ID(), "error", err)
		}
		h.renderError(w, http.StatusOK, embed.Theme(), "This widget is temporarily unavailable.")
		return
	}

	data := topTracksView{Theme: embed.Theme()}
	for i, track := range tracks.Items {
		row := trackRow{Rank: i + 1, Track: track.Name}
		if len(track.Artists) > 0 {
			row.Artist = track.Artists[0].Name
		}
		data.Tracks = append(data.Tracks, row)
	}

	w.Header().Set("Content-Type", "text/html")
	topTracksWidget.Execute(w, data)
}

// renderError writes the graceful fallback markup. Errors are never cached
// so a recovered widget comes back on the next load.
func (h *EmbedHandler) renderError(w http.ResponseWriter, status int, theme, message string) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	errorWidget.Execute(w, errorView{Theme: theme, Message: message})
}

type nowPlayingView struct {
	Theme    string
	Playing  bool
	Track    string
	Artist   string
	ImageURL string
}

type trackRow struct {
	Rank   int
	Track  string
	Artist string
}

type topTracksView struct {
	Theme  string
	Tracks []trackRow
}

type errorView struct {
	Theme   string
	Message string
}

const widgetStyle = `
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               margin: 0; padding: 0.75rem; }
        body.light { background: #ffffff; color: #1a1a1a; }
        body.dark { background: #121212; color: #f5f5f5; }
        .title { font-weight: 600; }
        .subtitle { color: #888; font-size: 0.85rem; }
        .muted { color: #888; }
        img { border-radius: 4px; }
        ol { margin: 0; padding-left: 1.5rem; }
        li { margin: 0.25rem 0; }
`

var nowPlayingWidget = template.Must(template.New("now-playing").Parse(`<!DOCTYPE html>
<html>
<head><style>` + widgetStyle + `</style></head>
<body class="{{.Theme}}">
{{if .Track}}
    {{if .ImageURL}}<img src="{{.ImageURL}}" width="48" height="48" alt="">{{end}}
    <div class="title">{{.Track}}</div>
    <div class="subtitle">{{.Artist}}{{if not .Playing}} (paused){{end}}</div>
{{else}}
    <div class="muted">Nothing playing right now.</div>
{{end}}
</body>
</html>
`))

var topTracksWidget = template.Must(template.New("top-tracks").Parse(`<!DOCTYPE html>
<html>
<head><style>` + widgetStyle + `</style></head>
<body class="{{.Theme}}">
{{if .Tracks}}
    <ol>
    {{range .Tracks}}<li><span class="title">{{.Track}}</span> <span class="subtitle">{{.Artist}}</span></li>
    {{end}}</ol>
{{else}}
    <div class="muted">No listening history yet.</div>
{{end}}
</body>
</html>
`))

var errorWidget = template.Must(template.New("embed-error").Parse(`<!DOCTYPE html>
<html>
<head><style>` + widgetStyle + `</style></head>
<body class="{{.Theme}}">
    <div class="muted">{{.Message}}</div>
</body>
</html>
`))
