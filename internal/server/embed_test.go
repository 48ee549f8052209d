package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tempoapp/tempo/internal/models"
	"github.com/tempoapp/tempo/internal/repositories"
	"github.com/tempoapp/tempo/internal/session"
	"github.com/tempoapp/tempo/internal/spotify"
)

type embedEnv struct {
	handler  *EmbedHandler
	sessions *repositories.SessionRepository
	embeds   *repositories.EmbedRepository
	upstream *int // count of upstream requests
}

func newEmbedEnv(t *testing.T, upstream http.Handler) *embedEnv {
	t.Helper()

	db := newTestDB(t)
	sessions := repositories.NewSessionRepository(db)
	embeds := repositories.NewEmbedRepository(db)

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		upstream.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	accessor := session.NewAccessor(sessions, nil, session.ModeAPI, nil, nil)
	factory := AccessorClientFactory(accessor, spotify.ClientOpts{BaseURL: server.URL})

	return &embedEnv{
		handler:  NewEmbedHandler(embeds, sessions, factory, nil),
		sessions: sessions,
		embeds:   embeds,
		upstream: &calls,
	}
}

// signIn stores a live session for the user.
func (e *embedEnv) signIn(t *testing.T, userID string) {
	t.Helper()
	sess := models.NewSession(userID, "tok", "",
		time.Now().Add(time.Hour), time.Now().Add(24*time.Hour))
	if err := e.sessions.Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
}

// register stores an embed for the user and returns its id.
func (e *embedEnv) register(t *testing.T, userID, kind, theme string) string {
	t.Helper()
	embed := models.NewEmbed(userID, kind, theme)
	if err := e.embeds.Create(embed); err != nil {
		t.Fatalf("failed to create embed: %v", err)
	}
	return embed.ID()
}

func (e *embedEnv) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestEmbedHandler(t *testing.T) {
	nowPlayingUpstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"is_playing":true,"item":{"name":"Halcyon","artists":[{"name":"Orbital"}]}}`))
	})

	t.Run("Renders Now Playing", func(t *testing.T) {
		env := newEmbedEnv(t, nowPlayingUpstream)
		env.signIn(t, "user_1")
		embedID := env.register(t, "user_1", models.EmbedKindNowPlaying, models.EmbedThemeDark)

		rec := env.get("/embed/now-playing?embed_id=" + embedID + "&user_id=user_1")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "Halcyon") || !strings.Contains(body, "Orbital") {
			t.Errorf("expected track markup, got %s", body)
		}
		if !strings.Contains(body, `class="dark"`) {
			t.Error("expected registered theme applied")
		}
	})

	t.Run("Renders Top Tracks", func(t *testing.T) {
		env := newEmbedEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"items":[{"name":"One"},{"name":"Two"}],"total":2}`))
		}))
		env.signIn(t, "user_1")
		embedID := env.register(t, "user_1", models.EmbedKindTopTracks, models.EmbedThemeLight)

		rec := env.get("/embed/top-tracks?embed_id=" + embedID + "&user_id=user_1")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body := rec.Body.String(); !strings.Contains(body, "One") || !strings.Contains(body, "Two") {
			t.Errorf("expected track list markup, got %s", body)
		}
	})

	t.Run("Authorizes Before Upstream", func(t *testing.T) {
		env := newEmbedEnv(t, nowPlayingUpstream)
		env.signIn(t, "user_1")
		env.signIn(t, "user_2")
		embedID := env.register(t, "user_1", models.EmbedKindNowPlaying, models.EmbedThemeLight)

		rec := env.get("/embed/now-playing?embed_id=" + embedID + "&user_id=user_2")

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for foreign embed, got %d", rec.Code)
		}
		if *env.upstream != 0 {
			t.Error("expected no upstream call for an unauthorized embed")
		}
	})

	t.Run("Kind Must Match Route", func(t *testing.T) {
		env := newEmbedEnv(t, nowPlayingUpstream)
		env.signIn(t, "user_1")
		embedID := env.register(t, "user_1", models.EmbedKindTopTracks, models.EmbedThemeLight)

		rec := env.get("/embed/now-playing?embed_id=" + embedID + "&user_id=user_1")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for mismatched kind, got %d", rec.Code)
		}
	})

	t.Run("Missing Params", func(t *testing.T) {
		env := newEmbedEnv(t, nowPlayingUpstream)
		rec := env.get("/embed/now-playing")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Owner Signed Out", func(t *testing.T) {
		env := newEmbedEnv(t, nowPlayingUpstream)
		embedID := env.register(t, "user_1", models.EmbedKindNowPlaying, models.EmbedThemeLight)

		rec := env.get("/embed/now-playing?embed_id=" + embedID + "&user_id=user_1")

		if rec.Code != http.StatusOK {
			t.Errorf("expected graceful 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "sign in") {
			t.Errorf("expected reactivation message, got %s", rec.Body.String())
		}
	})

	t.Run("Upstream Failure Renders Markup", func(t *testing.T) {
		env := newEmbedEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"status":500,"message":"boom"}}`))
		}))
		env.signIn(t, "user_1")
		embedID := env.register(t, "user_1", models.EmbedKindNowPlaying, models.EmbedThemeLight)

		rec := env.get("/embed/now-playing?embed_id=" + embedID + "&user_id=user_1")

		if rec.Code != http.StatusOK {
			t.Errorf("expected graceful 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "temporarily unavailable") {
			t.Errorf("expected fallback markup, got %s", rec.Body.String())
		}
		if got := rec.Header().Get("Cache-Control"); got != "no-store" {
			t.Errorf("expected error response uncacheable, got %q", got)
		}
	})

	t.Run("Revoked Embed", func(t *testing.T) {
		env := newEmbedEnv(t, nowPlayingUpstream)
		env.signIn(t, "user_1")
		embedID := env.register(t, "user_1", models.EmbedKindNowPlaying, models.EmbedThemeLight)
		if err := env.embeds.Delete(embedID); err != nil {
			t.Fatalf("failed to revoke embed: %v", err)
		}

		rec := env.get("/embed/now-playing?embed_id=" + embedID + "&user_id=user_1")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for revoked embed, got %d", rec.Code)
		}
	})
}

func TestEmbedMiddleware(t *testing.T) {
	t.Run("Headers", func(t *testing.T) {
		handler := EmbedHeaders(30 * time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/embed/now-playing", nil))

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("expected open CORS policy, got %q", got)
		}
		if got := rec.Header().Get("Cache-Control"); got != "public, max-age=30" {
			t.Errorf("expected cache header, got %q", got)
		}
	})
}
