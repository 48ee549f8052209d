package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/tempoapp/tempo/internal/models"
	"github.com/tempoapp/tempo/internal/spotify"
	"golang.org/x/oauth2"
)

// memStore is an in-memory [Store] for accessor tests.
type memStore struct {
	sessions map[string]*models.Session
	gets     int
	updates  int
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]*models.Session{}}
}

func (s *memStore) put(sess *models.Session) {
	if sess.ID() == "" {
		sess.SetID(fmt.Sprintf("sess_%d", len(s.sessions)+1))
	}
	s.sessions[sess.ID()] = sess
}

func (s *memStore) Get(id string) (*models.Session, error) {
	s.gets++
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.New("session not found")
	}
	return sess, nil
}

func (s *memStore) Update(sess *models.Session) error {
	s.updates++
	s.sessions[sess.ID()] = sess
	return nil
}

func TestAccessor(t *testing.T) {
	t.Run("Usable Token Returned", func(t *testing.T) {
		store := newMemStore()
		sess := models.NewSession("user_1", "live_token", "",
			time.Now().Add(time.Hour), time.Now().Add(24*time.Hour))
		store.put(sess)

		accessor := NewAccessor(store, nil, ModeAPI, nil, nil)

		token, err := accessor.Token(context.Background(), sess.ID())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "live_token" {
			t.Errorf("expected live_token, got %s", token)
		}
	})

	t.Run("Consults Store Once Per Call", func(t *testing.T) {
		store := newMemStore()
		sess := models.NewSession("user_1", "tok", "",
			time.Now().Add(time.Hour), time.Now().Add(24*time.Hour))
		store.put(sess)

		accessor := NewAccessor(store, nil, ModeAPI, nil, nil)
		for range 4 {
			accessor.Token(context.Background(), sess.ID())
		}
		if store.gets != 4 {
			t.Errorf("expected 4 store reads, got %d", store.gets)
		}
	})

	t.Run("API Mode", func(t *testing.T) {
		t.Run("Missing Session", func(t *testing.T) {
			accessor := NewAccessor(newMemStore(), nil, ModeAPI, nil, nil)

			_, err := accessor.Token(context.Background(), "missing")
			if !errors.Is(err, ErrNoAccessToken) {
				t.Errorf("expected ErrNoAccessToken, got %v", err)
			}
		})

		t.Run("Empty Session ID", func(t *testing.T) {
			accessor := NewAccessor(newMemStore(), nil, ModeAPI, nil, nil)

			_, err := accessor.Token(context.Background(), "")
			if !errors.Is(err, ErrNoAccessToken) {
				t.Errorf("expected ErrNoAccessToken, got %v", err)
			}
		})

		t.Run("Token Missing From Session", func(t *testing.T) {
			store := newMemStore()
			sess := models.NewSession("user_1", "", "",
				time.Time{}, time.Now().Add(24*time.Hour))
			store.put(sess)

			accessor := NewAccessor(store, nil, ModeAPI, nil, nil)

			_, err := accessor.Token(context.Background(), sess.ID())
			if !errors.Is(err, ErrNoAccessToken) {
				t.Errorf("expected ErrNoAccessToken, got %v", err)
			}
		})

		t.Run("Never Invokes Invalidation", func(t *testing.T) {
			invalidated := false
			accessor := NewAccessor(newMemStore(), nil, ModeAPI, func(reason string) {
				invalidated = true
			}, nil)

			accessor.Token(context.Background(), "missing")
			if invalidated {
				t.Error("API mode must not trigger invalidation")
			}
		})
	})

	t.Run("Page Mode Triggers Invalidation", func(t *testing.T) {
		var reason string
		accessor := NewAccessor(newMemStore(), nil, ModePage, func(r string) {
			reason = r
		}, nil)

		_, err := accessor.Token(context.Background(), "missing")
		if !errors.Is(err, ErrRedirectRequired) {
			t.Errorf("expected ErrRedirectRequired, got %v", err)
		}
		if reason != ReasonSessionExpired {
			t.Errorf("expected session_expired reason, got %s", reason)
		}
	})

	t.Run("Refreshes Expired Token", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"fresh_token","refresh_token":"rotated","token_type":"Bearer","expires_in":3600}`)
		}))
		defer tokenServer.Close()

		conf := &oauth2.Config{
			ClientID:     "id",
			ClientSecret: "secret",
			Endpoint:     oauth2.Endpoint{TokenURL: tokenServer.URL},
		}

		store := newMemStore()
		sess := models.NewSession("user_1", "stale_token", "refresh_me",
			time.Now().Add(-time.Minute), time.Now().Add(24*time.Hour))
		store.put(sess)

		accessor := NewAccessor(store, conf, ModeAPI, nil, nil)

		token, err := accessor.Token(context.Background(), sess.ID())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "fresh_token" {
			t.Errorf("expected fresh_token, got %s", token)
		}
		if store.updates != 1 {
			t.Errorf("expected refreshed token persisted once, got %d updates", store.updates)
		}
		if sess.RefreshToken() != "rotated" {
			t.Errorf("expected rotated refresh token, got %s", sess.RefreshToken())
		}
	})

	t.Run("Refresh Failure", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
		}))
		defer tokenServer.Close()

		conf := &oauth2.Config{
			ClientID: "id",
			Endpoint: oauth2.Endpoint{TokenURL: tokenServer.URL},
		}

		store := newMemStore()
		sess := models.NewSession("user_1", "stale", "dead_refresh",
			time.Now().Add(-time.Minute), time.Now().Add(24*time.Hour))
		store.put(sess)

		accessor := NewAccessor(store, conf, ModeAPI, nil, nil)

		if _, err := accessor.Token(context.Background(), sess.ID()); !errors.Is(err, ErrNoAccessToken) {
			t.Errorf("expected ErrNoAccessToken after failed refresh, got %v", err)
		}
	})
}

func TestPolicy(t *testing.T) {
	t.Run("MatchesAuthCookie", func(t *testing.T) {
		for name, want := range map[string]bool{
			"tempo_session_id":   true,
			"tempo_auth_state":   true,
			"tempo_session":      true,
			"tempo_theme":        false,
			"other_cookie":       false,
			"session_tempo_auth": false,
		} {
			if got := MatchesAuthCookie(name); got != want {
				t.Errorf("cookie %s: expected %v, got %v", name, want, got)
			}
		}
	})

	t.Run("LandingURL", func(t *testing.T) {
		now := time.UnixMilli(1700000000000)
		u := LandingURL(ReasonTokenExpired, now)

		parsed, err := url.Parse(u)
		if err != nil {
			t.Fatalf("failed to parse landing url: %v", err)
		}
		if parsed.Path != LandingPath {
			t.Errorf("expected path %s, got %s", LandingPath, parsed.Path)
		}
		if parsed.Query().Get("error") != ReasonTokenExpired {
			t.Errorf("expected error param, got %s", parsed.Query().Get("error"))
		}
		if parsed.Query().Get("ts") != "1700000000000" {
			t.Errorf("expected ts param, got %s", parsed.Query().Get("ts"))
		}
	})

	t.Run("FreshError", func(t *testing.T) {
		now := time.Now()

		t.Run("Fresh", func(t *testing.T) {
			q := url.Values{}
			q.Set("error", ReasonSessionExpired)
			q.Set("ts", fmt.Sprint(now.Add(-2*time.Second).UnixMilli()))
			if got := FreshError(q, now); got != ReasonSessionExpired {
				t.Errorf("expected fresh reason, got %q", got)
			}
		})

		t.Run("Stale", func(t *testing.T) {
			q := url.Values{}
			q.Set("error", ReasonSessionExpired)
			q.Set("ts", fmt.Sprint(now.Add(-time.Minute).UnixMilli()))
			if got := FreshError(q, now); got != "" {
				t.Errorf("expected stale reason discarded, got %q", got)
			}
		})

		t.Run("Missing Timestamp", func(t *testing.T) {
			q := url.Values{}
			q.Set("error", ReasonSessionExpired)
			if got := FreshError(q, now); got != "" {
				t.Errorf("expected missing ts to be stale, got %q", got)
			}
		})

		t.Run("No Error Param", func(t *testing.T) {
			if got := FreshError(url.Values{}, now); got != "" {
				t.Errorf("expected empty reason, got %q", got)
			}
		})
	})

	t.Run("ReasonFor", func(t *testing.T) {
		cases := []struct {
			err  error
			want string
		}{
			{&spotify.Error{Kind: spotify.KindTokenExpired}, ReasonTokenExpired},
			{&spotify.Error{Kind: spotify.KindInvalidToken}, ReasonInvalidToken},
			{&spotify.Error{Kind: spotify.KindNoAccessToken}, ReasonNoAccessToken},
			{&spotify.Error{Kind: spotify.KindForbidden}, ReasonAuthFailed},
			{errors.New("boom"), ReasonAuthFailed},
		}
		for _, tc := range cases {
			if got := ReasonFor(tc.err); got != tc.want {
				t.Errorf("%v: expected %s, got %s", tc.err, tc.want, got)
			}
		}
	})
}
