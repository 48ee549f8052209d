package server

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/tempoapp/tempo/internal/models"
	"github.com/tempoapp/tempo/internal/repositories"
	"github.com/tempoapp/tempo/internal/session"
	"github.com/tempoapp/tempo/internal/shared"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func expiredCookies(rec *httptest.ResponseRecorder) map[string]bool {
	expired := map[string]bool{}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			expired[cookie.Name] = true
		}
	}
	return expired
}

func TestInvalidator(t *testing.T) {
	t.Run("Signs Out And Redirects With Reason", func(t *testing.T) {
		sessions := repositories.NewSessionRepository(newTestDB(t))
		sess := models.NewSession("user_1", "tok", "refresh",
			time.Now().Add(time.Hour), time.Now().Add(24*time.Hour))
		if err := sessions.Create(sess); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		invalidator := NewInvalidator(sessions, nil)

		req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: session.SessionCookie, Value: sess.ID()})
		req.AddCookie(&http.Cookie{Name: session.StateCookie, Value: "state"})
		req.AddCookie(&http.Cookie{Name: "unrelated", Value: "keep"})

		rec := httptest.NewRecorder()
		invalidator.Invalidate(rec, req, session.ReasonTokenExpired)

		if rec.Code != http.StatusSeeOther {
			t.Errorf("expected 303, got %d", rec.Code)
		}

		location, err := url.Parse(rec.Header().Get("Location"))
		if err != nil {
			t.Fatalf("failed to parse redirect target: %v", err)
		}
		if location.Path != session.LandingPath {
			t.Errorf("expected redirect to %s, got %s", session.LandingPath, location.Path)
		}
		if location.Query().Get("error") != session.ReasonTokenExpired {
			t.Errorf("expected reason param, got %s", location.Query().Get("error"))
		}
		if location.Query().Get("ts") == "" {
			t.Error("expected timestamp param on redirect")
		}

		expired := expiredCookies(rec)
		if !expired[session.SessionCookie] || !expired[session.StateCookie] {
			t.Errorf("expected auth cookies expired, got %v", expired)
		}
		if expired["unrelated"] {
			t.Error("expected unrelated cookie untouched")
		}

		if _, err := sessions.Get(sess.ID()); !errors.Is(err, repositories.ErrNotFound) {
			t.Errorf("expected session deleted, got %v", err)
		}
	})

	t.Run("Expires Cookies For Request Path And Root", func(t *testing.T) {
		invalidator := NewInvalidator(repositories.NewSessionRepository(newTestDB(t)), nil)

		req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: session.StateCookie, Value: "state"})

		rec := httptest.NewRecorder()
		invalidator.Invalidate(rec, req, "")

		paths := map[string]bool{}
		for _, cookie := range rec.Result().Cookies() {
			if cookie.Name == session.StateCookie && cookie.MaxAge < 0 {
				paths[cookie.Path] = true
			}
		}
		if !paths["/"] || !paths["/auth/logout"] {
			t.Errorf("expected expiry for both root and request path, got %v", paths)
		}
	})

	t.Run("No Reason Redirects Plainly", func(t *testing.T) {
		invalidator := NewInvalidator(repositories.NewSessionRepository(newTestDB(t)), nil)

		req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
		rec := httptest.NewRecorder()
		invalidator.Invalidate(rec, req, "")

		if got := rec.Header().Get("Location"); got != session.LandingPath {
			t.Errorf("expected plain landing redirect, got %s", got)
		}
	})

	t.Run("Idempotent Without Session", func(t *testing.T) {
		invalidator := NewInvalidator(repositories.NewSessionRepository(newTestDB(t)), nil)

		for range 2 {
			req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
			req.AddCookie(&http.Cookie{Name: session.SessionCookie, Value: "already_gone"})

			rec := httptest.NewRecorder()
			invalidator.Invalidate(rec, req, session.ReasonSessionExpired)

			if rec.Code != http.StatusSeeOther {
				t.Errorf("expected 303 on repeated invalidation, got %d", rec.Code)
			}
			if !expiredCookies(rec)[session.SessionCookie] {
				t.Error("expected cookie cleared even without a stored session")
			}
		}
	})
}
