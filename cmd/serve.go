package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tempoapp/tempo/internal/repositories"
	"github.com/tempoapp/tempo/internal/server"
	"github.com/tempoapp/tempo/internal/session"
	"github.com/tempoapp/tempo/internal/spotify"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Cache lifetimes for the public embed routes. Now-playing changes with the
// track; top tracks move slowly.
const (
	nowPlayingCacheAge = 30 * time.Second
	topTracksCacheAge  = 300 * time.Second
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the stats web server",
		Action: r.Serve,
	}
}

// Serve wires the full HTTP stack and blocks until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	sessions := repositories.NewSessionRepository(db)
	embeds := repositories.NewEmbedRepository(db)

	creds := cfg.Credentials.Spotify
	oauthConfig := spotify.OAuthConfig(creds.ClientID, creds.ClientSecret, creds.RedirectURI)

	accessor := session.NewAccessor(sessions, oauthConfig, session.ModeAPI, nil, r.logger)
	newClient := server.AccessorClientFactory(accessor, spotify.ClientOpts{
		HTTPClient: r.httpClient,
		Limiter:    newLimiter(cfg.Server.UpstreamRate, cfg.Server.UpstreamBurst),
		Logger:     r.logger,
	})

	invalidator := server.NewInvalidator(sessions, r.logger)
	api := server.NewAPIHandler(newClient, sessions, embeds, r.logger)
	auth := server.NewAuthHandler(server.AuthOpts{
		OAuth:       oauthConfig,
		Sessions:    sessions,
		Invalidator: invalidator,
		TTL:         time.Duration(cfg.Session.TTLHours) * time.Hour,
		Logger:      r.logger,
	})
	embedHandler := server.NewEmbedHandler(embeds, sessions, newClient, r.logger)

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.RequestLogger(r.logger))
	router.Handler(api)
	router.Handler(auth)

	// Embed routes skip the session stack entirely. Each gets the wide-open
	// CORS policy, its own cache lifetime and a shared anonymous rate budget.
	embedLimiter := newLimiter(cfg.Server.EmbedRate, cfg.Server.EmbedBurst)
	router.Handle(http.MethodGet, "/embed/now-playing",
		server.EmbedHeaders(nowPlayingCacheAge)(server.RateLimit(embedLimiter)(embedHandler)))
	router.Handle(http.MethodGet, "/embed/top-tracks",
		server.EmbedHeaders(topTracksCacheAge)(server.RateLimit(embedLimiter)(embedHandler)))

	router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, session.LandingPath, http.StatusSeeOther)
	}))

	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: router}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.ListenAndServe()
	}()

	r.logger.Info("server listening", "addr", cfg.Server.Addr(), "base_url", cfg.Server.BaseURL)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		r.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return nil
}

// newLimiter builds a rate limiter from config values, unlimited when the
// rate is unset.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
