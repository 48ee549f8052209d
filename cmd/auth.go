package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tempoapp/tempo/internal/dispatch"
	"github.com/tempoapp/tempo/internal/models"
	"github.com/tempoapp/tempo/internal/repositories"
	"github.com/tempoapp/tempo/internal/server"
	"github.com/tempoapp/tempo/internal/shared"
	"github.com/tempoapp/tempo/internal/spotify"
	"github.com/urfave/cli/v3"
)

// localCallbackURI receives the authorization redirect during CLI login.
const localCallbackURI = "http://localhost:3000/callback"

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in and out of Spotify",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the current sign-in state",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and clear the stored session",
				Action: r.AuthLogout,
			},
		},
	}
}

// AuthLogin runs the authorization code flow against a temporary local
// callback server, resolves the Spotify identity and persists a session the
// web server and the data commands both use.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: set spotify client_id and client_secret in %s", shared.ErrMissingCredentials, r.configPath)
	}

	// The CLI flow runs its own temporary callback server rather than the
	// web server's /auth/callback, so the Spotify app must also have this
	// redirect URI registered.
	redirectURL, err := url.Parse(localCallbackURI)
	if err != nil {
		return fmt.Errorf("invalid redirect_uri: %w", err)
	}

	oauthConfig := spotify.OAuthConfig(creds.ClientID, creds.ClientSecret, localCallbackURI)
	state := shared.GenerateID()

	handler := server.NewOAuthHandler(oauthConfig, state)
	router := server.NewBasicRouter()
	router.Handler(handler)

	srv := &http.Server{Addr: redirectURL.Host, Handler: router}
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := oauthConfig.AuthCodeURL(state)
	if err := r.writePlain("%s\n", r.palette.Title("Opening your browser to authorize with Spotify...")); err != nil {
		return err
	}
	if err := shared.OpenBrowser(authURL); err != nil {
		if err := r.writePlain("Visit this URL to continue:\n%s\n", authURL); err != nil {
			return err
		}
	}

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return fmt.Errorf("callback server failed: %w", err)
	case <-time.After(2 * time.Minute):
		return fmt.Errorf("%w: no authorization callback received", shared.ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	if result.Error() != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
	}
	token := result.Token

	client, err := spotify.NewClient(spotify.ClientOpts{
		Provider: spotify.TokenProviderFunc(func(context.Context) (string, error) {
			return token.AccessToken, nil
		}),
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	})
	if err != nil {
		return err
	}

	user, err := client.Profile(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve profile: %w", err)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	ttl := time.Duration(r.config.Session.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	sess := models.NewSession(user.ID, token.AccessToken, token.RefreshToken, token.Expiry, time.Now().Add(ttl))
	sessions := repositories.NewSessionRepository(db)
	if err := sessions.Create(sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	if err := saveSessionID(sess.ID()); err != nil {
		return err
	}

	manager := r.dispatcher.Manager()
	manager.BeginAuthentication()
	manager.CompleteAuthentication()

	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	return r.writePlainln("%s", r.palette.OK("Signed in as "+name))
}

// AuthStatus asks the API who the session belongs to.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	data, err := r.dispatcher.FetchJSON(ctx, "/api/profile")
	switch {
	case errors.Is(err, dispatch.ErrSignedOut):
		return r.writePlain("%s\n", r.palette.Err("Not signed in. Run `tempo auth login`."))
	case errors.Is(err, dispatch.ErrUnreachable):
		return r.writePlain("%s\n", r.palette.Warn("Server unreachable. Is `tempo serve` running?"))
	case err != nil:
		return err
	}

	var profile struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("failed to decode profile: %w", err)
	}

	name := profile.DisplayName
	if name == "" {
		name = profile.ID
	}
	return r.writePlain("%s\n", r.palette.OK("Signed in as "+name))
}

// AuthLogout deletes the persisted session and the stored session id.
// Running it while already signed out is fine.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	sessionID := loadSessionID()
	if sessionID == "" {
		return r.writePlain("%s\n", r.palette.Help("Already signed out."))
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	sessions := repositories.NewSessionRepository(db)
	if err := sessions.Delete(sessionID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		r.logger.Warn("failed to delete session", "error", err)
	}

	clearSessionID()

	manager := r.dispatcher.Manager()
	if manager.BeginInvalidation() {
		manager.FinishInvalidation()
	}

	return r.writePlain("%s\n", r.palette.OK("Signed out."))
}
