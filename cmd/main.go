package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tempoapp/tempo/internal/dispatch"
	"github.com/tempoapp/tempo/internal/session"
	"github.com/tempoapp/tempo/internal/shared"
	"github.com/tempoapp/tempo/internal/ui"
	"github.com/urfave/cli/v3"
)

const version = "0.3.0"

func main() {
	logger := shared.NewLogger(nil)
	palette := ui.DefaultPalette()

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}

	dispatcher, err := newCLIDispatcher(config, palette, logger)
	if err != nil {
		logger.Fatalf("failed to initialize API client: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Dispatcher: dispatcher,
		Logger:     logger,
		Palette:    palette,
	})

	app := &cli.Command{
		Name:     "tempo",
		Usage:    "Personal Spotify listening stats, served and embedded",
		Version:  version,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

// newCLIDispatcher builds the dispatcher the data commands talk through. The
// cookie jar carries the stored session cookie, so the CLI authenticates to
// the server the same way a browser does, and the same invalidation policy
// clears it when the server answers 401.
func newCLIDispatcher(config *shared.Config, palette *ui.Palette, logger *log.Logger) (*dispatch.Dispatcher, error) {
	base, err := url.Parse(config.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server base_url: %w", err)
	}

	jar, err := newSessionJar(config.Server.BaseURL)
	if err != nil {
		return nil, err
	}

	manager := session.NewManager()
	if loadSessionID() != "" {
		manager.BeginAuthentication()
		manager.CompleteAuthentication()
	}

	invalidator := dispatch.NewCookieInvalidator(jar, base, func(string) {
		clearSessionID()
	})

	return dispatch.NewDispatcher(dispatch.DispatcherOpts{
		BaseURL:    config.Server.BaseURL,
		HTTPClient: &http.Client{Jar: jar, Timeout: 30 * time.Second},
		Manager:    manager,
		Invalidate: invalidator.Invalidate,
		Notify: func(message string) {
			fmt.Fprintln(os.Stderr, palette.Warn(message))
		},
		Logger: logger,
	}), nil
}
