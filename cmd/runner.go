package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tempoapp/tempo/internal/dispatch"
	"github.com/tempoapp/tempo/internal/session"
	"github.com/tempoapp/tempo/internal/shared"
	"github.com/tempoapp/tempo/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	dispatcher *dispatch.Dispatcher
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	palette    *ui.Palette
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Dispatcher *dispatch.Dispatcher
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Palette    *ui.Palette
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Palette == nil {
		opts.Palette = ui.DefaultPalette()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = dispatch.NewDispatcher(dispatch.DispatcherOpts{
			BaseURL:    opts.Config.Server.BaseURL,
			HTTPClient: opts.HTTPClient,
			Logger:     opts.Logger,
		})
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		dispatcher: opts.Dispatcher,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    opts.Palette,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, authCommand, nowCommand, topCommand,
		recentCommand, profileCommand, playlistsCommand, devicesCommand,
		statsCommand, embedCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// writeRaw pretty-prints a raw JSON payload from the API.
func (r *Runner) writeRaw(data json.RawMessage, pretty bool) error {
	if len(data) == 0 {
		return r.writePlain("%s\n", r.palette.Help("no data"))
	}
	if !pretty {
		return r.writePlain("%s\n", string(data))
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return r.writePlain("%s\n", string(data))
	}
	return r.writePlain("%s\n", buf.String())
}

// sessionFilePath is where the CLI keeps its session id between runs.
func sessionFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".tempo", "session"), nil
}

// saveSessionID persists the session id for later CLI invocations.
func saveSessionID(id string) error {
	path, err := sessionFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id), 0600); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// loadSessionID reads the stored session id; "" when signed out.
func loadSessionID() string {
	path, err := sessionFilePath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// clearSessionID removes the stored session id. Idempotent.
func clearSessionID() {
	if path, err := sessionFilePath(); err == nil {
		os.Remove(path)
	}
}

// newSessionJar builds a cookie jar carrying the stored session cookie, so
// API requests authenticate like a browser would.
func newSessionJar(baseURL string) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	if id := loadSessionID(); id != "" {
		jar.SetCookies(base, []*http.Cookie{{Name: session.SessionCookie, Value: id, Path: "/"}})
	}

	return jar, nil
}
