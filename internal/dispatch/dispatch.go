// package dispatch is the client-side consumer of the envelope API
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/tempoapp/tempo/internal/session"
)

// ErrSignedOut reports that the server answered 401 and the local session
// has been invalidated. Callers stop whatever they were rendering.
var ErrSignedOut = errors.New("signed out, session invalidated")

// ErrUnreachable reports a network-level failure: no response envelope
// existed at all. It is kept distinct from server-reported errors so the
// caller can say "can't reach the server" instead of "the server refused".
var ErrUnreachable = errors.New("server unreachable")

// Error is a server-reported failure lifted out of a response envelope.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter int // seconds, set when the server reported rate limiting
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d): %s", e.Code, e.StatusCode, e.Message)
}

// envelope mirrors the server's response body shape.
type envelope struct {
	StatusCode int             `json:"status_code"`
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Err        *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// Dispatcher issues API requests and interprets the response envelope.
//
// It is deliberately thin: data flows through untouched, and the only
// stateful behavior is the 401 path, where the session manager admits
// exactly one invalidation no matter how many requests fail concurrently.
// A 403 produces a notice but never invalidates, since the session itself
// is still good.
type Dispatcher struct {
	baseURL    string
	httpClient *http.Client
	manager    *session.Manager
	invalidate func(reason string)
	notify     func(message string)
	logger     *log.Logger
}

// DispatcherOpts contains configuration options for creating a Dispatcher.
type DispatcherOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Manager    *session.Manager
	Invalidate func(reason string)
	Notify     func(message string)
	Logger     *log.Logger
}

// NewDispatcher creates a new Dispatcher with the provided configuration.
func NewDispatcher(opts DispatcherOpts) *Dispatcher {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:8080"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Manager == nil {
		opts.Manager = session.NewManager()
	}

	return &Dispatcher{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		manager:    opts.Manager,
		invalidate: opts.Invalidate,
		notify:     opts.Notify,
		logger:     opts.Logger,
	}
}

// Manager exposes the session state machine backing the dispatcher.
func (d *Dispatcher) Manager() *session.Manager {
	return d.manager
}

// FetchJSON performs a GET against the API and returns the envelope's data
// block. Auth failures trigger at most one session invalidation and return
// [ErrSignedOut]; network failures return [ErrUnreachable]; every other
// server-reported failure comes back as a [*Error].
func (d *Dispatcher) FetchJSON(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return d.do(req)
}

// PostJSON performs a POST with a JSON body and interprets the envelope the
// same way as [Dispatcher.FetchJSON].
func (d *Dispatcher) PostJSON(ctx context.Context, path string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return d.do(req)
}

func (d *Dispatcher) do(req *http.Request) (json.RawMessage, error) {
	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.say("Can't reach the server. Check your connection.")
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		d.say("The server answered with something unexpected.")
		return nil, fmt.Errorf("failed to decode response envelope: %w", err)
	}

	if env.Status == "success" {
		return env.Data, nil
	}

	apiErr := &Error{StatusCode: env.StatusCode, Message: env.Message}
	if env.Err != nil {
		apiErr.Code = env.Err.Code
		apiErr.Message = env.Err.Message
		if retry, ok := env.Err.Details["retry_after"].(float64); ok {
			apiErr.RetryAfter = int(retry)
		}
	}

	switch env.StatusCode {
	case http.StatusUnauthorized:
		d.handleUnauthorized(apiErr)
		return nil, ErrSignedOut
	case http.StatusForbidden:
		d.say("Spotify refused that request: " + apiErr.Message)
	case http.StatusTooManyRequests:
		d.say(fmt.Sprintf("Rate limited. Try again in %d seconds.", apiErr.RetryAfter))
	}

	return nil, apiErr
}

// handleUnauthorized runs the invalidation path for a 401. The manager
// admits one winner; concurrent losers return without a second notice or
// a second round of cookie clearing.
func (d *Dispatcher) handleUnauthorized(apiErr *Error) {
	if !d.manager.BeginInvalidation() {
		return
	}
	defer d.manager.FinishInvalidation()

	reason := session.ReasonAuthFailed
	switch apiErr.Code {
	case "token_expired":
		reason = session.ReasonTokenExpired
		d.say("Your Spotify authorization expired. Signing out.")
	case "invalid_token":
		reason = session.ReasonInvalidToken
		d.say("Your Spotify authorization is no longer valid. Signing out.")
	case "no_access_token":
		reason = session.ReasonNoAccessToken
		d.say("You are not signed in.")
	default:
		d.say("Your session ended. Signing out.")
	}

	if d.logger != nil {
		d.logger.Info("session invalidated", "code", apiErr.Code, "reason", reason)
	}
	if d.invalidate != nil {
		d.invalidate(reason)
	}
}

// say forwards a user-facing notice when a sink is configured.
func (d *Dispatcher) say(message string) {
	if d.notify != nil {
		d.notify(message)
	}
}
