// package shared holds the cross-cutting pieces the rest of the module
// leans on: logger construction, configuration, database access and id
// generation.
package shared

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a [log.Logger] writing to w, with timestamps and caller
// reporting enabled. Both the server's request logs and the CLI's
// diagnostics run through loggers built here.
//
// A nil writer defaults to [os.Stderr], keeping stdout free for command
// output.
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger derives a child [log.Logger] carrying the given key-value
// pairs on every entry.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] on the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID returns a fresh v4 [uuid.UUID] string. Session ids, embed ids,
// request ids and OAuth state tokens all come from here.
func GenerateID() string {
	return uuid.New().String()
}
