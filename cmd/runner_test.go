package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	itesting "github.com/tempoapp/tempo/internal/testing"
)

func TestNewRunner(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		r := NewRunner(RunnerOpts{})

		if r.config == nil {
			t.Error("expected default config")
		}
		if r.logger == nil {
			t.Error("expected default logger")
		}
		if r.output == nil {
			t.Error("expected default output")
		}
		if r.httpClient == nil {
			t.Error("expected default http client")
		}
		if r.palette == nil {
			t.Error("expected default palette")
		}
		if r.dispatcher == nil {
			t.Error("expected default dispatcher")
		}
	})

	t.Run("Provided Output", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRunner(RunnerOpts{Output: &buf})

		if err := r.writePlain("hello"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if buf.String() != "hello" {
			t.Errorf("expected output to reach the provided writer, got %q", buf.String())
		}
	})
}

func TestWriteJSON(t *testing.T) {
	t.Run("Compact", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRunner(RunnerOpts{Output: &buf})

		if err := r.writeJSON(map[string]string{"key": "value"}, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if buf.String() != "{\"key\":\"value\"}\n" {
			t.Errorf("unexpected compact output %q", buf.String())
		}
	})

	t.Run("Pretty", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRunner(RunnerOpts{Output: &buf})

		if err := r.writeJSON(map[string]string{"key": "value"}, true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), "  \"key\": \"value\"") {
			t.Errorf("expected indented output, got %q", buf.String())
		}
	})

	t.Run("Marshal Error", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

		err := r.writeJSON(make(chan int), false)
		if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
			t.Errorf("expected marshal error, got %v", err)
		}
	})

	t.Run("Write Failure", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Output: &itesting.FWriter{}})

		err := r.writeJSON(map[string]string{"key": "value"}, false)
		if err == nil || !strings.Contains(err.Error(), "failed to write output") {
			t.Errorf("expected write error, got %v", err)
		}
	})

	t.Run("Newline Failure", func(t *testing.T) {
		var buf bytes.Buffer
		lw := itesting.NewLimitedWriter(1, 0, &buf)
		r := NewRunner(RunnerOpts{Output: &lw})

		err := r.writeJSON(map[string]string{"key": "value"}, false)
		if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
			t.Errorf("expected newline error, got %v", err)
		}
	})
}

func TestWritePlain(t *testing.T) {
	t.Run("Formats Arguments", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRunner(RunnerOpts{Output: &buf})

		if err := r.writePlain("%s: %d", "count", 3); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if buf.String() != "count: 3" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("Plainln Pads With Newlines", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRunner(RunnerOpts{Output: &buf})

		if err := r.writePlainln("done"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if buf.String() != "\ndone\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("Write Failure", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Output: &itesting.FWriter{}})

		if err := r.writePlain("anything"); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestWriteRaw(t *testing.T) {
	t.Run("Pretty Indents", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRunner(RunnerOpts{Output: &buf})

		if err := r.writeRaw(json.RawMessage(`{"a":1}`), true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), "  \"a\": 1") {
			t.Errorf("expected indented output, got %q", buf.String())
		}
	})

	t.Run("Compact Passes Through", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRunner(RunnerOpts{Output: &buf})

		if err := r.writeRaw(json.RawMessage(`{"a":1}`), false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if buf.String() != "{\"a\":1}\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("Empty Data", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRunner(RunnerOpts{Output: &buf})

		if err := r.writeRaw(nil, true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), "no data") {
			t.Errorf("expected placeholder for empty data, got %q", buf.String())
		}
	})
}

func TestRegister(t *testing.T) {
	r := NewRunner(RunnerOpts{})
	commands := r.register()

	if len(commands) == 0 {
		t.Fatal("expected registered commands")
	}

	names := map[string]bool{}
	for _, command := range commands {
		names[command.Name] = true
	}

	for _, want := range []string{"setup", "serve", "auth", "now", "top", "stats", "embed", "api"} {
		if !names[want] {
			t.Errorf("expected command %s to be registered", want)
		}
	}
}
