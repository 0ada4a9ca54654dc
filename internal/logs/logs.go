// Package logs wires structured logging for the indexing and search
// pipeline: a log/slog logger writing to stderr (and optionally a
// rotating file inside the codebase's state directory), with every log
// record passed through internal/errs.Redact before it reaches the
// handler so secret-like or content-like attribute values never reach
// the log stream.
//
// Output is either human-readable text or JSON lines via
// slog.NewJSONHandler, with optional file rotation via RotatingWriter.
package logs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
)

// Config controls Setup.
type Config struct {
	// Level is one of debug|info|warn|error.
	Level string
	// JSON selects structured JSON output; otherwise slog's text handler.
	JSON bool
	// FilePath, when non-empty, also writes logs to a rotating file.
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
}

// DefaultConfig returns the info-level, JSON-to-stderr configuration
// used when a codebase has no explicit logging configuration.
func DefaultConfig() Config {
	return Config{Level: "info", JSON: true}
}

// Setup builds a *slog.Logger per cfg. Logs and progress always go to
// stderr; machine-readable command output goes to stdout separately
// and never through this logger. The returned cleanup
// function flushes and closes any file writer; it is a no-op when
// FilePath is empty.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var output io.Writer = os.Stderr
	cleanup := func() {}

	if cfg.FilePath != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxFiles := cfg.MaxFiles
		if maxFiles <= 0 {
			maxFiles = 5
		}
		writer, err := NewRotatingWriter(cfg.FilePath, maxSize, maxFiles)
		if err != nil {
			return nil, nil, err
		}
		output = io.MultiWriter(os.Stderr, writer)
		cleanup = func() {
			_ = writer.Sync()
			_ = writer.Close()
		}
	}

	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if cfg.JSON {
		inner = slog.NewJSONHandler(output, opts)
	} else {
		inner = slog.NewTextHandler(output, opts)
	}

	logger := slog.New(&redactingHandler{inner: inner})
	return logger, cleanup, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// redactingHandler wraps an slog.Handler, redacting attribute values via
// internal/errs.Redact before the record reaches it.
type redactingHandler struct {
	inner slog.Handler
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, record slog.Record) error {
	raw := make(map[string]string, record.NumAttrs())
	record.Attrs(func(a slog.Attr) bool {
		raw[a.Key] = a.Value.String()
		return true
	})
	redacted := errs.Redact(raw)

	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		if v, ok := redacted[a.Key]; ok && v != a.Value.String() {
			out.AddAttrs(slog.String(a.Key, v))
		} else {
			out.AddAttrs(a)
		}
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	raw := make(map[string]string, len(attrs))
	for _, a := range attrs {
		raw[a.Key] = a.Value.String()
	}
	redacted := errs.Redact(raw)
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		if v, ok := redacted[a.Key]; ok && v != a.Value.String() {
			out[i] = slog.String(a.Key, v)
		} else {
			out[i] = a
		}
	}
	return &redactingHandler{inner: h.inner.WithAttrs(out)}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{inner: h.inner.WithGroup(name)}
}
