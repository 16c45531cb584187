// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// EnvDebug enables debug logging when set to any non-empty value.
const EnvDebug = "A2ZUSAGE_DEBUG"

// Options controls Setup. The zero value discards all logs.
type Options struct {
	Verbose bool
	Output  io.Writer
}

// New builds a logger. Logs are hidden unless Verbose is set or
// A2ZUSAGE_DEBUG is present so they never interleave with report output.
func New(opts Options) *slog.Logger {
	if !opts.Verbose && os.Getenv(EnvDebug) == "" {
		return slog.New(slog.DiscardHandler)
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := slog.LevelInfo
	if os.Getenv(EnvDebug) != "" {
		level = parseLevel(os.Getenv(EnvDebug))
	}

	return slog.New(tint.NewHandler(out, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(out),
	}))
}

// Setup installs New(opts) as the slog default and returns it.
func Setup(opts Options) *slog.Logger {
	l := New(opts)
	slog.SetDefault(l)
	return l
}

// ForProvider tags l with the provider attribute used across adapters.
func ForProvider(l *slog.Logger, id string) *slog.Logger {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return l.With("provider", id)
}

func parseLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
