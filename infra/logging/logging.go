// Package logging builds the application's slog logger.
//
// The TUI owns the terminal, so interactive runs log to a file; CLI
// subcommands default to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options selects where and how much to log.
type Options struct {
	Level string // debug, info, warn, error
	File  string // Empty writes to Fallback
	// Fallback receives logs when File is empty. Nil discards them.
	Fallback io.Writer
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return lvl, nil
}

// New returns a text logger and a closer for its output. The closer is a
// no-op unless a file was opened.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	lvl := slog.LevelInfo
	if opts.Level != "" {
		var err error
		if lvl, err = ParseLevel(opts.Level); err != nil {
			return nil, nil, err
		}
	}

	var (
		out    io.Writer = io.Discard
		closer io.Closer = nopCloser{}
	)
	switch {
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out, closer = f, f
	case opts.Fallback != nil:
		out = opts.Fallback
	}

	h := slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})
	return slog.New(h).With("app", "terminalnotes"), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
