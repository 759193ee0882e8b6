package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	console "github.com/phsym/console-slog"
)

// ParseLevel parses a log level name. "warning" is accepted for "warn".
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}

// NewLogger returns a console logger writing to w at the given level.
func NewLogger(level string, w io.Writer, noColor bool) (*slog.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	h := console.NewHandler(w, &console.HandlerOptions{
		Level:      l,
		NoColor:    noColor,
		TimeFormat: "2006-01-02 15:04:05.000",
	})
	return slog.New(h), nil
}
