package config

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the service logger from the Advanced section.
func (c *AppConfig) NewLogger(w io.Writer) *slog.Logger {
	return NewLogger(w, c.Advanced.LogLevel, c.Advanced.LogJSON)
}

// NewLogger builds a text or JSON slog logger at the named level.
// Unknown levels fall back to info.
func NewLogger(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(level string) slog.Level {
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
