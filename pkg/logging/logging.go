package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Custom levels matching the platform's logging conventions. TRACE sits
// below DEBUG for per-request wire logging, SUCCESS sits between INFO and
// WARN to mark completed operations.
const (
	LevelTrace   = slog.Level(-8)
	LevelSuccess = slog.Level(2)
)

// ParseLevel converts a level name from configuration into a slog.Level.
// Unknown names fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "success":
		return LevelSuccess
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a text logger writing to stdout at the given level, with the
// custom level names rendered properly instead of slog's DEBUG-4/INFO+2.
func New(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: renameCustomLevels,
	}))
}

func renameCustomLevels(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch level {
	case LevelTrace:
		a.Value = slog.StringValue("TRACE")
	case LevelSuccess:
		a.Value = slog.StringValue("SUCCESS")
	}
	return a
}
