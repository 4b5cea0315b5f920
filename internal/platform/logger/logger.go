package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/taskflow-api/internal/config"
)

// Setup builds a JSON logger writing to stdout at the configured level and
// installs it as the slog default.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	logger := New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)
	return logger, nil
}

// New creates a JSON logger writing to w. Unknown levels fall back to info
// after a warning on stderr.
func New(w io.Writer, level string) *slog.Logger {
	parsed, ok := ParseLevel(level)
	if !ok {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Warn(
			"invalid log level configured, using default level",
			"configured_level", level,
			"default_level", "info")
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parsed}))
}

// ParseLevel maps a case-insensitive level name to a slog.Level.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
