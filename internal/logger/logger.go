package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vtu-wallet-ledger/internal/config"
)

// NewLogger creates the process logger: JSON on stdout, tagged with the application
// name and environment.
func NewLogger(cfg *config.Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := ParseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(w, opts)).With(
		"app", cfg.Application.Name,
		"env", cfg.Application.Env,
	)
	logger.Info("logger initialized", "level", level)

	return logger
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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
