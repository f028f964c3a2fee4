package logging

import (
	"log/slog"
	"os"
)

// Init configures the default slog logger for the CLI. Terminal output is the
// chat surface, so logs stay on stderr and default to errors only.
func Init() {
	level := slog.LevelError

	if l, ok := os.LookupEnv("WATCHDROP_LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error", "production", "prod":
			level = slog.LevelError
		}
	}

	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}
