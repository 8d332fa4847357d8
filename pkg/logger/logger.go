package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the global logger based on the environment.
// It returns the logger instance, but also sets it as the default global logger.
func Setup(env string) *slog.Logger {
	level := slog.LevelInfo
	format := "json"
	if env != "production" {
		level = slog.LevelDebug
		format = "text"
	}
	return SetupWith(format, level)
}

// SetupWith configures the global logger from the process inputs'
// log.{level, format} document fields directly, for callers that have a
// config.LogConfig rather than a bare environment name.
func SetupWith(format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a log.level config string onto an slog.Level, defaulting
// to Info for an unrecognized value.
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
