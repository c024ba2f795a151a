package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns the service logger configured from ENV and LOG_LEVEL.
func New() zerolog.Logger {
	return NewWithOutput(os.Stderr, os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
}

// NewWithOutput writes to out. An empty or unknown level falls back to debug.
func NewWithOutput(out io.Writer, env, level string) zerolog.Logger {
	// For Google Cloud Logging, the level field name should be "severity".
	zerolog.LevelFieldName = "severity"
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		out = zerolog.ConsoleWriter{Out: out}
	}
	logger := zerolog.New(out).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.DebugLevel
	}
	return logger.Level(lvl)
}
