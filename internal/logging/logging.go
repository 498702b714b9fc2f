package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the package-level zerolog logger. Pretty mode writes
// human-readable console output for local development; otherwise logs are
// emitted as JSON on stderr for collection downstream.
func Init(level string, pretty bool) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	base := zerolog.New(os.Stderr)
	if pretty {
		base = zerolog.New(w)
	}
	log.Logger = base.With().Timestamp().Str("service", "vigil").Logger()
}

// Component returns a logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to a
// zerolog level. Unknown strings default to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
