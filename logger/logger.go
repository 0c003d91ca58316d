package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rdr-dashboard/config"
)

// Initialize sets up the global logger. Format "json" writes one JSON
// object per line, anything else the pretty console output.
func Initialize(cfg config.LogConfig) {
	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	if strings.EqualFold(cfg.Format, "json") {
		output = os.Stdout
	}
	log.Logger = zerolog.New(output).With().Timestamp().Caller().Logger()

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
