package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger configures the global zerolog logger: human readable output in
// development, JSON everywhere else
func SetupLogger(cfg *Config) {
	SetupLoggerWithWriter(cfg, os.Stderr)
}

// SetupLoggerWithWriter is SetupLogger writing to w
func SetupLoggerWithWriter(cfg *Config, w io.Writer) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("env", cfg.GoEnv).Logger()
}
