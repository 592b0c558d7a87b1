package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the configured slog.Logger. Production always logs
// JSON; elsewhere LOG_FORMAT decides. Source locations are added only
// outside production to keep log lines lean.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: !cfg.IsProduction()}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
}
