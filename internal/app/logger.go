package app

import (
	"log/slog"
	"os"
)

// NewLogger returns a slog.Logger wired per LOG_FORMAT. Production deployments
// set "json"; anything else gets the readable text handler.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: cfg.IsProduction()}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
