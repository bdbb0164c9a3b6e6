package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"

	"cloudpico-analysis/internal/config"
)

// New builds the process logger. Output goes to w, which is stderr for every
// tool since stdout carries documents. verbose lowers the level to debug.
func New(cfg config.Config, w io.Writer, version string, appName string, verbose bool) *slog.Logger {
	level := cfg.LogLevel
	if verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}

	if version == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	)
}
