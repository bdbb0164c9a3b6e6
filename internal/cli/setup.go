package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloudpico-analysis/internal/config"
	"cloudpico-analysis/internal/logging"
)

// Env is what every command needs before it starts work.
type Env struct {
	Config config.Config
	Logger *slog.Logger
}

// Setup loads configuration and builds the stderr logger. A configuration
// failure is returned as an ExitError with code 1.
func Setup(appName, version string, stderr io.Writer, verbose bool) (Env, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return Env{}, Failf(ExitFailure, "config error: %v", err)
	}
	logger := logging.New(cfg, stderr, version, appName, verbose)
	return Env{Config: cfg, Logger: logger}, nil
}

// Interrupted reports whether err comes from a cancelled context, which every
// command treats as a normal end of input.
func Interrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Reportf writes one "name: ..." line to w.
func Reportf(w io.Writer, name, format string, args ...any) {
	fmt.Fprintf(w, "%s: %s\n", name, fmt.Sprintf(format, args...))
}
