// Package logging configures the process-wide slog default for a billdesk
// binary.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init installs the default logger, tagged with the service name so the two
// binaries are distinguishable in shared output. Format is "json" (default)
// or "text"; anything else falls back to json with a warning.
func Init(service, format string) *slog.Logger {
	format = strings.ToLower(strings.TrimSpace(format))

	var handler slog.Handler
	var unknown bool
	switch format {
	case "", "json":
		handler = slog.NewJSONHandler(os.Stdout, nil)
	case "text":
		handler = slog.NewTextHandler(os.Stdout, nil)
	default:
		handler = slog.NewJSONHandler(os.Stdout, nil)
		unknown = true
	}

	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	if unknown {
		logger.Warn("unknown log format, using json", "format", format)
	}
	return logger
}
