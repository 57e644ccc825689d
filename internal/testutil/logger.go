package testutil

import (
	"io"
	"log/slog"
)

// NopLogger returns a logger that discards everything. Tests pass it
// wherever a component wants a *slog.Logger but the output is noise.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
