package logger

import (
	"log/slog"
	"os"
)

// New returns the JSON logger shared by all services.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
