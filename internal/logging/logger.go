package logging

import (
	"log/slog"
	"os"
)

// Setup installs the process-wide slog logger: JSON records to stdout
// at INFO and above. The DB-backed handler is fanned in later, once the
// database connection exists.
func Setup() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}
