package obslog

import (
	"os"

	"github.com/rs/zerolog"
)

// NewBatchLogger returns a zerolog.Logger tuned for the eval-run command's
// per-row progress output: thousands of dataset rows need a
// low-allocation line writer rather than slog's JSON handler, which is
// tuned for single-request structured events.
func NewBatchLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
