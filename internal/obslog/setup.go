// Package obslog configures citeq's structured logging. By default,
// minimal logs go to stderr only; passing --debug additionally writes JSON logs to a rotating file under the data
// directory, mirroring the "It Just Works by default, verbose on demand"
// logging posture of the tooling this repo is built from.
package obslog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the debug log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation.
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep.
	MaxFiles int
	// WriteToStderr additionally mirrors output to stderr.
	WriteToStderr bool
}

// DefaultLogPath returns the default debug log path under dataDir.
func DefaultLogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", "citeq.log")
}

// DebugConfig returns the configuration used when --debug is set.
func DebugConfig(dataDir string) Config {
	return Config{
		Level:         "debug",
		FilePath:      DefaultLogPath(dataDir),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// StderrOnlyConfig returns the minimal default configuration: info-level
// logs to stderr, no file.
func StderrOnlyConfig() Config {
	return Config{Level: "info", WriteToStderr: true}
}

// Setup initializes structured logging and returns the logger plus a
// cleanup function that must be called before process exit.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var output io.Writer
	cleanup := func() {}

	if cfg.FilePath != "" {
		writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		output = writer
		if cfg.WriteToStderr {
			output = io.MultiWriter(writer, os.Stderr)
		}
		cleanup = func() {
			_ = writer.Sync()
			_ = writer.Close()
		}
	} else {
		output = os.Stderr
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	return slog.New(handler), cleanup, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
