// Package logging provides structured logging infrastructure for sage.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sage-kit/sage/internal/config"
)

// NewFromConfig creates a new slog.Logger based on configuration.
// Logs go to w; when a log file is configured they are also appended there.
func NewFromConfig(cfg *config.Config, w io.Writer) (*slog.Logger, io.Closer, error) {
	if w == nil {
		w = os.Stderr
	}
	level := parseLevel(cfg.Logging.Level)
	handler := newHandler(cfg.Logging.Format, w, level)

	var closer io.Closer
	if cfg.Logging.File != "" {
		logPath := cfg.Logging.File

		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return nil, nil, err
		}

		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, err
		}
		closer = file

		multi := io.MultiWriter(w, file)
		handler = newHandler(cfg.Logging.Format, multi, level)
	}

	return slog.New(handler), closer, nil
}

// NewForTest creates a silent logger for tests.
func NewForTest() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// parseLevel converts config log level to slog.Level.
func parseLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// newHandler creates a slog.Handler based on format.
func newHandler(format config.LogFormat, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch format {
	case config.LogFormatJSON:
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}

// WithProfile returns a logger with profile and target directory context.
func WithProfile(logger *slog.Logger, profile, targetDir string) *slog.Logger {
	return logger.With("profile", profile, "target_dir", targetDir)
}

// WithInstall returns a logger with install run context.
func WithInstall(logger *slog.Logger, installID string) *slog.Logger {
	return logger.With("install_id", installID)
}
