// Package config holds the explicit run configuration passed to the installer
// and uninstaller. Nothing below cmd/ reads the environment directly.
package config

import (
	"os"
	"path/filepath"
	"time"

	serrors "github.com/sage-kit/sage/internal/errors"
	"github.com/sage-kit/sage/internal/profile"
)

// LogLevel specifies the logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat specifies the log output format.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// Fixed names inside a target directory.
const (
	BackupDirName    = ".sage-backup"
	ManifestFileName = "manifest.json"
	SettingsFileName = "settings.json"
	LockFileName     = ".sage.lock"
	UninstallerStem  = ".sage-uninstall"
)

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  LogLevel
	Format LogFormat
	File   string
}

// Config is the full input of an install or uninstall run.
type Config struct {
	// Profile selects the target harness. Required for install; for
	// uninstall it is only used to locate TargetDir when that is empty.
	Profile string

	// HomeDir is the invoking user's home directory.
	HomeDir string

	// TargetDir overrides the profile-derived <home>/<dot-dir>.
	TargetDir string

	// PackageRoot is the directory holding the content bundle.
	PackageRoot string

	// Version is recorded in the manifest. Empty means "use the bundle's".
	Version string

	// Executable is copied into the target as the uninstaller.
	Executable string

	// DryRun prints actions without touching the filesystem.
	DryRun bool

	// Now returns the manifest timestamp.
	Now func() time.Time

	Logging LoggingConfig
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Now: time.Now,
		Logging: LoggingConfig{
			Level:  LogLevelWarn,
			Format: LogFormatText,
		},
	}
}

// FromEnvironment fills the fields that come from the process environment:
// the home directory and the running executable. Explicit values win.
func (c *Config) FromEnvironment() error {
	if c.HomeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return serrors.Wrap(serrors.CodeConfigInvalidValue, "cannot determine home directory", err)
		}
		c.HomeDir = home
	}
	if c.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return serrors.Wrap(serrors.CodeConfigInvalidValue, "cannot determine current executable", err)
		}
		c.Executable = exe
	}
	if c.PackageRoot == "" && c.Executable != "" {
		c.PackageRoot = filepath.Dir(c.Executable)
	}
	return nil
}

// Validate checks that the configuration names a usable target.
func (c *Config) Validate() error {
	if c.TargetDir == "" {
		if _, err := profile.Lookup(c.Profile); err != nil {
			return err
		}
		if c.HomeDir == "" {
			return serrors.ConfigInvalidValue("home", c.HomeDir, "home directory is required")
		}
	}
	if c.Logging.Level != "" {
		switch c.Logging.Level {
		case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		default:
			return serrors.ConfigInvalidValue("log-level", c.Logging.Level, "must be debug, info, warn or error")
		}
	}
	if c.Logging.Format != "" && c.Logging.Format != LogFormatJSON && c.Logging.Format != LogFormatText {
		return serrors.ConfigInvalidValue("log-format", c.Logging.Format, "must be json or text")
	}
	return nil
}

// ResolveTargetDir returns TargetDir, or the profile's directory under HomeDir.
func (c *Config) ResolveTargetDir() (string, error) {
	if c.TargetDir != "" {
		return filepath.Clean(profile.ExpandPath(c.TargetDir)), nil
	}
	p, err := profile.Lookup(c.Profile)
	if err != nil {
		return "", err
	}
	return p.TargetDir(c.HomeDir), nil
}

// BackupDir returns the backup directory of a target directory.
func BackupDir(targetDir string) string {
	return filepath.Join(targetDir, BackupDirName)
}

// ManifestPath returns the manifest path of a target directory.
func ManifestPath(targetDir string) string {
	return filepath.Join(targetDir, BackupDirName, ManifestFileName)
}

// LockPath returns the advisory lock path of a target directory.
func LockPath(targetDir string) string {
	return filepath.Join(targetDir, LockFileName)
}

// Timestamp returns the current time from Now, defaulting to time.Now.
func (c *Config) Timestamp() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}
