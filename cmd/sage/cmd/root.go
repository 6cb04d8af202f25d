package cmd

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sage-kit/sage/internal/cli"
	"github.com/sage-kit/sage/internal/config"
	serrors "github.com/sage-kit/sage/internal/errors"
	"github.com/sage-kit/sage/internal/logging"
	"github.com/sage-kit/sage/internal/profile"
	"github.com/sage-kit/sage/internal/status"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"

	// Global flags
	verbose   bool
	logFormat string
	logFile   string
	homeDir   string
	noColor   bool

	// executable locates the running binary. Tests replace it.
	executable = os.Executable
)

var rootCmd = &cobra.Command{
	Use:   "sage",
	Short: "Install the sage content bundle into an AI assistant",
	Long: `sage installs skills, output styles and instructions into the configuration
directory of an AI coding assistant (~/.claude or ~/.codex).

Everything it replaces is backed up first. Each install records a manifest and
drops an uninstaller (.sage-uninstall) next to it, so the whole install can be
reversed with a single command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(config.LogFormatText), "log format: text or json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also append logs to this file")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (default: current user's)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Version flag
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("sage {{.Version}}\n")
}

// newConfig builds the run configuration from the global flags and the
// process environment.
func newConfig(profileName string) (*config.Config, error) {
	cfg := config.Default()
	cfg.Profile = profileName
	cfg.HomeDir = homeDir
	cfg.Logging.Format = config.LogFormat(logFormat)
	cfg.Logging.File = logFile
	if verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	if f := cfg.Logging.Format; f != config.LogFormatText && f != config.LogFormatJSON {
		return nil, serrors.ConfigInvalidValue("log-format", logFormat, "must be json or text")
	}

	exe, err := executable()
	if err != nil {
		return nil, serrors.Wrap(serrors.CodeConfigInvalidValue, "cannot determine current executable", err)
	}
	cfg.Executable = exe

	if err := cfg.FromEnvironment(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger creates the run logger writing to the command's stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, io.Closer, error) {
	return logging.NewFromConfig(cfg, cmd.ErrOrStderr())
}

// newReporter creates the progress reporter writing to the command's stdout.
func newReporter(cmd *cobra.Command, dryRun bool) *status.Reporter {
	return status.NewReporter(cmd.OutOrStdout(), status.FormatOptions{NoColor: noColor, DryRun: dryRun})
}

// resolveProfile returns the selected profile name, prompting when none
// was given on the command line.
func resolveProfile(cmd *cobra.Command, selected string) (string, error) {
	if selected != "" {
		if _, err := profile.Lookup(selected); err != nil {
			return "", err
		}
		return selected, nil
	}

	choice, err := cli.SelectProfile(cmd.InOrStdin(), cmd.OutOrStdout())
	if errors.Is(err, cli.ErrCancelled) {
		return "", serrors.InvalidProfile("", profile.ListKnown())
	}
	if err != nil {
		return "", err
	}
	return choice, nil
}
