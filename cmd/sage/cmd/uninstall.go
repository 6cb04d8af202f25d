package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sage-kit/sage/internal/cli"
	"github.com/sage-kit/sage/internal/config"
	"github.com/sage-kit/sage/internal/uninstaller"
)

var (
	uninstallTarget string
	uninstallDryRun bool
	uninstallYes    bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Reverse a previous install",
	Long: `Reverse a previous install using the manifest in .sage-backup/.

Every installed path is removed, every backed-up original is restored, then
.sage-backup/ and the .sage-uninstall executable are deleted. Running the
.sage-uninstall executable left in the target directory does the same.

Without --target the profile is chosen interactively and the uninstall asks
for confirmation; pass --yes to skip it.

Examples:
  sage uninstall --target claude
  sage uninstall --target codex --dry-run
  sage uninstall --yes`,
	Args: cobra.NoArgs,
	RunE: runUninstall,
}

// uninstallerCmd is the command run when the binary is invoked as the
// generated uninstaller. Its target is the directory it lives in.
var uninstallerCmd = &cobra.Command{
	Use:           config.UninstallerStem,
	Short:         "Reverse the sage install in this directory",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runUninstaller,
}

// uninstallerDir is set by ExecuteUninstaller.
var uninstallerDir string

func init() {
	uninstallCmd.Flags().StringVarP(&uninstallTarget, "target", "t", "", "profile to uninstall from (claude, codex)")
	uninstallCmd.Flags().BoolVar(&uninstallDryRun, "dry-run", false, "show what would be removed and restored")
	uninstallCmd.Flags().BoolVarP(&uninstallYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(uninstallCmd)

	uninstallerCmd.Flags().BoolVar(&uninstallDryRun, "dry-run", false, "show what would be removed and restored")
	uninstallerCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
	uninstallerCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// IsUninstaller reports whether exe is a generated uninstaller.
func IsUninstaller(exe string) bool {
	return strings.HasPrefix(filepath.Base(exe), config.UninstallerStem)
}

// ExecuteUninstaller runs the uninstall flow for the uninstaller at exe.
func ExecuteUninstaller(exe string) error {
	uninstallerDir = filepath.Dir(exe)
	return uninstallerCmd.Execute()
}

func runUninstall(cmd *cobra.Command, args []string) error {
	profileName, err := resolveProfile(cmd, uninstallTarget)
	if err != nil {
		return err
	}

	cfg, err := newConfig(profileName)
	if err != nil {
		return err
	}

	// A profile picked from the menu is easy to get wrong.
	if uninstallTarget == "" && !uninstallYes && !uninstallDryRun {
		targetDir, err := cfg.ResolveTargetDir()
		if err != nil {
			return err
		}
		ok, err := cli.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
			fmt.Sprintf("Remove sage from %s and restore its backups?", targetDir), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Uninstall cancelled.")
			return nil
		}
	}

	return uninstall(cmd, cfg)
}

func runUninstaller(cmd *cobra.Command, args []string) error {
	cfg, err := newConfig("")
	if err != nil {
		return err
	}
	cfg.TargetDir = uninstallerDir
	return uninstall(cmd, cfg)
}

func uninstall(cmd *cobra.Command, cfg *config.Config) error {
	cfg.DryRun = uninstallDryRun

	logger, closer, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	return uninstaller.New(cfg, logger, newReporter(cmd, cfg.DryRun)).Uninstall()
}
