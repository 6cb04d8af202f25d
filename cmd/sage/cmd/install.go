package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sage-kit/sage/internal/installer"
)

var (
	installTarget      string
	installRef         string
	installPackageRoot string
	installDryRun      bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the content bundle into an assistant's directory",
	Long: `Install the content bundle into an assistant's configuration directory.

Existing files at every destination are moved to .sage-backup/ first,
settings.json is merged rather than replaced, and a .sage-uninstall
executable is written to reverse the install.

Examples:
  sage install --target claude            # Install into ~/.claude
  sage install --target codex --dry-run   # Show what would change in ~/.codex
  sage install                            # Choose the assistant interactively
  sage install --target claude --ref 1.4.0 --package-root ./dist`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVarP(&installTarget, "target", "t", "", "profile to install into (claude, codex)")
	installCmd.Flags().StringVar(&installRef, "ref", "", "version recorded in the manifest (default: the bundle's)")
	installCmd.Flags().StringVar(&installPackageRoot, "package-root", "", "directory holding the bundle (default: next to the sage binary)")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "show what would be installed without installing")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	profileName, err := resolveProfile(cmd, installTarget)
	if err != nil {
		return err
	}

	cfg, err := newConfig(profileName)
	if err != nil {
		return err
	}
	cfg.Version = installRef
	cfg.DryRun = installDryRun
	if installPackageRoot != "" {
		cfg.PackageRoot = installPackageRoot
	}

	logger, closer, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	inst := installer.New(cfg, logger, newReporter(cmd, cfg.DryRun))
	inst.DefaultVersion = Version
	_, err = inst.Install()
	return err
}
