package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sage-kit/sage/internal/manifest"
	"github.com/sage-kit/sage/internal/status"
)

// Status command flags
var (
	statusTarget string
	statusJSON   bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the installation record of a profile",
	Long: `Show the installation record of a profile as YAML (or JSON with --json),
including any recorded path that is no longer on disk.

Examples:
  sage status --target claude
  sage status --target codex --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusTarget, "target", "t", "", "profile to inspect (claude, codex)")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	profileName, err := resolveProfile(cmd, statusTarget)
	if err != nil {
		return err
	}

	cfg, err := newConfig(profileName)
	if err != nil {
		return err
	}
	targetDir, err := cfg.ResolveTargetDir()
	if err != nil {
		return err
	}

	m, err := manifest.NewStore(targetDir).Load()
	if err != nil {
		return err
	}

	summary := status.NewRecordSummary(targetDir, m)
	format := status.FormatYAML
	if statusJSON {
		format = status.FormatJSON
	}
	data, err := format(summary)
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}
