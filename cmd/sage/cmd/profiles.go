package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sage-kit/sage/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the assistants sage can install into",
	Args:  cobra.NoArgs,
	RunE:  runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg, err := newConfig("")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range profile.ListKnown() {
		p := profile.Known[name]
		fmt.Fprintf(out, "%-8s %-12s %s\n", p.Name, p.DisplayName, p.TargetDir(cfg.HomeDir))
	}
	return nil
}
