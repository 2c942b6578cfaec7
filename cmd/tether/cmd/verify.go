package cmd

import "github.com/spf13/cobra"

var verifyCmd = &cobra.Command{
	Use:   "verify [directory]",
	Short: "Verify the lockfile matches a fresh resolution",
	Long: `Recompute the resolution and compare it against the stored lockfile.

Equivalent to install --frozen-lockfile: any divergence (an override
value changed, a rule added or removed, a version drifted) fails the
run, and nothing on disk is modified either way.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		return runInstall(cmd, dir, true)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
