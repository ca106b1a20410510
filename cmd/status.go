package main

import (
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show an engine status snapshot",
	Long:  "Reports the feature switches, currently-running jobs, effective configuration, scan volume, the active curve set, drift over the trailing month, region maturity, and open recommendations.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runner, st, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snapshot, err := runner.Snapshot(ctx)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, snapshot)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
