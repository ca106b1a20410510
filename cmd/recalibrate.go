package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/calibration-engine/internal/jobs"
)

var recalibrateCmd = &cobra.Command{
	Use:   "recalibrate",
	Short: "Re-run calibration over stored scans in batches",
	Long:  "Re-resolves every matching scan through the current chain and writes back only the scans whose output changed. Safe to re-run; a second pass over unchanged data updates nothing.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runner, st, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		region, _ := cmd.Flags().GetString("region")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		limit, _ := cmd.Flags().GetInt("limit")
		sinceDur, _ := cmd.Flags().GetDuration("since")

		opts := jobs.RecalibrateOptions{
			RegionKey: region,
			DryRun:    dryRun,
			Limit:     limit,
		}
		if sinceDur > 0 {
			opts.Since = time.Now().Add(-sinceDur)
		}

		result, err := runner.Recalibrate(ctx, opts)
		if result != nil {
			printErrors(result.Errors)
			fmt.Fprintf(os.Stderr, "processed=%d updated=%d skipped=%d failed=%d dry_run=%v\n",
				result.ScansProcessed, result.ScansUpdated, result.ScansSkipped, result.ScansFailed, result.DryRun)
		}
		return err
	},
}

func init() {
	recalibrateCmd.Flags().String("region", "", "restrict to one region key")
	recalibrateCmd.Flags().Bool("dry-run", false, "resolve without writing back")
	recalibrateCmd.Flags().Int("limit", 0, "cap on scans examined (0 = configured max)")
	recalibrateCmd.Flags().Duration("since", 0, "restrict to scans created within this window (e.g. 720h)")

	rootCmd.AddCommand(recalibrateCmd)
}
