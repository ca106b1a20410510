package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/calibration-engine/internal/jobs"
	"github.com/sells-group/calibration-engine/internal/model"
)

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Detect and inspect calibration drift",
	Long:  "Compares trust-weighted observed accuracy against curve-implied expectations per region, version, and season. Detection defaults to dry-run; pass --apply to persist events.",
}

// -- drift detect --

var driftDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run drift detection over one trailing window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runner, st, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		apply, _ := cmd.Flags().GetBool("apply")
		window, _ := cmd.Flags().GetInt("window")
		noSeasons, _ := cmd.Flags().GetBool("no-seasons")

		result, err := runner.DetectDrift(ctx, jobs.DriftOptions{
			WindowDays: window,
			NoSeasons:  noSeasons,
			DryRun:     !apply,
		})
		if result != nil {
			printErrors(result.Errors)
			fmt.Fprintf(os.Stderr, "window=%dd evaluated=%d skipped=%d detected=%d dry_run=%v\n",
				result.WindowDays, result.GroupsEvaluated, result.GroupsSkipped, result.EventsDetected, result.DryRun)
		}
		if err != nil {
			return err
		}

		formatDriftEvents(os.Stdout, result.Events)
		return nil
	},
}

// -- drift list --

var driftListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded drift events",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		sinceDur, _ := cmd.Flags().GetDuration("since")

		events, err := st.ListDriftEvents(ctx, time.Now().Add(-sinceDur))
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(os.Stderr, "No drift events found.")
			return nil
		}

		formatDriftEvents(os.Stdout, events)
		return nil
	},
}

func formatDriftEvents(w io.Writer, events []model.DriftEvent) {
	if len(events) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tVERSION\tAXIS\tSEASON\tWINDOW\tEXPECTED\tOBSERVED\tDRIFT\tSEVERITY\tSAMPLES")
	for i := range events {
		e := &events[i]
		season := "-"
		if e.SeasonBucket != nil {
			season = *e.SeasonBucket
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dd\t%.3f\t%.3f\t%+.3f\t%s\t%d\n",
			e.RegionKey, e.CalibrationVersion, e.ConfidenceType, season, e.WindowDays,
			e.ExpectedAccuracy, e.ObservedAccuracy, e.DriftPercentage, e.Severity, e.SampleSize)
	}
	tw.Flush()
}

func init() {
	driftDetectCmd.Flags().Bool("apply", false, "persist detected events instead of dry-run")
	driftDetectCmd.Flags().Int("window", 0, "trailing window in days (30, 60, or 90; default from config)")
	driftDetectCmd.Flags().Bool("no-seasons", false, "group by region and version only, without season segmentation")

	driftListCmd.Flags().Duration("since", 30*24*time.Hour, "time window for listing events")

	driftCmd.AddCommand(driftDetectCmd)
	driftCmd.AddCommand(driftListCmd)
	rootCmd.AddCommand(driftCmd)
}
