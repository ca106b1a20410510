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

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Generate and inspect model health recommendations",
	Long:  "Turns the trailing month of drift events into advisory records for a human to act on. Generation defaults to dry-run; pass --apply to persist.",
}

// -- recommend run --

var recommendRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate recent drift and generate recommendations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runner, st, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		apply, _ := cmd.Flags().GetBool("apply")

		result, err := runner.Recommend(ctx, jobs.RecommendOptions{DryRun: !apply})
		if result != nil {
			printErrors(result.Errors)
			fmt.Fprintf(os.Stderr, "events=%d created=%d dry_run=%v\n",
				result.EventsEvaluated, result.RecommendationsCreated, result.DryRun)
		}
		if err != nil {
			return err
		}

		formatRecommendations(os.Stdout, result.Recommendations)
		return nil
	},
}

// -- recommend list --

var recommendListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored recommendations",
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

		recs, err := st.ListRecommendations(ctx, time.Now().Add(-sinceDur))
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "No recommendations found.")
			return nil
		}

		formatRecommendations(os.Stdout, recs)
		return nil
	},
}

func formatRecommendations(w io.Writer, recs []model.ModelRecommendation) {
	if len(recs) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tREGION\tSEVERITY\tCRITICAL\tWARNING\tTOTAL\tAVG_DRIFT\tCREATED")
	for i := range recs {
		r := &recs[i]
		region := "global"
		if r.RegionKey != nil {
			region = *r.RegionKey
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%.3f\t%s\n",
			r.RecommendationType, region, r.Severity,
			r.SupportingMetrics.CriticalEvents, r.SupportingMetrics.WarningEvents,
			r.SupportingMetrics.TotalEvents, r.SupportingMetrics.AverageDriftAbs,
			r.CreatedAt.Format(time.RFC3339))
	}
	tw.Flush()
}

func init() {
	recommendRunCmd.Flags().Bool("apply", false, "persist recommendations instead of dry-run")

	recommendListCmd.Flags().Duration("since", 30*24*time.Hour, "time window for listing recommendations")

	recommendCmd.AddCommand(recommendRunCmd)
	recommendCmd.AddCommand(recommendListCmd)
	rootCmd.AddCommand(recommendCmd)
}
