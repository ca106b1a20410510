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

var maturityCmd = &cobra.Command{
	Use:   "maturity",
	Short: "Score and inspect region data maturity",
	Long:  "Grades each region's labeled-data sufficiency on volume, label source diversity, and drift stability. Scoring defaults to dry-run; pass --apply to persist.",
}

// -- maturity score --

var maturityScoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score maturity for every region with labeled data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runner, st, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		apply, _ := cmd.Flags().GetBool("apply")

		result, err := runner.ScoreMaturity(ctx, jobs.MaturityOptions{DryRun: !apply})
		if result != nil {
			printErrors(result.Errors)
			fmt.Fprintf(os.Stderr, "regions_scored=%d dry_run=%v\n", result.RegionsScored, result.DryRun)
		}
		if err != nil {
			return err
		}

		formatMaturity(os.Stdout, result.Regions)
		return nil
	},
}

// -- maturity list --

var maturityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored region maturity rows",
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

		regions, err := st.ListRegionMaturity(ctx)
		if err != nil {
			return err
		}
		if len(regions) == 0 {
			fmt.Fprintln(os.Stderr, "No region maturity rows found.")
			return nil
		}

		formatMaturity(os.Stdout, regions)
		return nil
	},
}

func formatMaturity(w io.Writer, regions []model.RegionMaturity) {
	if len(regions) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tLEVEL\tSAMPLES\tDIVERSITY\tSTABILITY\tCOMPUTED")
	for i := range regions {
		m := &regions[i]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.3f\t%.3f\t%s\n",
			m.RegionKey, m.MaturityLevel, m.LabeledSampleCount,
			m.LabelSourceDiversityScore, m.StabilityScore,
			m.LastComputedAt.Format(time.RFC3339))
	}
	tw.Flush()
}

func init() {
	maturityScoreCmd.Flags().Bool("apply", false, "persist scores instead of dry-run")

	maturityCmd.AddCommand(maturityScoreCmd)
	maturityCmd.AddCommand(maturityListCmd)
	rootCmd.AddCommand(maturityCmd)
}
