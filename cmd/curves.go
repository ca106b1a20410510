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
	"github.com/sells-group/calibration-engine/internal/store"
)

var curvesCmd = &cobra.Command{
	Use:   "curves",
	Short: "Build, inspect, and activate calibration curves",
	Long:  "Commands for building curve generations from labeled scans, listing them, and switching the active curve per scope.",
}

// -- curves build --

var curvesBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a new curve generation from labeled scans",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runner, st, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		sinceDur, _ := cmd.Flags().GetDuration("since")

		opts := jobs.BuildOptions{DryRun: dryRun}
		if sinceDur > 0 {
			opts.Since = time.Now().Add(-sinceDur)
		}

		result, err := runner.BuildCurves(ctx, opts)
		if result != nil {
			printErrors(result.Errors)
			fmt.Fprintf(os.Stderr, "version=%s labeled=%d built=%d mature=%d dry_run=%v\n",
				result.Version, result.LabeledScans, result.CurvesBuilt, result.CurvesMature, result.DryRun)
		}
		if err != nil {
			return err
		}

		formatCurveList(os.Stdout, result.Curves)
		return nil
	},
}

// -- curves list --

var curvesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List calibration curves",
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

		version, _ := cmd.Flags().GetString("version")
		activeOnly, _ := cmd.Flags().GetBool("active")

		curves, err := st.ListCurves(ctx, store.CurveFilter{Version: version, ActiveOnly: activeOnly})
		if err != nil {
			return err
		}
		if len(curves) == 0 {
			fmt.Fprintln(os.Stderr, "No curves found.")
			return nil
		}

		formatCurveList(os.Stdout, curves)
		return nil
	},
}

// -- curves show --

var curvesShowCmd = &cobra.Command{
	Use:   "show <curve-id>",
	Short: "Show one curve including its bins",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		c, err := st.GetCurve(ctx, args[0])
		if err != nil {
			return err
		}
		if c == nil {
			fmt.Fprintf(os.Stderr, "Curve not found: %s\n", args[0])
			return nil
		}
		return printJSON(os.Stdout, c)
	},
}

// -- curves activate --

var curvesActivateCmd = &cobra.Command{
	Use:   "activate <curve-id>",
	Short: "Activate a curve, deactivating its scope siblings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		runner, st, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		force, _ := cmd.Flags().GetBool("force")

		result, err := runner.ActivateCurve(ctx, args[0], force)
		if err != nil {
			return err
		}

		switch result.Reason {
		case jobs.ActivationNotFound:
			fmt.Fprintf(os.Stderr, "Curve not found: %s\n", result.CurveID)
		case jobs.ActivationImmature:
			fmt.Fprintf(os.Stderr, "Curve %s is immature (%d of %d required samples); use --force to override\n",
				result.CurveID, result.SampleCount, result.MinRequired)
		default:
			fmt.Fprintf(os.Stderr, "Activated %s\n", result.CurveID)
		}
		return nil
	},
}

// -- curves deactivate --

var curvesDeactivateCmd = &cobra.Command{
	Use:   "deactivate <curve-id>",
	Short: "Deactivate a curve without a replacement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		runner, st, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		result, err := runner.DeactivateCurve(ctx, args[0])
		if err != nil {
			return err
		}
		if result.Reason == jobs.ActivationNotFound {
			fmt.Fprintf(os.Stderr, "Curve not found: %s\n", result.CurveID)
			return nil
		}
		fmt.Fprintf(os.Stderr, "Deactivated %s; chain falls back to heuristics for that scope\n", result.CurveID)
		return nil
	},
}

func formatCurveList(w io.Writer, curves []model.CalibrationCurve) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tTYPE\tREGION\tSAMPLES\tREQUIRED\tMATURE\tACTIVE\tCREATED")
	for i := range curves {
		c := &curves[i]
		region := "-"
		if c.RegionKey != nil {
			region = *c.RegionKey
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%v\t%v\t%s\n",
			c.ID, c.CalibrationVersion, c.CurveType, region,
			c.SampleCount, c.MinSamplesRequired, c.IsMature(), c.IsActive,
			c.CreatedAt.Format(time.RFC3339))
	}
	tw.Flush()
}

func init() {
	curvesBuildCmd.Flags().Bool("dry-run", false, "build without persisting")
	curvesBuildCmd.Flags().Duration("since", 0, "restrict to labels on scans created within this window")

	curvesListCmd.Flags().String("version", "", "filter by calibration version")
	curvesListCmd.Flags().Bool("active", false, "show only active curves")

	curvesActivateCmd.Flags().Bool("force", false, "activate even if the curve is below its sample gate")

	curvesCmd.AddCommand(curvesBuildCmd)
	curvesCmd.AddCommand(curvesListCmd)
	curvesCmd.AddCommand(curvesShowCmd)
	curvesCmd.AddCommand(curvesActivateCmd)
	curvesCmd.AddCommand(curvesDeactivateCmd)
	rootCmd.AddCommand(curvesCmd)
}
