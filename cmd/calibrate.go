package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/calibration-engine/internal/calibrate"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Run the calibration chain for a single scan",
	Long:  "Resolves calibrated confidences for one stored scan or an ad-hoc input through the curve and heuristic fallback chain.",
}

// -- calibrate scan --

var calibrateScanCmd = &cobra.Command{
	Use:   "scan <scan-id>",
	Short: "Calibrate one stored scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		runner, st, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		persist, _ := cmd.Flags().GetBool("persist")

		res, err := runner.CalibrateScan(ctx, args[0], persist)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, res)
	},
}

// -- calibrate input --

var calibrateInputCmd = &cobra.Command{
	Use:   "input",
	Short: "Calibrate an ad-hoc input without touching stored scans",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runner, st, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		raw, _ := cmd.Flags().GetFloat64("raw-confidence")
		state, _ := cmd.Flags().GetString("state")

		in := calibrate.Input{RawConfidence: raw, ScanState: state}
		if cmd.Flags().Changed("age") {
			age, _ := cmd.Flags().GetFloat64("age")
			in.PredictedAge = &age
		}
		if cmd.Flags().Changed("recommendation") {
			rec, _ := cmd.Flags().GetString("recommendation")
			in.Recommendation = &rec
		}
		if cmd.Flags().Changed("sex") {
			sex, _ := cmd.Flags().GetString("sex")
			in.DeerSex = &sex
		}
		if cmd.Flags().Changed("antler-points") {
			pts, _ := cmd.Flags().GetInt("antler-points")
			in.AntlerPoints = &pts
		}
		if cmd.Flags().Changed("antler-points-left") {
			pts, _ := cmd.Flags().GetInt("antler-points-left")
			in.AntlerPointsLeft = &pts
		}
		if cmd.Flags().Changed("antler-points-right") {
			pts, _ := cmd.Flags().GetInt("antler-points-right")
			in.AntlerPointsRight = &pts
		}

		res, err := runner.CalibrateInput(ctx, in)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, res)
	},
}

func init() {
	calibrateScanCmd.Flags().Bool("persist", false, "write calibration fields back to the scan")

	calibrateInputCmd.Flags().Float64("raw-confidence", 0, "raw model confidence (0-100)")
	calibrateInputCmd.Flags().String("state", "", "US state code for region assignment")
	calibrateInputCmd.Flags().Float64("age", 0, "predicted age in years")
	calibrateInputCmd.Flags().String("recommendation", "", "harvest recommendation (HARVEST, PASS)")
	calibrateInputCmd.Flags().String("sex", "", "deer sex")
	calibrateInputCmd.Flags().Int("antler-points", 0, "total antler points")
	calibrateInputCmd.Flags().Int("antler-points-left", 0, "left side antler points")
	calibrateInputCmd.Flags().Int("antler-points-right", 0, "right side antler points")

	calibrateCmd.AddCommand(calibrateScanCmd)
	calibrateCmd.AddCommand(calibrateInputCmd)
	rootCmd.AddCommand(calibrateCmd)
}
