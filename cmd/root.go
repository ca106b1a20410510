package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/calibration-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "calib",
	Short: "Confidence calibration engine for the deer scan classifier",
	Long:  "Calibrates raw classifier confidence against regional difficulty and ground-truth labels, builds and activates empirical calibration curves, and monitors drift, region maturity, and model health.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := cfg.Validate(); err != nil {
			return err
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
