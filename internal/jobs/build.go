package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/calibration-engine/internal/curve"
	"github.com/sells-group/calibration-engine/internal/model"
	"github.com/sells-group/calibration-engine/internal/store"
)

// BuildOptions control a curve build run.
type BuildOptions struct {
	Since  time.Time // restrict to labels on scans created at or after this time
	DryRun bool      // build but do not persist
}

// BuildResult summarizes a curve build run.
type BuildResult struct {
	Version      string                   `json:"version"`
	LabeledScans int                      `json:"labeled_scans"`
	CurvesBuilt  int                      `json:"curves_built"`
	CurvesMature int                      `json:"curves_mature"`
	Curves       []model.CalibrationCurve `json:"curves,omitempty"`
	DryRun       bool                     `json:"dry_run"`
	Duration     time.Duration            `json:"duration"`
	Errors       []string                 `json:"errors,omitempty"`
}

// BuildCurves aggregates all labeled scans into a fresh curve generation
// under a new version stamp. Every curve is stored inactive; activation is a
// separate, explicitly human-triggered step.
func (r *Runner) BuildCurves(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	start := r.now()
	result := &BuildResult{
		Version: curve.NewVersion(start),
		DryRun:  opts.DryRun,
	}

	err := r.guarded(LockCurveBuild, func() error {
		labeled, err := r.Store.ListLabeledScans(ctx, store.LabelFilter{Since: opts.Since})
		if err != nil {
			return err
		}
		result.LabeledScans = len(labeled)

		curves := curve.Build(labeled, r.Builder, result.Version, start)
		result.Curves = curves
		result.CurvesBuilt = len(curves)
		for i := range curves {
			if curves[i].IsMature() {
				result.CurvesMature++
			}
		}

		if opts.DryRun {
			return nil
		}
		return r.Store.InsertCurves(ctx, curves)
	})

	result.Duration = r.now().Sub(start)
	if err != nil {
		return result, err
	}

	zap.L().Info("jobs: curve build complete",
		zap.String("version", result.Version),
		zap.Int("labeled_scans", result.LabeledScans),
		zap.Int("curves_built", result.CurvesBuilt),
		zap.Int("curves_mature", result.CurvesMature),
		zap.Bool("dry_run", result.DryRun))
	return result, nil
}
