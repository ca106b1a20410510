package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/calibration-engine/internal/calibrate"
	"github.com/sells-group/calibration-engine/internal/model"
	"github.com/sells-group/calibration-engine/internal/store"
)

// RecalibrateOptions control a recalibration run.
type RecalibrateOptions struct {
	RegionKey string    // restrict to one region; empty means all
	Since     time.Time // restrict to scans created at or after this time
	DryRun    bool      // resolve but do not write
	Limit     int       // cap on scans examined; 0 uses Runner.MaxScans
}

// RecalibrateResult summarizes a recalibration run.
type RecalibrateResult struct {
	ScansProcessed int           `json:"scans_processed"`
	ScansUpdated   int           `json:"scans_updated"`
	ScansSkipped   int           `json:"scans_skipped"`
	ScansFailed    int           `json:"scans_failed"`
	DryRun         bool          `json:"dry_run"`
	Duration       time.Duration `json:"duration"`
	Errors         []string      `json:"errors,omitempty"`
}

// Recalibrate re-runs the fallback chain over stored scans in batches and
// writes back only the scans whose calibration output actually changed, so a
// second run over unchanged data reports zero updates. Individual scan
// failures are recorded and the run continues.
func (r *Runner) Recalibrate(ctx context.Context, opts RecalibrateOptions) (*RecalibrateResult, error) {
	result := &RecalibrateResult{DryRun: opts.DryRun}
	start := r.now()

	err := r.guarded(LockRecalibration, func() error {
		curves, err := r.Store.ActiveCurves(ctx)
		if err != nil {
			return err
		}

		maxScans := opts.Limit
		if maxScans <= 0 {
			maxScans = r.MaxScans
		}
		batchSize := r.BatchSize
		if batchSize <= 0 {
			batchSize = 100
		}

		offset := 0
		for result.ScansProcessed < maxScans {
			limit := batchSize
			if remaining := maxScans - result.ScansProcessed; remaining < limit {
				limit = remaining
			}

			scans, err := r.Store.ListScans(ctx, store.ScanFilter{
				RegionKey: opts.RegionKey,
				Since:     opts.Since,
				Limit:     limit,
				Offset:    offset,
			})
			if err != nil {
				return err
			}
			if len(scans) == 0 {
				break
			}
			offset += len(scans)

			for i := range scans {
				sc := &scans[i]
				result.ScansProcessed++

				if err := r.recalibrateScan(ctx, sc, curves, opts.DryRun, result); err != nil {
					result.ScansFailed++
					result.Errors = append(result.Errors,
						fmt.Sprintf("scan %s: %v", sc.ID, err))
				}
			}
		}

		// The safety cap halting with rows still pending is a reportable
		// condition; an operator-chosen limit is not.
		if opts.Limit <= 0 && result.ScansProcessed >= maxScans {
			pending, err := r.Store.ListScans(ctx, store.ScanFilter{
				RegionKey: opts.RegionKey,
				Since:     opts.Since,
				Limit:     1,
				Offset:    offset,
			})
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				result.Errors = append(result.Errors,
					fmt.Sprintf("safety limit reached (%d scans); remaining scans left unprocessed", maxScans))
			}
		}
		return nil
	})

	result.Duration = r.now().Sub(start)
	if err != nil {
		return result, err
	}

	zap.L().Info("jobs: recalibration complete",
		zap.Int("processed", result.ScansProcessed),
		zap.Int("updated", result.ScansUpdated),
		zap.Int("skipped", result.ScansSkipped),
		zap.Int("failed", result.ScansFailed),
		zap.Bool("dry_run", result.DryRun),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (r *Runner) recalibrateScan(ctx context.Context, sc *model.Scan, curves model.CurveLookup, dryRun bool, result *RecalibrateResult) error {
	res := calibrate.Resolve(scanInput(sc), curves, r.Heuristic, r.Builder.BinMinSamples, r.Flags)
	fields := res.Fields()

	if fields.Unchanged(sc) {
		result.ScansSkipped++
		return nil
	}
	if dryRun {
		result.ScansUpdated++
		return nil
	}
	if err := r.Store.UpdateScanCalibration(ctx, sc.ID, fields); err != nil {
		return err
	}
	result.ScansUpdated++
	return nil
}

// scanInput maps a stored scan onto the chain input. The stored region state
// is authoritative; profile state only matters at initial scoring time.
func scanInput(sc *model.Scan) calibrate.Input {
	var state string
	if sc.RegionState != nil {
		state = *sc.RegionState
	}
	return calibrate.Input{
		RawConfidence:     sc.RawConfidence,
		PredictedAge:      sc.PredictedAge,
		Recommendation:    sc.Recommendation,
		DeerSex:           sc.DeerSex,
		AntlerPoints:      sc.AntlerPoints,
		AntlerPointsLeft:  sc.AntlerPointsLeft,
		AntlerPointsRight: sc.AntlerPointsRight,
		ScanState:         state,
	}
}
