package jobs

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/calibration-engine/internal/calibrate"
)

// CalibrateScan runs the live scoring path for one stored scan and, when
// persist is set, writes the calibration fields back.
func (r *Runner) CalibrateScan(ctx context.Context, scanID string, persist bool) (*calibrate.Result, error) {
	sc, err := r.Store.GetScan(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, eris.Errorf("scan not found: %s", scanID)
	}

	curves, err := r.Store.ActiveCurves(ctx)
	if err != nil {
		return nil, err
	}

	res := calibrate.Resolve(scanInput(sc), curves, r.Heuristic, r.Builder.BinMinSamples, r.Flags)
	if persist {
		if err := r.Store.UpdateScanCalibration(ctx, sc.ID, res.Fields()); err != nil {
			return nil, err
		}
	}
	return &res, nil
}

// CalibrateInput runs the chain over an ad-hoc input against the active
// curves without touching any stored scan. Used by the CLI for what-if
// scoring.
func (r *Runner) CalibrateInput(ctx context.Context, in calibrate.Input) (*calibrate.Result, error) {
	curves, err := r.Store.ActiveCurves(ctx)
	if err != nil {
		return nil, err
	}
	res := calibrate.Resolve(in, curves, r.Heuristic, r.Builder.BinMinSamples, r.Flags)
	return &res, nil
}
