package jobs

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/calibration-engine/internal/model"
)

// Activation outcome reasons.
const (
	ActivationOK       = "activated"
	ActivationNotFound = "not_found"
	ActivationImmature = "immature"
)

// ActivationResult reports a curve activation attempt. Validation failures
// are data, not errors: the CLI renders them, exit codes stay clean, and
// nothing is thrown away mid-swap.
type ActivationResult struct {
	CurveID     string                  `json:"curve_id"`
	Activated   bool                    `json:"activated"`
	Reason      string                  `json:"reason"`
	SampleCount int                     `json:"sample_count,omitempty"`
	MinRequired int                     `json:"min_required,omitempty"`
	Curve       *model.CalibrationCurve `json:"curve,omitempty"`
}

// ActivateCurve validates and activates one curve. An immature curve is
// rejected unless force is set; the sibling deactivation and activation
// happen atomically in the store.
func (r *Runner) ActivateCurve(ctx context.Context, curveID string, force bool) (*ActivationResult, error) {
	result := &ActivationResult{CurveID: curveID}

	c, err := r.Store.GetCurve(ctx, curveID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		result.Reason = ActivationNotFound
		return result, nil
	}

	result.Curve = c
	result.SampleCount = c.SampleCount
	result.MinRequired = c.MinSamplesRequired

	if !c.IsMature() && !force {
		result.Reason = ActivationImmature
		return result, nil
	}

	if err := r.Store.ActivateCurve(ctx, curveID); err != nil {
		return nil, err
	}

	result.Activated = true
	result.Reason = ActivationOK
	zap.L().Info("jobs: curve activated",
		zap.String("curve_id", curveID),
		zap.String("curve_type", string(c.CurveType)),
		zap.String("version", c.CalibrationVersion),
		zap.Bool("forced", force && !c.IsMature()))
	return result, nil
}

// DeactivateCurve turns a curve off without activating a replacement. The
// chain falls back to the heuristics for that scope until a new activation.
func (r *Runner) DeactivateCurve(ctx context.Context, curveID string) (*ActivationResult, error) {
	result := &ActivationResult{CurveID: curveID}

	c, err := r.Store.GetCurve(ctx, curveID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		result.Reason = ActivationNotFound
		return result, nil
	}

	if err := r.Store.DeactivateCurve(ctx, curveID); err != nil {
		return nil, err
	}

	result.Curve = c
	result.Reason = ActivationOK
	zap.L().Info("jobs: curve deactivated",
		zap.String("curve_id", curveID),
		zap.String("curve_type", string(c.CurveType)))
	return result, nil
}
