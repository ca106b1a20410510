package jobs

import (
	"context"
	"time"

	"github.com/sells-group/calibration-engine/internal/calibrate"
	"github.com/sells-group/calibration-engine/internal/curve"
	"github.com/sells-group/calibration-engine/internal/heuristic"
	"github.com/sells-group/calibration-engine/internal/model"
	"github.com/sells-group/calibration-engine/internal/trust"
)

// CurveSummary is the operator-facing view of one curve.
type CurveSummary struct {
	ID                 string          `json:"id"`
	CalibrationVersion string          `json:"calibration_version"`
	CurveType          model.CurveType `json:"curve_type"`
	RegionKey          *string         `json:"region_key,omitempty"`
	SampleCount        int             `json:"sample_count"`
	MinSamplesRequired int             `json:"min_samples_required"`
	Mature             bool            `json:"mature"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Summarize flattens a curve for listings, dropping the bin detail.
func Summarize(c *model.CalibrationCurve) CurveSummary {
	return CurveSummary{
		ID:                 c.ID,
		CalibrationVersion: c.CalibrationVersion,
		CurveType:          c.CurveType,
		RegionKey:          c.RegionKey,
		SampleCount:        c.SampleCount,
		MinSamplesRequired: c.MinSamplesRequired,
		Mature:             c.IsMature(),
		IsActive:           c.IsActive,
		CreatedAt:          c.CreatedAt,
	}
}

// EffectiveConfig is the runner's full tuning as it stands at snapshot time,
// after file, environment, and defaults have been merged.
type EffectiveConfig struct {
	Heuristic heuristic.Config    `json:"heuristic"`
	Curves    curve.BuilderConfig `json:"curves"`
	Drift     DriftConfig         `json:"drift"`
	Maturity  MaturityConfig      `json:"maturity"`
	Trust     trust.Weights       `json:"trust_weights"`
	BatchSize int                 `json:"batch_size"`
	MaxScans  int                 `json:"max_scans"`
}

// Status is a point-in-time snapshot of the engine's state.
type Status struct {
	GeneratedAt       time.Time              `json:"generated_at"`
	Flags             calibrate.Flags        `json:"flags"`
	MonitoringEnabled bool                   `json:"monitoring_enabled"`
	RunningJobs       []string               `json:"running_jobs,omitempty"`
	Config            EffectiveConfig        `json:"config"`
	Scans             int                    `json:"scans"`
	ActiveCurves      []CurveSummary         `json:"active_curves"`
	RecentDrift       model.DriftCounts      `json:"recent_drift"`
	RegionMaturity    []model.RegionMaturity `json:"region_maturity"`
	Recommendations   int                    `json:"recommendations_30d"`
}

// Snapshot assembles the engine status: feature switches, the effective
// configuration, currently-running jobs, scan volume, the active curve set,
// drift over the trailing month, region maturity, and open advice.
func (r *Runner) Snapshot(ctx context.Context) (*Status, error) {
	now := r.now()
	st := &Status{
		GeneratedAt:       now.UTC(),
		Flags:             r.Flags,
		MonitoringEnabled: r.MonitoringEnabled,
		RunningJobs:       r.Locks.Running(),
		Config: EffectiveConfig{
			Heuristic: r.Heuristic,
			Curves:    r.Builder,
			Drift:     r.Drift,
			Maturity:  r.Maturity,
			Trust:     r.Trust,
			BatchSize: r.BatchSize,
			MaxScans:  r.MaxScans,
		},
	}

	scans, err := r.Store.CountScans(ctx)
	if err != nil {
		return nil, err
	}
	st.Scans = scans

	curves, err := r.Store.ActiveCurves(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range curves {
		st.ActiveCurves = append(st.ActiveCurves, Summarize(c))
	}

	since := now.AddDate(0, 0, -recommendWindowDays)
	events, err := r.Store.ListDriftEvents(ctx, since)
	if err != nil {
		return nil, err
	}
	st.RecentDrift = countDrift(events)

	maturity, err := r.Store.ListRegionMaturity(ctx)
	if err != nil {
		return nil, err
	}
	st.RegionMaturity = maturity

	recs, err := r.Store.ListRecommendations(ctx, since)
	if err != nil {
		return nil, err
	}
	st.Recommendations = len(recs)

	return st, nil
}
