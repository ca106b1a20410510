package jobs

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/calibration-engine/internal/curve"
	"github.com/sells-group/calibration-engine/internal/model"
	"github.com/sells-group/calibration-engine/internal/region"
	"github.com/sells-group/calibration-engine/internal/store"
	"github.com/sells-group/calibration-engine/internal/trust"
)

// DriftOptions control a drift detection run.
type DriftOptions struct {
	WindowDays int  // trailing window in days; 0 uses the configured default
	NoSeasons  bool // disable season segmentation when grouping
	DryRun     bool // detect but do not persist events
}

// DriftResult summarizes a drift detection run.
type DriftResult struct {
	WindowDays      int                `json:"window_days"`
	GroupsEvaluated int                `json:"groups_evaluated"`
	GroupsSkipped   int                `json:"groups_skipped"`
	EventsDetected  int                `json:"events_detected"`
	Events          []model.DriftEvent `json:"events,omitempty"`
	DryRun          bool               `json:"dry_run"`
	Duration        time.Duration      `json:"duration"`
	Errors          []string           `json:"errors,omitempty"`
}

// driftGroup keys one evaluation unit: a region, the calibration version its
// scans were scored under, and the hunting season the scans fell in.
type driftGroup struct {
	RegionKey    string
	Version      string
	SeasonBucket string
}

// DetectDrift compares trust-weighted observed accuracy against the
// curve-implied (or baseline) expected accuracy for every (region, version,
// season) group inside one trailing window, emitting an append-only drift
// event per drifting group and axis. A group whose every axis falls under the
// minimum sample size is skipped, never judged. Exactly one window is
// evaluated per run; 60- and 90-day looks are separate runs.
func (r *Runner) DetectDrift(ctx context.Context, opts DriftOptions) (*DriftResult, error) {
	result := &DriftResult{DryRun: opts.DryRun}
	if !r.MonitoringEnabled {
		result.Errors = append(result.Errors, monitoringDisabled)
		return result, nil
	}

	windowDays := opts.WindowDays
	if windowDays <= 0 {
		windowDays = r.Drift.WindowDays
	}
	if windowDays <= 0 {
		windowDays = 30
	}
	result.WindowDays = windowDays
	start := r.now()

	err := r.guarded(LockDriftDetection, func() error {
		curves, err := r.Store.ActiveCurves(ctx)
		if err != nil {
			return err
		}

		since := start.AddDate(0, 0, -windowDays)
		labeled, err := r.Store.ListLabeledScans(ctx, store.LabelFilter{Since: since})
		if err != nil {
			return err
		}

		groups := make(map[driftGroup][]model.LabeledScan)
		for _, l := range labeled {
			g := driftGroup{
				RegionKey: l.RegionKey,
				Version:   l.CalibrationVersion,
			}
			if !opts.NoSeasons {
				g.SeasonBucket = string(region.Season(l.ScanCreatedAt, region.Key(l.RegionKey)))
			}
			groups[g] = append(groups[g], l)
		}

		keys := make([]driftGroup, 0, len(groups))
		for g := range groups {
			keys = append(keys, g)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, b := keys[i], keys[j]
			if a.RegionKey != b.RegionKey {
				return a.RegionKey < b.RegionKey
			}
			if a.Version != b.Version {
				return a.Version < b.Version
			}
			return a.SeasonBucket < b.SeasonBucket
		})

		for _, g := range keys {
			evaluated := 0
			for _, axis := range []model.ConfidenceType{model.ConfidenceAge, model.ConfidenceRecommendation} {
				ev, ok := r.evaluateGroup(g, groups[g], axis, windowDays, curves, start)
				if !ok {
					continue
				}
				evaluated++
				if ev != nil {
					result.Events = append(result.Events, *ev)
				}
			}
			if evaluated == 0 {
				result.GroupsSkipped++
			} else {
				result.GroupsEvaluated++
			}
		}

		result.EventsDetected = len(result.Events)
		if opts.DryRun || len(result.Events) == 0 {
			return nil
		}
		_, err = r.Store.InsertDriftEvents(ctx, result.Events)
		return err
	})

	result.Duration = r.now().Sub(start)
	if err != nil {
		return result, err
	}

	zap.L().Info("jobs: drift detection complete",
		zap.Int("window_days", result.WindowDays),
		zap.Int("groups_evaluated", result.GroupsEvaluated),
		zap.Int("groups_skipped", result.GroupsSkipped),
		zap.Int("events_detected", result.EventsDetected),
		zap.Bool("dry_run", result.DryRun))
	return result, nil
}

// evaluateGroup returns (nil, true) when the group is healthy, (event, true)
// when it drifted, and (nil, false) when it is too small to judge.
func (r *Runner) evaluateGroup(g driftGroup, labeled []model.LabeledScan, axis model.ConfidenceType, windowDays int, curves model.CurveLookup, now time.Time) (*model.DriftEvent, bool) {
	observed, n := trust.WeightedAccuracy(labeled, axis, r.Trust)
	if n < r.Drift.MinSamples {
		return nil, false
	}

	expected := r.expectedAccuracy(g.RegionKey, axis, curves)
	drift := observed - expected

	severity := model.DriftNone
	switch {
	case math.Abs(drift) >= r.Drift.CriticalThreshold:
		severity = model.DriftCritical
	case math.Abs(drift) >= r.Drift.WarningThreshold:
		severity = model.DriftWarning
	}
	if severity == model.DriftNone {
		return nil, true
	}

	var season *string
	if g.SeasonBucket != "" {
		season = &g.SeasonBucket
	}
	return &model.DriftEvent{
		ID:                 uuid.New().String(),
		RegionKey:          g.RegionKey,
		CalibrationVersion: g.Version,
		ConfidenceType:     axis,
		ExpectedAccuracy:   expected,
		ObservedAccuracy:   observed,
		DriftPercentage:    drift,
		Severity:           severity,
		SampleSize:         n,
		WindowDays:         windowDays,
		SeasonBucket:       season,
		CreatedAt:          now.UTC(),
	}, true
}

// expectedAccuracy derives the expectation from the active curve covering
// the group, preferring the region curve over the global one, and falls back
// to the configured per-axis baseline when no curve is active.
func (r *Runner) expectedAccuracy(regionKey string, axis model.ConfidenceType, curves model.CurveLookup) float64 {
	regionType, globalType := model.CurveRegionAge, model.CurveGlobalAge
	baseline := r.Drift.AgeBaseline
	if axis == model.ConfidenceRecommendation {
		regionType, globalType = model.CurveRegionRecommendation, model.CurveGlobalRecommendation
		baseline = r.Drift.RecommendationBaseline
	}

	if c, ok := curves[model.CurveScope{Type: regionType, RegionKey: regionKey}]; ok {
		return curve.BinAverage(c)
	}
	if c, ok := curves[model.CurveScope{Type: globalType}]; ok {
		return curve.BinAverage(c)
	}
	return baseline
}
