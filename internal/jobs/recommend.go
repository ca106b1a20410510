package jobs

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/calibration-engine/internal/model"
	"github.com/sells-group/calibration-engine/internal/region"
)

// recommendWindowDays is the trailing window of drift events a
// recommendation run considers.
const recommendWindowDays = 30

// Recommendation rule thresholds over the trailing window.
const (
	globalInvestigateCriticals = 3
	globalRebuildWarnings      = 5
	regionUpdateWarnings       = 3
)

// RecommendOptions control a recommendation run.
type RecommendOptions struct {
	DryRun bool // evaluate but do not persist
}

// RecommendResult summarizes a recommendation run.
type RecommendResult struct {
	EventsEvaluated        int                         `json:"events_evaluated"`
	RecommendationsCreated int                         `json:"recommendations_created"`
	Recommendations        []model.ModelRecommendation `json:"recommendations,omitempty"`
	DryRun                 bool                        `json:"dry_run"`
	Duration               time.Duration               `json:"duration"`
	Errors                 []string                    `json:"errors,omitempty"`
}

// Recommend turns the trailing month of drift events into advisory records.
// Widespread critical drift asks for a data investigation before any rebuild;
// scattered drift asks for a calibration rebuild; concentrated regional drift
// asks for a region curve update. The engine only ever writes advice, a
// human decides what to act on.
func (r *Runner) Recommend(ctx context.Context, opts RecommendOptions) (*RecommendResult, error) {
	result := &RecommendResult{DryRun: opts.DryRun}
	if !r.MonitoringEnabled {
		result.Errors = append(result.Errors, monitoringDisabled)
		return result, nil
	}
	start := r.now()

	err := r.guarded(LockRecommendation, func() error {
		since := start.AddDate(0, 0, -recommendWindowDays)
		events, err := r.Store.ListDriftEvents(ctx, since)
		if err != nil {
			return err
		}
		result.EventsEvaluated = len(events)

		if rec := globalRecommendation(events, start); rec != nil {
			result.Recommendations = append(result.Recommendations, *rec)
		}
		result.Recommendations = append(result.Recommendations, regionRecommendations(events, start)...)

		result.RecommendationsCreated = len(result.Recommendations)
		if opts.DryRun || len(result.Recommendations) == 0 {
			return nil
		}
		_, err = r.Store.InsertRecommendations(ctx, result.Recommendations)
		return err
	})

	result.Duration = r.now().Sub(start)
	if err != nil {
		return result, err
	}

	zap.L().Info("jobs: recommendation run complete",
		zap.Int("events_evaluated", result.EventsEvaluated),
		zap.Int("recommendations_created", result.RecommendationsCreated),
		zap.Bool("dry_run", result.DryRun))
	return result, nil
}

func countDrift(events []model.DriftEvent) model.DriftCounts {
	counts := model.DriftCounts{
		TotalEvents: len(events),
		WindowDays:  recommendWindowDays,
	}
	var sum float64
	for _, e := range events {
		switch e.Severity {
		case model.DriftCritical:
			counts.CriticalEvents++
		case model.DriftWarning:
			counts.WarningEvents++
		}
		sum += math.Abs(e.DriftPercentage)
	}
	if len(events) > 0 {
		counts.AverageDriftAbs = sum / float64(len(events))
	}
	return counts
}

// globalRecommendation applies the system-wide rules, strongest first. At
// most one global recommendation comes out of a run.
func globalRecommendation(events []model.DriftEvent, now time.Time) *model.ModelRecommendation {
	counts := countDrift(events)

	switch {
	case counts.CriticalEvents >= globalInvestigateCriticals:
		return &model.ModelRecommendation{
			ID:                 uuid.New().String(),
			ConfidenceType:     model.ConfidenceBoth,
			RecommendationType: model.RecommendInvestigateData,
			SupportingMetrics:  counts,
			Severity:           model.DriftCritical,
			CreatedAt:          now.UTC(),
		}
	case counts.CriticalEvents >= 1 || counts.WarningEvents >= globalRebuildWarnings:
		return &model.ModelRecommendation{
			ID:                 uuid.New().String(),
			ConfidenceType:     model.ConfidenceBoth,
			RecommendationType: model.RecommendRebuildCalibration,
			SupportingMetrics:  counts,
			Severity:           model.DriftWarning,
			CreatedAt:          now.UTC(),
		}
	}
	return nil
}

// regionRecommendations applies the per-region rule to every real region in
// the window. The unknown bucket never gets a region curve recommendation;
// drift there is a data quality question, not a curve question.
func regionRecommendations(events []model.DriftEvent, now time.Time) []model.ModelRecommendation {
	byRegion := make(map[string][]model.DriftEvent)
	for _, e := range events {
		if e.RegionKey == "" || e.RegionKey == string(region.Unknown) {
			continue
		}
		byRegion[e.RegionKey] = append(byRegion[e.RegionKey], e)
	}

	keys := make([]string, 0, len(byRegion))
	for k := range byRegion {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var recs []model.ModelRecommendation
	for _, key := range keys {
		counts := countDrift(byRegion[key])
		if counts.CriticalEvents < 1 && counts.WarningEvents < regionUpdateWarnings {
			continue
		}

		severity := model.DriftWarning
		if counts.CriticalEvents >= 1 {
			severity = model.DriftCritical
		}

		rk := key
		recs = append(recs, model.ModelRecommendation{
			ID:                 uuid.New().String(),
			RegionKey:          &rk,
			ConfidenceType:     model.ConfidenceBoth,
			RecommendationType: model.RecommendRegionCurveUpdate,
			SupportingMetrics:  counts,
			Severity:           severity,
			CreatedAt:          now.UTC(),
		})
	}
	return recs
}
