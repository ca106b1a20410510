package jobs

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/calibration-engine/internal/model"
	"github.com/sells-group/calibration-engine/internal/store"
	"github.com/sells-group/calibration-engine/internal/trust"
)

// MaturityOptions control a region maturity scoring run.
type MaturityOptions struct {
	DryRun bool // score but do not upsert
}

// MaturityResult summarizes a maturity scoring run.
type MaturityResult struct {
	RegionsScored int                    `json:"regions_scored"`
	Regions       []model.RegionMaturity `json:"regions,omitempty"`
	DryRun        bool                   `json:"dry_run"`
	Duration      time.Duration          `json:"duration"`
	Errors        []string               `json:"errors,omitempty"`
}

// ScoreMaturity grades every region that has at least one labeled scan on
// sample volume, label source diversity, and drift stability, upserting one
// row per region. Regions with no labeled data are left absent rather than
// scored as zero.
func (r *Runner) ScoreMaturity(ctx context.Context, opts MaturityOptions) (*MaturityResult, error) {
	result := &MaturityResult{DryRun: opts.DryRun}
	if !r.MonitoringEnabled {
		result.Errors = append(result.Errors, monitoringDisabled)
		return result, nil
	}
	start := r.now()

	err := r.guarded(LockMaturity, func() error {
		labeled, err := r.Store.ListLabeledScans(ctx, store.LabelFilter{})
		if err != nil {
			return err
		}

		stabilityWindow := start.AddDate(0, 0, -r.Maturity.StabilityWindowDays)
		events, err := r.Store.ListDriftEvents(ctx, stabilityWindow)
		if err != nil {
			return err
		}
		driftByRegion := make(map[string][]model.DriftEvent)
		for _, e := range events {
			driftByRegion[e.RegionKey] = append(driftByRegion[e.RegionKey], e)
		}

		byRegion := make(map[string][]model.LabeledScan)
		for _, l := range labeled {
			if l.RegionKey == "" {
				continue
			}
			byRegion[l.RegionKey] = append(byRegion[l.RegionKey], l)
		}

		regions := make([]string, 0, len(byRegion))
		for k := range byRegion {
			regions = append(regions, k)
		}
		sort.Strings(regions)

		for _, key := range regions {
			m := r.scoreRegion(key, byRegion[key], driftByRegion[key], start)
			result.Regions = append(result.Regions, m)
			if !opts.DryRun {
				if err := r.Store.UpsertRegionMaturity(ctx, m); err != nil {
					return err
				}
			}
		}
		result.RegionsScored = len(result.Regions)
		return nil
	})

	result.Duration = r.now().Sub(start)
	if err != nil {
		return result, err
	}

	zap.L().Info("jobs: maturity scoring complete",
		zap.Int("regions_scored", result.RegionsScored),
		zap.Bool("dry_run", result.DryRun))
	return result, nil
}

func (r *Runner) scoreRegion(key string, labeled []model.LabeledScan, events []model.DriftEvent, now time.Time) model.RegionMaturity {
	count := len(labeled)

	level := model.MaturityLow
	switch {
	case count >= r.Maturity.HighSamples:
		level = model.MaturityHigh
	case count >= r.Maturity.MediumSamples:
		level = model.MaturityMedium
	}

	return model.RegionMaturity{
		RegionKey:                 key,
		MaturityLevel:             level,
		LabeledSampleCount:        count,
		LabelSourceDiversityScore: r.diversityScore(labeled),
		StabilityScore:            stabilityScore(events),
		LastComputedAt:            now.UTC(),
	}
}

// diversityScore is the Shannon entropy of the label source distribution,
// normalized by the maximum entropy over the known trust tiers, plus a bonus
// when expert labels are present, capped at 1.0.
func (r *Runner) diversityScore(labeled []model.LabeledScan) float64 {
	counts := make(map[string]int)
	hasExpert := false
	for _, l := range labeled {
		src := trust.SourceUnknown
		if l.TrustSource != "" {
			src = l.TrustSource
		}
		counts[src]++
		if src == trust.SourceExpert {
			hasExpert = true
		}
	}
	if len(labeled) == 0 {
		return 0
	}

	var entropy float64
	total := float64(len(labeled))
	for _, c := range counts {
		p := float64(c) / total
		entropy -= p * math.Log(p)
	}

	tiers := r.Trust.Sources()
	if tiers < 2 {
		tiers = 2
	}
	score := entropy / math.Log(float64(tiers))

	if hasExpert {
		score += r.Maturity.ExpertBonus
	}
	return math.Min(score, 1.0)
}

// stabilityScore maps the average absolute drift of recent events onto [0,1].
// Fewer than two events is not enough history to judge either way, so the
// score sits at the neutral midpoint.
func stabilityScore(events []model.DriftEvent) float64 {
	if len(events) < 2 {
		return 0.5
	}
	var sum float64
	for _, e := range events {
		sum += math.Abs(e.DriftPercentage)
	}
	avg := sum / float64(len(events))
	return math.Max(0, 1-avg/0.20)
}
