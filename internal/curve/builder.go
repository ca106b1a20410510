package curve

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/calibration-engine/internal/model"
)

// BuilderConfig holds the sample-size gates for curve construction.
type BuilderConfig struct {
	GlobalMinSamples int `yaml:"global_min_samples" mapstructure:"global_min_samples" json:"global_min_samples"`
	RegionMinSamples int `yaml:"region_min_samples" mapstructure:"region_min_samples" json:"region_min_samples"`
	BinMinSamples    int `yaml:"bin_min_samples" mapstructure:"bin_min_samples" json:"bin_min_samples"`
}

// DefaultBuilderConfig returns the standard maturity gates.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		GlobalMinSamples: 500,
		RegionMinSamples: 200,
		BinMinSamples:    20,
	}
}

// accumulator tracks per-bin tallies for one curve scope.
type accumulator struct {
	samples [BinCount]int
	correct [BinCount]int
}

func (a *accumulator) add(binIdx int, isCorrect bool) {
	a.samples[binIdx]++
	if isCorrect {
		a.correct[binIdx]++
	}
}

func (a *accumulator) total() int {
	var n int
	for _, s := range a.samples {
		n += s
	}
	return n
}

// Build aggregates labeled scans into one curve per observed scope: the two
// global curves plus region-scoped curves for every region seen in the data.
// Every curve comes back inactive; activation is a separate human-gated step.
// Curves are ordered global-first, then by region key, for stable output.
func Build(labeled []model.LabeledScan, cfg BuilderConfig, version string, now time.Time) []model.CalibrationCurve {
	accs := make(map[model.CurveScope]*accumulator)

	acc := func(scope model.CurveScope) *accumulator {
		a, ok := accs[scope]
		if !ok {
			a = &accumulator{}
			accs[scope] = a
		}
		return a
	}

	for _, l := range labeled {
		idx := Index(l.RawConfidence)

		if l.AgeCorrect != nil {
			acc(model.CurveScope{Type: model.CurveGlobalAge}).add(idx, *l.AgeCorrect)
			if l.RegionKey != "" {
				acc(model.CurveScope{Type: model.CurveRegionAge, RegionKey: l.RegionKey}).add(idx, *l.AgeCorrect)
			}
		}
		if l.RecommendationCorrect != nil {
			acc(model.CurveScope{Type: model.CurveGlobalRecommendation}).add(idx, *l.RecommendationCorrect)
			if l.RegionKey != "" {
				acc(model.CurveScope{Type: model.CurveRegionRecommendation, RegionKey: l.RegionKey}).add(idx, *l.RecommendationCorrect)
			}
		}
	}

	scopes := make([]model.CurveScope, 0, len(accs))
	for scope := range accs {
		scopes = append(scopes, scope)
	}
	sort.Slice(scopes, func(i, j int) bool {
		if scopes[i].RegionKey != scopes[j].RegionKey {
			return scopes[i].RegionKey < scopes[j].RegionKey
		}
		return scopes[i].Type < scopes[j].Type
	})

	curves := make([]model.CalibrationCurve, 0, len(scopes))
	for _, scope := range scopes {
		a := accs[scope]

		bins := NewBins()
		for i := range bins {
			bins[i].SampleCount = a.samples[i]
			bins[i].CorrectCount = a.correct[i]
			if a.samples[i] >= cfg.BinMinSamples {
				bins[i].CalibratedConfidence = round4(float64(a.correct[i]) / float64(a.samples[i]))
			} else {
				bins[i].CalibratedConfidence = Midpoint(i)
			}
		}

		minRequired := cfg.GlobalMinSamples
		var regionKey *string
		if scope.RegionKey != "" {
			minRequired = cfg.RegionMinSamples
			rk := scope.RegionKey
			regionKey = &rk
		}

		curves = append(curves, model.CalibrationCurve{
			ID:                 uuid.New().String(),
			CalibrationVersion: version,
			CurveType:          scope.Type,
			RegionKey:          regionKey,
			Method:             "binning",
			Bins:               bins,
			SampleCount:        a.total(),
			MinSamplesRequired: minRequired,
			IsActive:           false,
			CreatedAt:          now.UTC(),
			UpdatedAt:          now.UTC(),
		})
	}

	return curves
}

// BinAverage returns the mean calibrated confidence across a curve's bins,
// the drift detector's curve-implied expected accuracy.
func BinAverage(c *model.CalibrationCurve) float64 {
	if c == nil || len(c.Bins) == 0 {
		return 0
	}
	var sum float64
	for _, b := range c.Bins {
		sum += b.CalibratedConfidence
	}
	return sum / float64(len(c.Bins))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
