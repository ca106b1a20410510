// Package calibrate resolves the final calibrated confidences for a scan via
// the ordered fallback chain over empirical curves and the heuristic
// calibrator. Resolve is a pure function and the single implementation used
// by both live scoring and the recalibration batch job, so identical inputs
// always produce identical outputs on both paths.
package calibrate

import (
	"math"

	"github.com/sells-group/calibration-engine/internal/curve"
	"github.com/sells-group/calibration-engine/internal/heuristic"
	"github.com/sells-group/calibration-engine/internal/model"
	"github.com/sells-group/calibration-engine/internal/region"
)

// Strategy names which rung of the fallback chain produced a confidence.
type Strategy string

const (
	StrategyCurveRegion     Strategy = "curve_region"
	StrategyCurveGlobal     Strategy = "curve_global"
	StrategyHeuristicRegion Strategy = "heuristic_region"
	StrategyHeuristicGlobal Strategy = "heuristic_global"
	StrategyLegacy          Strategy = "legacy"
)

// Fallback reasons recorded when a chain rung is skipped.
const (
	ReasonRegionCurveMissing        = "region_curve_missing"
	ReasonNoActiveCurves            = "no_active_curves"
	ReasonBinUnderSampled           = "bin_under_sampled"
	ReasonRegionCalibrationDisabled = "region_calibration_disabled"
	ReasonCalibrationDisabled       = "calibration_disabled"
)

// HeuristicVersion tags outputs produced without a curve.
const HeuristicVersion = "v2-region-heuristic"

// DisabledVersion tags passthrough outputs when the master switch is off.
const DisabledVersion = "disabled"

// Flags are the feature switches consulted by the chain.
type Flags struct {
	Enabled       bool // master switch; off means raw passthrough
	RegionEnabled bool // region-aware heuristics and thresholds
	CurvesEnabled bool // empirical curve lookup
}

// Input is everything the chain needs for one scan.
type Input struct {
	RawConfidence     float64 // 0-100
	PredictedAge      *float64
	Recommendation    *string
	DeerSex           *string
	AntlerPoints      *int
	AntlerPointsLeft  *int
	AntlerPointsRight *int
	ScanState         string // locale from the scan request
	ProfileState      string // locale from the user profile
}

// Result is the calibrated output for one scan.
type Result struct {
	RawConfidence float64
	OriginalAge   *float64

	Region region.Info

	AgeConfidence            int // 0-100
	RecommendationConfidence int // 0-100
	AgeUncertain             bool
	AdjustedAge              *float64

	CalibrationVersion string
	Strategy           Strategy
	FallbackReason     *string
}

// Fields converts the result to the scan write-back subset.
func (r Result) Fields() model.CalibrationFields {
	return model.CalibrationFields{
		AgeConfidence:            r.AgeConfidence,
		RecommendationConfidence: r.RecommendationConfidence,
		AgeUncertain:             r.AgeUncertain,
		AdjustedAge:              r.AdjustedAge,
		CalibrationVersion:       r.CalibrationVersion,
		CalibrationStrategy:      string(r.Strategy),
		CalibrationFallback:      r.FallbackReason,
	}
}

// Resolve runs the fallback chain for one scan: active region curve, then
// active global curve, then the region-aware heuristic, then the neutral
// heuristic. The recommendation axis walks the same chain; the age axis
// outcome supplies the scan-level strategy and version metadata. With the
// master switch off the raw confidence passes through untouched on both
// axes, with no uncertainty gating.
func Resolve(in Input, curves model.CurveLookup, hcfg heuristic.Config, binMinSamples int, flags Flags) Result {
	if !flags.Enabled {
		reason := ReasonCalibrationDisabled
		return Result{
			RawConfidence:            in.RawConfidence,
			OriginalAge:              in.PredictedAge,
			Region:                   region.Info{Key: region.Unknown, Source: region.SourceFallbackUnknown},
			AgeConfidence:            roundPct(in.RawConfidence / 100.0),
			RecommendationConfidence: roundPct(in.RawConfidence / 100.0),
			AgeUncertain:             false,
			AdjustedAge:              in.PredictedAge,
			CalibrationVersion:       DisabledVersion,
			Strategy:                 StrategyLegacy,
			FallbackReason:           &reason,
		}
	}

	info := region.Determine(in.ScanState, in.ProfileState)

	hin := heuristic.Input{
		RawConfidence:     in.RawConfidence,
		PredictedAge:      in.PredictedAge,
		Recommendation:    in.Recommendation,
		DeerSex:           in.DeerSex,
		AntlerPoints:      in.AntlerPoints,
		AntlerPointsLeft:  in.AntlerPointsLeft,
		AntlerPointsRight: in.AntlerPointsRight,
	}

	ageConf, ageStrategy, ageVersion, ageReason := resolveAxis(
		in.RawConfidence, info.Key,
		model.CurveRegionAge, model.CurveGlobalAge,
		curves, binMinSamples, flags,
		func(k region.Key) float64 { return heuristic.AgeConfidence(hin, k, hcfg) },
	)

	recConf, _, _, _ := resolveAxis(
		in.RawConfidence, info.Key,
		model.CurveRegionRecommendation, model.CurveGlobalRecommendation,
		curves, binMinSamples, flags,
		func(region.Key) float64 { return heuristic.RecommendationConfidence(hin, hcfg) },
	)

	gateKey := info.Key
	if !flags.RegionEnabled {
		gateKey = region.Unknown
	}
	ageUncertain, adjustedAge := heuristic.Gate(ageConf, gateKey, in.PredictedAge)

	return Result{
		RawConfidence:            in.RawConfidence,
		OriginalAge:              in.PredictedAge,
		Region:                   info,
		AgeConfidence:            roundPct(ageConf),
		RecommendationConfidence: roundPct(recConf),
		AgeUncertain:             ageUncertain,
		AdjustedAge:              adjustedAge,
		CalibrationVersion:       ageVersion,
		Strategy:                 ageStrategy,
		FallbackReason:           ageReason,
	}
}

// resolveAxis walks the chain for one confidence axis and reports which rung
// applied, the version that produced the value, and any fallback reason.
func resolveAxis(
	rawConfidence float64,
	key region.Key,
	regionType, globalType model.CurveType,
	curves model.CurveLookup,
	binMinSamples int,
	flags Flags,
	heuristicFn func(region.Key) float64,
) (float64, Strategy, string, *string) {
	var reason *string

	if flags.CurvesEnabled && len(curves) > 0 {
		if c, ok := curves[model.CurveScope{Type: regionType, RegionKey: string(key)}]; ok {
			conf, usedFallback := curve.Apply(rawConfidence, c, binMinSamples)
			if usedFallback {
				reason = strptr(ReasonBinUnderSampled)
			}
			return conf, StrategyCurveRegion, c.CalibrationVersion, reason
		}

		if c, ok := curves[model.CurveScope{Type: globalType}]; ok {
			reason = strptr(ReasonRegionCurveMissing)
			conf, usedFallback := curve.Apply(rawConfidence, c, binMinSamples)
			if usedFallback {
				reason = strptr(ReasonBinUnderSampled)
			}
			return conf, StrategyCurveGlobal, c.CalibrationVersion, reason
		}

		reason = strptr(ReasonNoActiveCurves)
	}

	if flags.RegionEnabled {
		return heuristicFn(key), StrategyHeuristicRegion, HeuristicVersion, reason
	}

	// Neutral heuristic: midwest carries the 1.0 multiplier.
	if reason == nil {
		reason = strptr(ReasonRegionCalibrationDisabled)
	}
	return heuristicFn(region.Midwest), StrategyHeuristicGlobal, HeuristicVersion, reason
}

func roundPct(v float64) int {
	return int(math.Round(v * 100))
}

func strptr(s string) *string { return &s }
