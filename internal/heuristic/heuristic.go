// Package heuristic implements the deterministic penalty/scale confidence
// calibrator used whenever no mature empirical curve is available.
package heuristic

import (
	"math"
	"strings"

	"github.com/sells-group/calibration-engine/internal/region"
)

// Config holds the tunable scaling factors, penalties, and caps.
type Config struct {
	AgeScale             float64 `yaml:"age_scale" mapstructure:"age_scale" json:"age_scale"`
	RecommendationScale  float64 `yaml:"recommendation_scale" mapstructure:"recommendation_scale" json:"recommendation_scale"`
	MaxAgeConfidence     float64 `yaml:"max_age_confidence" mapstructure:"max_age_confidence" json:"max_age_confidence"`
	MaxRecConfidence     float64 `yaml:"max_recommendation_confidence" mapstructure:"max_recommendation_confidence" json:"max_recommendation_confidence"`
	NullAgePenalty       float64 `yaml:"null_age_penalty" mapstructure:"null_age_penalty" json:"null_age_penalty"`
	LowAntlerInfoPenalty float64 `yaml:"low_antler_info_penalty" mapstructure:"low_antler_info_penalty" json:"low_antler_info_penalty"`
	UnknownSexPenalty    float64 `yaml:"unknown_sex_penalty" mapstructure:"unknown_sex_penalty" json:"unknown_sex_penalty"`
}

// DefaultConfig returns the production tuning. Raw model confidence is
// systematically overconfident for age, hence the aggressive 0.75 scale.
func DefaultConfig() Config {
	return Config{
		AgeScale:             0.75,
		RecommendationScale:  0.95,
		MaxAgeConfidence:     0.85,
		MaxRecConfidence:     0.95,
		NullAgePenalty:       0.4,
		LowAntlerInfoPenalty: 0.1,
		UnknownSexPenalty:    0.05,
	}
}

// Input carries the raw model output fields the heuristics inspect.
type Input struct {
	RawConfidence     float64 // 0-100 scale
	PredictedAge      *float64
	Recommendation    *string
	DeerSex           *string
	AntlerPoints      *int
	AntlerPointsLeft  *int
	AntlerPointsRight *int
}

func (in Input) ageMissing() bool {
	return in.PredictedAge == nil || *in.PredictedAge == 0
}

func (in Input) antlerDetailIncomplete() bool {
	return in.AntlerPoints == nil || in.AntlerPointsLeft == nil || in.AntlerPointsRight == nil
}

func (in Input) sexUnknown() bool {
	return in.DeerSex == nil || strings.EqualFold(*in.DeerSex, "unknown")
}

// AgeConfidence computes the calibrated age confidence as a 0-1 value.
// Penalties apply multiplicatively for each unreliability signal, then the
// region difficulty multiplier, then the global cap.
func AgeConfidence(in Input, key region.Key, cfg Config) float64 {
	conf := clampRaw(in.RawConfidence) / 100.0 * cfg.AgeScale

	if in.ageMissing() {
		conf *= 1 - cfg.NullAgePenalty
	}
	if in.antlerDetailIncomplete() {
		conf *= 1 - cfg.LowAntlerInfoPenalty
	}
	if in.sexUnknown() {
		conf *= 1 - cfg.UnknownSexPenalty
	}

	conf *= region.DifficultyMultiplier(key)

	conf = math.Min(conf, cfg.MaxAgeConfidence)
	return math.Max(0, conf)
}

// RecommendationConfidence computes the calibrated recommendation confidence
// as a 0-1 value. The recommendation is a binary decision over multiple
// signals and holds up better across regions, so no region multiplier applies.
func RecommendationConfidence(in Input, cfg Config) float64 {
	conf := clampRaw(in.RawConfidence) / 100.0 * cfg.RecommendationScale

	if in.ageMissing() {
		conf *= 0.90
	}
	if in.Recommendation == nil {
		conf *= 0.5
	}

	conf = math.Min(conf, cfg.MaxRecConfidence)
	return math.Max(0, conf)
}

// Gate applies the region uncertainty threshold: a below-threshold age
// confidence suppresses the point estimate entirely, trading recall for
// precision. Returns (ageUncertain, adjustedAge).
func Gate(ageConfidence float64, key region.Key, predictedAge *float64) (bool, *float64) {
	if ageConfidence < region.UncertaintyThreshold(key) {
		return true, nil
	}
	return false, predictedAge
}

func clampRaw(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
