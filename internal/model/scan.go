// Package model defines the domain records shared across the calibration engine.
package model

import "time"

// Recommendation values produced by the upstream classifier.
const (
	RecommendationHarvest = "HARVEST"
	RecommendationPass    = "PASS"
)

// ConfidenceType identifies which confidence axis a record refers to.
type ConfidenceType string

const (
	ConfidenceAge            ConfidenceType = "age"
	ConfidenceRecommendation ConfidenceType = "recommendation"
	ConfidenceBoth           ConfidenceType = "both"
)

// Scan is a single classifier output with its calibration fields.
// The upstream vision model and transport layer own creation; the engine
// reads scans and writes back the calibration_* fields.
type Scan struct {
	ID            string `json:"id"`
	RegionKey     string `json:"region_key"`
	RegionSource  string `json:"region_source"`
	RegionState   *string `json:"region_state,omitempty"`
	RawConfidence float64 `json:"raw_confidence"`

	// Raw model output.
	PredictedAge      *float64 `json:"predicted_age,omitempty"`
	Recommendation    *string  `json:"recommendation,omitempty"`
	DeerSex           *string  `json:"deer_sex,omitempty"`
	AntlerPoints      *int     `json:"antler_points,omitempty"`
	AntlerPointsLeft  *int     `json:"antler_points_left,omitempty"`
	AntlerPointsRight *int     `json:"antler_points_right,omitempty"`

	// Raw per-axis confidences, when the model supplies them separately.
	RawAgeConfidence            *int `json:"raw_age_confidence,omitempty"`
	RawRecommendationConfidence *int `json:"raw_recommendation_confidence,omitempty"`

	// Calibration output fields, written back by the engine.
	AgeConfidence            int     `json:"age_confidence"`
	RecommendationConfidence int     `json:"recommendation_confidence"`
	AgeUncertain             bool    `json:"age_uncertain"`
	AdjustedAge              *float64 `json:"adjusted_age,omitempty"`
	CalibrationVersion       string  `json:"calibration_version"`
	CalibrationStrategy      string  `json:"calibration_strategy"`
	CalibrationFallback      *string `json:"calibration_fallback_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// CalibrationFields is the write-back subset of Scan owned by the engine.
type CalibrationFields struct {
	AgeConfidence            int
	RecommendationConfidence int
	AgeUncertain             bool
	AdjustedAge              *float64
	CalibrationVersion       string
	CalibrationStrategy      string
	CalibrationFallback      *string
}

// Unchanged reports whether applying f to s would be a no-op on the three
// fields the recalibration job keys idempotence on.
func (f CalibrationFields) Unchanged(s *Scan) bool {
	return s.AgeConfidence == f.AgeConfidence &&
		s.RecommendationConfidence == f.RecommendationConfidence &&
		s.AgeUncertain == f.AgeUncertain
}
