package model

import "time"

// DriftSeverity classifies how far observed accuracy has moved from the
// curve-implied expectation.
type DriftSeverity string

const (
	DriftNone     DriftSeverity = "none"
	DriftWarning  DriftSeverity = "warning"
	DriftCritical DriftSeverity = "critical"
)

// DriftEvent is an append-only observation of calibration drift for one
// (region, calibration version, season) group and one confidence axis.
type DriftEvent struct {
	ID                 string         `json:"id"`
	RegionKey          string         `json:"region_key"`
	CalibrationVersion string         `json:"calibration_version"`
	ConfidenceType     ConfidenceType `json:"confidence_type"`
	ExpectedAccuracy   float64        `json:"expected_accuracy"`
	ObservedAccuracy   float64        `json:"observed_accuracy"`
	DriftPercentage    float64        `json:"drift_percentage"`
	Severity           DriftSeverity  `json:"severity"`
	SampleSize         int            `json:"sample_size"`
	WindowDays         int            `json:"window_days"`
	SeasonBucket       *string        `json:"season_bucket,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// MaturityLevel grades a region's labeled-data sufficiency.
type MaturityLevel string

const (
	MaturityLow    MaturityLevel = "low"
	MaturityMedium MaturityLevel = "medium"
	MaturityHigh   MaturityLevel = "high"
)

// RegionMaturity is the per-region data-sufficiency snapshot, upserted by
// region key on every maturity run.
type RegionMaturity struct {
	RegionKey                 string        `json:"region_key"`
	MaturityLevel             MaturityLevel `json:"maturity_level"`
	LabeledSampleCount        int           `json:"labeled_sample_count"`
	LabelSourceDiversityScore float64       `json:"label_source_diversity_score"`
	StabilityScore            float64       `json:"stability_score"`
	LastComputedAt            time.Time     `json:"last_computed_at"`
}

// RecommendationType names the advisory action a recommendation proposes.
type RecommendationType string

const (
	RecommendRebuildCalibration RecommendationType = "rebuild_calibration"
	RecommendInvestigateData    RecommendationType = "investigate_data"
	RecommendRegionCurveUpdate  RecommendationType = "region_curve_update"
)

// DriftCounts summarizes the drift events supporting a recommendation.
type DriftCounts struct {
	CriticalEvents  int     `json:"critical_events"`
	WarningEvents   int     `json:"warning_events"`
	TotalEvents     int     `json:"total_events"`
	AverageDriftAbs float64 `json:"average_drift_abs"`
	WindowDays      int     `json:"window_days"`
}

// ModelRecommendation is an append-only advisory record. The engine never
// acts on these; a human does.
type ModelRecommendation struct {
	ID                 string             `json:"id"`
	RegionKey          *string            `json:"region_key,omitempty"`
	ConfidenceType     ConfidenceType     `json:"confidence_type"`
	RecommendationType RecommendationType `json:"recommendation_type"`
	SupportingMetrics  DriftCounts        `json:"supporting_metrics"`
	Severity           DriftSeverity      `json:"severity"`
	CreatedAt          time.Time          `json:"created_at"`
}
