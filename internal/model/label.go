package model

import "time"

// Label is a ground-truth observation for one scan. A scan may carry zero,
// one, or many labels.
type Label struct {
	ID                    string    `json:"id"`
	ScanID                string    `json:"scan_id"`
	TrustSource           string    `json:"trust_source"`
	AgeCorrect            *bool     `json:"age_correct,omitempty"`
	RecommendationCorrect *bool     `json:"recommendation_correct,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// LabeledScan is a scan joined with one of its labels, the unit of work for
// curve building, drift detection, and maturity scoring.
type LabeledScan struct {
	ScanID                string
	RegionKey             string
	CalibrationVersion    string
	RawConfidence         float64
	AgeConfidence         int
	RecConfidence         int
	TrustSource           string
	AgeCorrect            *bool
	RecommendationCorrect *bool
	ScanCreatedAt         time.Time
}

// Correct returns the correctness flag for the given axis.
func (l LabeledScan) Correct(axis ConfidenceType) *bool {
	if axis == ConfidenceAge {
		return l.AgeCorrect
	}
	return l.RecommendationCorrect
}
