package model

import "time"

// CurveType identifies the axis and scope of a calibration curve.
type CurveType string

const (
	CurveGlobalAge            CurveType = "global_age"
	CurveGlobalRecommendation CurveType = "global_recommendation"
	CurveRegionAge            CurveType = "region_age"
	CurveRegionRecommendation CurveType = "region_recommendation"
)

// CurveScope identifies the single-active-curve invariant unit: one curve
// type plus an optional region. RegionKey is empty for global scopes.
type CurveScope struct {
	Type      CurveType
	RegionKey string
}

// Bin is one confidence sub-range [Min, Max) of a calibration curve.
type Bin struct {
	MinConfidence        int     `json:"min_confidence"`
	MaxConfidence        int     `json:"max_confidence"`
	SampleCount          int     `json:"sample_count"`
	CorrectCount         int     `json:"correct_count"`
	CalibratedConfidence float64 `json:"calibrated_confidence"`
}

// CalibrationCurve is a versioned empirical curve of 10 ordered bins.
// Curves are created inactive and only transition to active through the
// explicit human-gated activation path; prior generations are deactivated,
// never deleted.
type CalibrationCurve struct {
	ID                 string    `json:"id"`
	CalibrationVersion string    `json:"calibration_version"`
	CurveType          CurveType `json:"curve_type"`
	RegionKey          *string   `json:"region_key,omitempty"`
	Method             string    `json:"method"`
	Bins               []Bin     `json:"bins"`
	SampleCount        int       `json:"sample_count"`
	MinSamplesRequired int       `json:"min_samples_required"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Scope returns the activation scope for the curve.
func (c *CalibrationCurve) Scope() CurveScope {
	s := CurveScope{Type: c.CurveType}
	if c.RegionKey != nil {
		s.RegionKey = *c.RegionKey
	}
	return s
}

// IsMature reports whether the curve has reached its sample-size gate.
func (c *CalibrationCurve) IsMature() bool {
	return c.SampleCount >= c.MinSamplesRequired
}

// CurveLookup maps activation scopes to their single active curve.
type CurveLookup map[CurveScope]*CalibrationCurve
