// Package jobs implements the batch jobs of the calibration engine:
// recalibration, curve building, curve activation, drift detection, region
// maturity scoring, and model recommendations. Jobs never crash the caller;
// per-record failures are collected into the result's Errors slice.
package jobs

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/calibration-engine/internal/calibrate"
	"github.com/sells-group/calibration-engine/internal/curve"
	"github.com/sells-group/calibration-engine/internal/heuristic"
	"github.com/sells-group/calibration-engine/internal/store"
	"github.com/sells-group/calibration-engine/internal/trust"
)

// Lock names, one per job family. Jobs holding different locks may overlap.
const (
	LockRecalibration  = "recalibration"
	LockCurveBuild     = "curve_build"
	LockDriftDetection = "drift_detection"
	LockMaturity       = "maturity_scoring"
	LockRecommendation = "model_recommendation"
)

// monitoringDisabled is the single error-list entry a monitoring job returns
// when the monitoring switch is off. A disabled run is a result, not an error.
const monitoringDisabled = "monitoring is not enabled"

// DriftConfig holds the drift detector thresholds and the default window.
type DriftConfig struct {
	WarningThreshold       float64 `yaml:"warning_threshold" mapstructure:"warning_threshold" json:"warning_threshold"`
	CriticalThreshold      float64 `yaml:"critical_threshold" mapstructure:"critical_threshold" json:"critical_threshold"`
	MinSamples             int     `yaml:"min_samples" mapstructure:"min_samples" json:"min_samples"`
	WindowDays             int     `yaml:"window_days" mapstructure:"window_days" json:"window_days"`
	AgeBaseline            float64 `yaml:"age_baseline" mapstructure:"age_baseline" json:"age_baseline"`
	RecommendationBaseline float64 `yaml:"recommendation_baseline" mapstructure:"recommendation_baseline" json:"recommendation_baseline"`
}

// DefaultDriftConfig returns the standard drift tuning. The baselines are the
// expected accuracies used when no active curve covers a group. A run looks at
// one trailing window; 60 and 90 days are the usual alternatives to the
// 30-day default.
func DefaultDriftConfig() DriftConfig {
	return DriftConfig{
		WarningThreshold:       0.08,
		CriticalThreshold:      0.12,
		MinSamples:             50,
		WindowDays:             30,
		AgeBaseline:            0.70,
		RecommendationBaseline: 0.85,
	}
}

// MaturityConfig holds the region maturity grading thresholds.
type MaturityConfig struct {
	MediumSamples       int     `yaml:"medium_samples" mapstructure:"medium_samples" json:"medium_samples"`
	HighSamples         int     `yaml:"high_samples" mapstructure:"high_samples" json:"high_samples"`
	StabilityWindowDays int     `yaml:"stability_window_days" mapstructure:"stability_window_days" json:"stability_window_days"`
	ExpertBonus         float64 `yaml:"expert_bonus" mapstructure:"expert_bonus" json:"expert_bonus"`
}

// DefaultMaturityConfig returns the standard maturity grading.
func DefaultMaturityConfig() MaturityConfig {
	return MaturityConfig{
		MediumSamples:       300,
		HighSamples:         500,
		StabilityWindowDays: 90,
		ExpertBonus:         0.10,
	}
}

// Runner executes batch jobs against a store. Now is injectable for tests and
// defaults to time.Now. MonitoringEnabled gates the monitoring jobs (drift,
// maturity, recommendations); with it off those jobs report "not enabled"
// instead of running, so the engine can ship with monitoring dark.
type Runner struct {
	Store             store.Store
	Locks             Locker
	Heuristic         heuristic.Config
	Builder           curve.BuilderConfig
	Drift             DriftConfig
	Maturity          MaturityConfig
	Trust             trust.Weights
	Flags             calibrate.Flags
	MonitoringEnabled bool
	BatchSize         int
	MaxScans          int
	Now               func() time.Time
}

// NewRunner creates a Runner with every feature on around the given store.
// The config layer applies the actual switch settings, monitoring off among
// them by default.
func NewRunner(st store.Store) *Runner {
	return &Runner{
		Store:             st,
		Locks:             NewLockManager(),
		Heuristic:         heuristic.DefaultConfig(),
		Builder:           curve.DefaultBuilderConfig(),
		Drift:             DefaultDriftConfig(),
		Maturity:          DefaultMaturityConfig(),
		Trust:             trust.DefaultWeights(),
		Flags:             calibrate.Flags{Enabled: true, RegionEnabled: true, CurvesEnabled: true},
		MonitoringEnabled: true,
		BatchSize:         100,
		MaxScans:          1_000_000,
		Now:               time.Now,
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// guarded runs fn under a job lock and converts panics into errors, so a bad
// record can never take down the process or leave the lock held.
func (r *Runner) guarded(lockName string, fn func() error) (err error) {
	if !r.Locks.Acquire(lockName) {
		return eris.Errorf("jobs: %s is already running", lockName)
	}
	defer r.Locks.Release(lockName)
	defer func() {
		if p := recover(); p != nil {
			err = eris.Errorf("jobs: %s panicked: %v", lockName, p)
		}
	}()
	return fn()
}
