package store

import (
	"context"
	"time"

	"github.com/sells-group/calibration-engine/internal/model"
)

// ScanFilter specifies criteria for listing scans.
type ScanFilter struct {
	RegionKey string    `json:"region_key,omitempty"`
	Since     time.Time `json:"since,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
}

// LabelFilter specifies criteria for listing labeled scans.
type LabelFilter struct {
	RegionKey string    `json:"region_key,omitempty"`
	Since     time.Time `json:"since,omitempty"`
}

// CurveFilter specifies criteria for listing calibration curves.
type CurveFilter struct {
	Version    string `json:"version,omitempty"`
	ActiveOnly bool   `json:"active_only,omitempty"`
}

// Store defines the persistence interface for the calibration engine.
type Store interface {
	// Scans
	GetScan(ctx context.Context, scanID string) (*model.Scan, error)
	ListScans(ctx context.Context, filter ScanFilter) ([]model.Scan, error)
	CountScans(ctx context.Context) (int, error)
	UpdateScanCalibration(ctx context.Context, scanID string, fields model.CalibrationFields) error

	// Labeled scans (scan joined with ground-truth labels)
	ListLabeledScans(ctx context.Context, filter LabelFilter) ([]model.LabeledScan, error)

	// Calibration curves
	InsertCurves(ctx context.Context, curves []model.CalibrationCurve) error
	GetCurve(ctx context.Context, curveID string) (*model.CalibrationCurve, error)
	ListCurves(ctx context.Context, filter CurveFilter) ([]model.CalibrationCurve, error)
	ActiveCurves(ctx context.Context) (model.CurveLookup, error)
	ActivateCurve(ctx context.Context, curveID string) error
	DeactivateCurve(ctx context.Context, curveID string) error

	// Drift events (append-only)
	InsertDriftEvents(ctx context.Context, events []model.DriftEvent) (int, error)
	ListDriftEvents(ctx context.Context, since time.Time) ([]model.DriftEvent, error)

	// Region maturity (one row per region, upserted)
	UpsertRegionMaturity(ctx context.Context, m model.RegionMaturity) error
	ListRegionMaturity(ctx context.Context) ([]model.RegionMaturity, error)

	// Model recommendations (append-only)
	InsertRecommendations(ctx context.Context, recs []model.ModelRecommendation) (int, error)
	ListRecommendations(ctx context.Context, since time.Time) ([]model.ModelRecommendation, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
