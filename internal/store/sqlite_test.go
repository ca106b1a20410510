package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/calibration-engine/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "calibration.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func insertTestScan(t *testing.T, st *SQLiteStore, id, regionKey string, created time.Time) {
	t.Helper()
	_, err := st.db.Exec(
		`INSERT INTO scans (id, region_key, region_source, region_state, raw_confidence, created_at)
		 VALUES (?, ?, 'scan_input', 'WI', 90, ?)`,
		id, regionKey, created,
	)
	require.NoError(t, err)
}

func TestSQLiteStore_ScanRoundTrip(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	insertTestScan(t, st, "scan-1", "midwest", created)

	sc, err := st.GetScan(ctx, "scan-1")
	require.NoError(t, err)
	require.NotNil(t, sc)
	assert.Equal(t, "midwest", sc.RegionKey)
	assert.Equal(t, 90.0, sc.RawConfidence)
	assert.Empty(t, sc.CalibrationVersion)

	reason := "region_curve_missing"
	err = st.UpdateScanCalibration(ctx, "scan-1", model.CalibrationFields{
		AgeConfidence:            72,
		RecommendationConfidence: 88,
		AgeUncertain:             true,
		CalibrationVersion:       "v2-curve-20260801-000000",
		CalibrationStrategy:      "curve_global",
		CalibrationFallback:      &reason,
	})
	require.NoError(t, err)

	sc, err = st.GetScan(ctx, "scan-1")
	require.NoError(t, err)
	assert.Equal(t, 72, sc.AgeConfidence)
	assert.Equal(t, 88, sc.RecommendationConfidence)
	assert.True(t, sc.AgeUncertain)
	require.NotNil(t, sc.CalibrationFallback)
	assert.Equal(t, reason, *sc.CalibrationFallback)

	missing, err := st.GetScan(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = st.UpdateScanCalibration(ctx, "ghost", model.CalibrationFields{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan not found")
}

func TestSQLiteStore_ListScansFilters(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	insertTestScan(t, st, "scan-1", "midwest", base)
	insertTestScan(t, st, "scan-2", "plains", base.Add(24*time.Hour))
	insertTestScan(t, st, "scan-3", "midwest", base.Add(48*time.Hour))

	scans, err := st.ListScans(ctx, ScanFilter{RegionKey: "midwest"})
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, "scan-1", scans[0].ID, "oldest first")

	scans, err = st.ListScans(ctx, ScanFilter{Since: base.Add(12 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, scans, 2)

	scans, err = st.ListScans(ctx, ScanFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, "scan-2", scans[0].ID)

	n, err := st.CountScans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteStore_LabeledScanJoin(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	created := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	insertTestScan(t, st, "scan-1", "midwest", created)

	_, err := st.db.Exec(
		`INSERT INTO scan_labels (id, scan_id, trust_source, age_correct, recommendation_correct, created_at)
		 VALUES ('l1', 'scan-1', 'expert', 1, NULL, ?), ('l2', 'scan-1', 'self_reported', 0, 1, ?)`,
		created, created,
	)
	require.NoError(t, err)

	labeled, err := st.ListLabeledScans(ctx, LabelFilter{})
	require.NoError(t, err)
	require.Len(t, labeled, 2, "one row per label, not per scan")

	assert.Equal(t, "expert", labeled[0].TrustSource)
	require.NotNil(t, labeled[0].AgeCorrect)
	assert.True(t, *labeled[0].AgeCorrect)
	assert.Nil(t, labeled[0].RecommendationCorrect)

	byRegion, err := st.ListLabeledScans(ctx, LabelFilter{RegionKey: "plains"})
	require.NoError(t, err)
	assert.Empty(t, byRegion)
}

func testCurveRecord(id string, ct model.CurveType, regionKey string) model.CalibrationCurve {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := model.CalibrationCurve{
		ID:                 id,
		CalibrationVersion: "v2-curve-20260801-000000",
		CurveType:          ct,
		Method:             "binning",
		Bins: []model.Bin{
			{MinConfidence: 0, MaxConfidence: 10, SampleCount: 30, CorrectCount: 20, CalibratedConfidence: 0.6667},
		},
		SampleCount:        30,
		MinSamplesRequired: 200,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if regionKey != "" {
		c.RegionKey = &regionKey
	}
	return c
}

func TestSQLiteStore_CurveLifecycle(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	err := st.InsertCurves(ctx, []model.CalibrationCurve{
		testCurveRecord("a", model.CurveRegionAge, "midwest"),
		testCurveRecord("b", model.CurveRegionAge, "midwest"),
		testCurveRecord("c", model.CurveGlobalAge, ""),
	})
	require.NoError(t, err)

	c, err := st.GetCurve(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.False(t, c.IsActive, "curves start inactive")
	require.Len(t, c.Bins, 1)
	assert.InDelta(t, 0.6667, c.Bins[0].CalibratedConfidence, 1e-9)

	require.NoError(t, st.ActivateCurve(ctx, "a"))
	require.NoError(t, st.ActivateCurve(ctx, "c"))

	lookup, err := st.ActiveCurves(ctx)
	require.NoError(t, err)
	assert.Len(t, lookup, 2)

	// Activating the sibling swaps it in atomically.
	require.NoError(t, st.ActivateCurve(ctx, "b"))
	lookup, err = st.ActiveCurves(ctx)
	require.NoError(t, err)
	require.Len(t, lookup, 2)
	rk := "midwest"
	assert.Equal(t, "b", lookup[model.CurveScope{Type: model.CurveRegionAge, RegionKey: rk}].ID)

	a, err := st.GetCurve(ctx, "a")
	require.NoError(t, err)
	assert.False(t, a.IsActive)

	err = st.ActivateCurve(ctx, "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "curve not found")

	require.NoError(t, st.DeactivateCurve(ctx, "b"))
	lookup, err = st.ActiveCurves(ctx)
	require.NoError(t, err)
	assert.Len(t, lookup, 1)
}

func TestSQLiteStore_DriftEventsSinceFilter(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	season := "off_season"
	n, err := st.InsertDriftEvents(ctx, []model.DriftEvent{
		{ID: "e1", RegionKey: "midwest", CalibrationVersion: "v2-region-heuristic",
			ConfidenceType: model.ConfidenceAge, ExpectedAccuracy: 0.70, ObservedAccuracy: 0.50,
			DriftPercentage: -0.20, Severity: model.DriftCritical, SampleSize: 60, WindowDays: 30,
			SeasonBucket: &season, CreatedAt: now.AddDate(0, 0, -5)},
		{ID: "e2", RegionKey: "plains", CalibrationVersion: "v2-region-heuristic",
			ConfidenceType: model.ConfidenceAge, ExpectedAccuracy: 0.70, ObservedAccuracy: 0.61,
			DriftPercentage: -0.09, Severity: model.DriftWarning, SampleSize: 55, WindowDays: 30,
			CreatedAt: now.AddDate(0, 0, -45)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	events, err := st.ListDriftEvents(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, model.DriftCritical, events[0].Severity)
	require.NotNil(t, events[0].SeasonBucket)
	assert.Equal(t, season, *events[0].SeasonBucket)
}

func TestSQLiteStore_RecommendationRoundTrip(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	rk := "midwest"
	n, err := st.InsertRecommendations(ctx, []model.ModelRecommendation{
		{ID: "r1", RegionKey: &rk, ConfidenceType: model.ConfidenceBoth,
			RecommendationType: model.RecommendRegionCurveUpdate,
			SupportingMetrics:  model.DriftCounts{TotalEvents: 4, CriticalEvents: 1, WarningEvents: 3, WindowDays: 30},
			Severity:           model.DriftCritical, CreatedAt: now},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recs, err := st.ListRecommendations(ctx, now.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.RecommendRegionCurveUpdate, recs[0].RecommendationType)
	assert.Equal(t, 3, recs[0].SupportingMetrics.WarningEvents)
	require.NotNil(t, recs[0].RegionKey)
	assert.Equal(t, "midwest", *recs[0].RegionKey)
}

func TestSQLiteStore_MaturityUpsert(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	m := model.RegionMaturity{
		RegionKey:                 "midwest",
		MaturityLevel:             model.MaturityMedium,
		LabeledSampleCount:        320,
		LabelSourceDiversityScore: 0.6,
		StabilityScore:            0.5,
		LastComputedAt:            now,
	}
	require.NoError(t, st.UpsertRegionMaturity(ctx, m))

	m.MaturityLevel = model.MaturityHigh
	m.LabeledSampleCount = 540
	require.NoError(t, st.UpsertRegionMaturity(ctx, m))

	out, err := st.ListRegionMaturity(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1, "upsert replaces, never duplicates")
	assert.Equal(t, model.MaturityHigh, out[0].MaturityLevel)
	assert.Equal(t, 540, out[0].LabeledSampleCount)
}
