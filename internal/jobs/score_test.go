package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/calibration-engine/internal/calibrate"
	"github.com/sells-group/calibration-engine/internal/model"
	"github.com/sells-group/calibration-engine/internal/region"
)

func TestCalibrateScan_PersistFlagControlsWriteback(t *testing.T) {
	f := newFakeStore()
	f.scans = append(f.scans, scanFixture("scan-001", "WI"))
	r := newTestRunner(f)

	res, err := r.CalibrateScan(context.Background(), "scan-001", false)
	require.NoError(t, err)
	assert.Equal(t, 68, res.AgeConfidence)
	assert.Equal(t, calibrate.StrategyHeuristicRegion, res.Strategy)
	assert.Zero(t, f.updateCalls, "read-only scoring must not write")

	_, err = r.CalibrateScan(context.Background(), "scan-001", true)
	require.NoError(t, err)
	assert.Equal(t, 1, f.updateCalls)
	assert.Equal(t, 68, f.scans[0].AgeConfidence)
	assert.Equal(t, calibrate.HeuristicVersion, f.scans[0].CalibrationVersion)
}

func TestCalibrateScan_MissingScan(t *testing.T) {
	f := newFakeStore()
	r := newTestRunner(f)

	_, err := r.CalibrateScan(context.Background(), "nope", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan not found")
}

func TestCalibrateInput_WhatIfScoring(t *testing.T) {
	f := newFakeStore()
	r := newTestRunner(f)

	res, err := r.CalibrateInput(context.Background(), calibrate.Input{
		RawConfidence:  90,
		ScanState:      "TX",
		PredictedAge:   f64(4.5),
		Recommendation: str("HARVEST"),
		DeerSex:        str("male"),
		AntlerPoints:   intPtr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, region.SouthTexas, res.Region.Key)
	assert.Equal(t, calibrate.StrategyHeuristicRegion, res.Strategy)
	assert.Zero(t, f.updateCalls)
}

func TestSnapshot_AssemblesState(t *testing.T) {
	f := newFakeStore()
	seedScans(f, 4)
	active := curveFixture("c1", model.CurveGlobalAge, "", 900, 500)
	active.IsActive = true
	f.curves["c1"] = active
	f.curves["c2"] = curveFixture("c2", model.CurveGlobalAge, "", 100, 500)
	f.drift = []model.DriftEvent{
		driftEvent("midwest", model.DriftCritical, -0.15, 5),
		driftEvent("midwest", model.DriftWarning, -0.09, 45), // outside the window
	}
	f.maturity["midwest"] = model.RegionMaturity{RegionKey: "midwest", MaturityLevel: model.MaturityMedium}
	r := newTestRunner(f)
	require.True(t, r.Locks.Acquire(LockRecalibration))
	defer r.Locks.Release(LockRecalibration)

	st, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, st.Scans)
	require.Len(t, st.ActiveCurves, 1)
	assert.Equal(t, "c1", st.ActiveCurves[0].ID)
	assert.True(t, st.ActiveCurves[0].Mature)
	assert.Equal(t, 1, st.RecentDrift.TotalEvents)
	assert.Equal(t, 1, st.RecentDrift.CriticalEvents)
	require.Len(t, st.RegionMaturity, 1)
	assert.Equal(t, testNow, st.GeneratedAt)

	assert.True(t, st.MonitoringEnabled)
	assert.Equal(t, []string{LockRecalibration}, st.RunningJobs)
	assert.Equal(t, 50, st.Config.Drift.MinSamples)
	assert.Equal(t, 30, st.Config.Drift.WindowDays)
	assert.InDelta(t, 0.75, st.Config.Heuristic.AgeScale, 1e-9)
	assert.InDelta(t, 0.9, st.Config.Trust["expert"], 1e-9)
	assert.Equal(t, 1_000_000, st.Config.MaxScans)
}
