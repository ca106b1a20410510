package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/calibration-engine/internal/calibrate"
	"github.com/sells-group/calibration-engine/internal/model"
)

func f64(v float64) *float64 { return &v }
func str(s string) *string   { return &s }
func intPtr(v int) *int      { return &v }
func boolPtr(b bool) *bool   { return &b }

var testNow = time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

func newTestRunner(f *fakeStore) *Runner {
	r := NewRunner(f)
	r.Now = func() time.Time { return testNow }
	return r
}

func scanFixture(id, state string) model.Scan {
	return model.Scan{
		ID:                id,
		RegionKey:         "midwest",
		RegionState:       &state,
		RawConfidence:     90,
		PredictedAge:      f64(4.5),
		Recommendation:    str("HARVEST"),
		DeerSex:           str("male"),
		AntlerPoints:      intPtr(10),
		AntlerPointsLeft:  intPtr(5),
		AntlerPointsRight: intPtr(5),
		CreatedAt:         testNow.AddDate(0, 0, -1),
	}
}

func seedScans(f *fakeStore, n int) {
	for i := 0; i < n; i++ {
		f.scans = append(f.scans, scanFixture(fmt.Sprintf("scan-%03d", i), "WI"))
	}
}

func TestRecalibrate_UpdatesThenIdempotent(t *testing.T) {
	f := newFakeStore()
	seedScans(f, 5)
	r := newTestRunner(f)

	result, err := r.Recalibrate(context.Background(), RecalibrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, result.ScansProcessed)
	assert.Equal(t, 5, result.ScansUpdated)
	assert.Zero(t, result.ScansSkipped)
	assert.Zero(t, result.ScansFailed)

	// Every scan now carries the heuristic output.
	for _, sc := range f.scans {
		assert.Equal(t, 68, sc.AgeConfidence)
		assert.Equal(t, calibrate.HeuristicVersion, sc.CalibrationVersion)
		assert.Equal(t, string(calibrate.StrategyHeuristicRegion), sc.CalibrationStrategy)
	}

	// A second pass over unchanged data writes nothing.
	result, err = r.Recalibrate(context.Background(), RecalibrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, result.ScansProcessed)
	assert.Zero(t, result.ScansUpdated)
	assert.Equal(t, 5, result.ScansSkipped)
}

func TestRecalibrate_BatchesAcrossPages(t *testing.T) {
	f := newFakeStore()
	seedScans(f, 7)
	r := newTestRunner(f)
	r.BatchSize = 2

	result, err := r.Recalibrate(context.Background(), RecalibrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 7, result.ScansProcessed)
	assert.Equal(t, 7, result.ScansUpdated)
}

func TestRecalibrate_LimitCapsWork(t *testing.T) {
	f := newFakeStore()
	seedScans(f, 10)
	r := newTestRunner(f)

	result, err := r.Recalibrate(context.Background(), RecalibrateOptions{Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, result.ScansProcessed)
	assert.Empty(t, result.Errors, "an operator-chosen limit is not an error")
}

func TestRecalibrate_SafetyCapReportsPendingScans(t *testing.T) {
	f := newFakeStore()
	seedScans(f, 6)
	r := newTestRunner(f)
	r.MaxScans = 5

	result, err := r.Recalibrate(context.Background(), RecalibrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, result.ScansProcessed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "safety limit reached")

	// A cap that exactly fits the backlog leaves nothing pending.
	f2 := newFakeStore()
	seedScans(f2, 5)
	r2 := newTestRunner(f2)
	r2.MaxScans = 5

	result, err = r2.Recalibrate(context.Background(), RecalibrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, result.ScansProcessed)
	assert.Empty(t, result.Errors)
}

func TestRecalibrate_PerScanFailureContinues(t *testing.T) {
	f := newFakeStore()
	seedScans(f, 3)
	f.failScanIDs["scan-001"] = true
	r := newTestRunner(f)

	result, err := r.Recalibrate(context.Background(), RecalibrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.ScansProcessed)
	assert.Equal(t, 2, result.ScansUpdated)
	assert.Equal(t, 1, result.ScansFailed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "scan-001")
}

func TestRecalibrate_DryRunWritesNothing(t *testing.T) {
	f := newFakeStore()
	seedScans(f, 3)
	r := newTestRunner(f)

	result, err := r.Recalibrate(context.Background(), RecalibrateOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 3, result.ScansUpdated)
	assert.True(t, result.DryRun)
	assert.Zero(t, f.updateCalls)
}

func TestRecalibrate_LockContention(t *testing.T) {
	f := newFakeStore()
	seedScans(f, 1)
	r := newTestRunner(f)

	require.True(t, r.Locks.Acquire(LockRecalibration))
	defer r.Locks.Release(LockRecalibration)

	_, err := r.Recalibrate(context.Background(), RecalibrateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestRecalibrate_RegionFilter(t *testing.T) {
	f := newFakeStore()
	seedScans(f, 2)
	tx := scanFixture("scan-tx", "TX")
	tx.RegionKey = "south_texas"
	f.scans = append(f.scans, tx)
	r := newTestRunner(f)

	result, err := r.Recalibrate(context.Background(), RecalibrateOptions{RegionKey: "south_texas"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ScansProcessed)
}
