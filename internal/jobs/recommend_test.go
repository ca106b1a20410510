package jobs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/calibration-engine/internal/model"
)

func driftEvent(regionKey string, severity model.DriftSeverity, drift float64, ageDays int) model.DriftEvent {
	return model.DriftEvent{
		ID:              uuid.New().String(),
		RegionKey:       regionKey,
		ConfidenceType:  model.ConfidenceAge,
		DriftPercentage: drift,
		Severity:        severity,
		CreatedAt:       testNow.AddDate(0, 0, -ageDays),
	}
}

func TestRecommend_MonitoringDisabled(t *testing.T) {
	f := newFakeStore()
	f.drift = []model.DriftEvent{
		driftEvent("midwest", model.DriftCritical, -0.15, 5),
	}
	r := newTestRunner(f)
	r.MonitoringEnabled = false

	result, err := r.Recommend(context.Background(), RecommendOptions{})
	require.NoError(t, err, "a disabled run is a result, not an error")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not enabled")
	assert.Zero(t, result.RecommendationsCreated)
	assert.Empty(t, f.recs)
}

func TestRecommend_WidespreadCriticalsAskForInvestigation(t *testing.T) {
	f := newFakeStore()
	f.drift = []model.DriftEvent{
		driftEvent("midwest", model.DriftCritical, -0.15, 5),
		driftEvent("plains", model.DriftCritical, -0.14, 10),
		driftEvent("southeast", model.DriftCritical, -0.13, 15),
	}
	r := newTestRunner(f)

	result, err := r.Recommend(context.Background(), RecommendOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.EventsEvaluated)

	// One global record plus one per drifting region.
	require.Equal(t, 4, result.RecommendationsCreated)

	global := result.Recommendations[0]
	assert.Nil(t, global.RegionKey)
	assert.Equal(t, model.RecommendInvestigateData, global.RecommendationType)
	assert.Equal(t, model.DriftCritical, global.Severity)
	assert.Equal(t, model.ConfidenceBoth, global.ConfidenceType)
	assert.Equal(t, 3, global.SupportingMetrics.CriticalEvents)

	for _, rec := range result.Recommendations[1:] {
		require.NotNil(t, rec.RegionKey)
		assert.Equal(t, model.RecommendRegionCurveUpdate, rec.RecommendationType)
		assert.Equal(t, model.DriftCritical, rec.Severity)
	}

	assert.Len(t, f.recs, 4)
}

func TestRecommend_SingleCriticalAsksForRebuild(t *testing.T) {
	f := newFakeStore()
	f.drift = []model.DriftEvent{
		driftEvent("midwest", model.DriftCritical, -0.13, 5),
	}
	r := newTestRunner(f)

	result, err := r.Recommend(context.Background(), RecommendOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Recommendations)

	global := result.Recommendations[0]
	assert.Equal(t, model.RecommendRebuildCalibration, global.RecommendationType)
	assert.Equal(t, model.DriftWarning, global.Severity)
}

func TestRecommend_WarningsAccumulateToRebuild(t *testing.T) {
	f := newFakeStore()
	for i := 0; i < 5; i++ {
		f.drift = append(f.drift, driftEvent("midwest", model.DriftWarning, -0.09, i+1))
	}
	r := newTestRunner(f)

	result, err := r.Recommend(context.Background(), RecommendOptions{})
	require.NoError(t, err)

	// Global rebuild plus a region update: five warnings clear both bars.
	require.Equal(t, 2, result.RecommendationsCreated)
	assert.Equal(t, model.RecommendRebuildCalibration, result.Recommendations[0].RecommendationType)
	region := result.Recommendations[1]
	require.NotNil(t, region.RegionKey)
	assert.Equal(t, "midwest", *region.RegionKey)
	assert.Equal(t, model.RecommendRegionCurveUpdate, region.RecommendationType)
	assert.Equal(t, model.DriftWarning, region.Severity)
}

func TestRecommend_RegionRuleWithoutGlobalRule(t *testing.T) {
	f := newFakeStore()
	// Three warnings in one region, but under the five needed globally.
	for i := 0; i < 3; i++ {
		f.drift = append(f.drift, driftEvent("south_texas", model.DriftWarning, -0.10, i+1))
	}
	r := newTestRunner(f)

	result, err := r.Recommend(context.Background(), RecommendOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, result.RecommendationsCreated)

	rec := result.Recommendations[0]
	require.NotNil(t, rec.RegionKey)
	assert.Equal(t, "south_texas", *rec.RegionKey)
	assert.Equal(t, model.RecommendRegionCurveUpdate, rec.RecommendationType)
}

func TestRecommend_UnknownRegionNeverGetsCurveAdvice(t *testing.T) {
	f := newFakeStore()
	for i := 0; i < 5; i++ {
		f.drift = append(f.drift, driftEvent("unknown", model.DriftWarning, -0.10, i+1))
	}
	r := newTestRunner(f)

	result, err := r.Recommend(context.Background(), RecommendOptions{})
	require.NoError(t, err)
	// The warnings still count toward the global rebuild rule, just not
	// toward a region curve update.
	require.Equal(t, 1, result.RecommendationsCreated)
	rec := result.Recommendations[0]
	assert.Nil(t, rec.RegionKey)
	assert.Equal(t, model.RecommendRebuildCalibration, rec.RecommendationType)
}

func TestRecommend_StaleEventsOutsideWindowIgnored(t *testing.T) {
	f := newFakeStore()
	f.drift = []model.DriftEvent{
		driftEvent("midwest", model.DriftCritical, -0.15, 45),
		driftEvent("plains", model.DriftCritical, -0.14, 60),
	}
	r := newTestRunner(f)

	result, err := r.Recommend(context.Background(), RecommendOptions{})
	require.NoError(t, err)
	assert.Zero(t, result.EventsEvaluated)
	assert.Zero(t, result.RecommendationsCreated)
}

func TestRecommend_DryRunPersistsNothing(t *testing.T) {
	f := newFakeStore()
	f.drift = []model.DriftEvent{
		driftEvent("midwest", model.DriftCritical, -0.15, 5),
	}
	r := newTestRunner(f)

	result, err := r.Recommend(context.Background(), RecommendOptions{DryRun: true})
	require.NoError(t, err)
	assert.NotZero(t, result.RecommendationsCreated)
	assert.Empty(t, f.recs)
}
