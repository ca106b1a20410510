package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/calibration-engine/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func TestWeight(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name   string
		source string
		want   float64
	}{
		{"expert", "expert", 0.9},
		{"admin", "admin", 0.8},
		{"trusted user", "trusted_user", 0.7},
		{"self reported", "self_reported", 0.6},
		{"unknown", "unknown", 0.5},
		{"case insensitive", "Expert", 0.9},
		{"whitespace trimmed", " admin ", 0.8},
		{"unrecognized lands on lowest tier", "telepathy", 0.5},
		{"empty lands on lowest tier", "", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Weight(tt.source))
		})
	}
}

func TestWeightedAccuracy(t *testing.T) {
	w := DefaultWeights()

	t.Run("no qualifying labels", func(t *testing.T) {
		labels := []model.LabeledScan{
			{TrustSource: "expert"}, // no correctness flag on either axis
		}
		acc, n := WeightedAccuracy(labels, model.ConfidenceAge, w)
		assert.Zero(t, acc)
		assert.Zero(t, n)
	})

	t.Run("heavier sources pull the average", func(t *testing.T) {
		labels := []model.LabeledScan{
			{TrustSource: "expert", AgeCorrect: boolPtr(true)},        // weight 0.9
			{TrustSource: "self_reported", AgeCorrect: boolPtr(false)}, // weight 0.6
		}
		acc, n := WeightedAccuracy(labels, model.ConfidenceAge, w)
		assert.Equal(t, 2, n)
		assert.InDelta(t, 0.9/1.5, acc, 1e-9)
	})

	t.Run("axes are independent", func(t *testing.T) {
		labels := []model.LabeledScan{
			{TrustSource: "admin", AgeCorrect: boolPtr(true)},
			{TrustSource: "admin", RecommendationCorrect: boolPtr(false)},
		}

		acc, n := WeightedAccuracy(labels, model.ConfidenceAge, w)
		assert.Equal(t, 1, n)
		assert.InDelta(t, 1.0, acc, 1e-9)

		acc, n = WeightedAccuracy(labels, model.ConfidenceRecommendation, w)
		assert.Equal(t, 1, n)
		assert.Zero(t, acc)
	})

	t.Run("uniform weights reduce to plain accuracy", func(t *testing.T) {
		labels := []model.LabeledScan{
			{TrustSource: "expert", AgeCorrect: boolPtr(true)},
			{TrustSource: "expert", AgeCorrect: boolPtr(true)},
			{TrustSource: "expert", AgeCorrect: boolPtr(false)},
			{TrustSource: "expert", AgeCorrect: boolPtr(false)},
		}
		acc, n := WeightedAccuracy(labels, model.ConfidenceAge, w)
		assert.Equal(t, 4, n)
		assert.InDelta(t, 0.5, acc, 1e-9)
	})
}
