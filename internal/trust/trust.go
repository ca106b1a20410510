// Package trust assigns credibility weights to label sources and computes
// trust-weighted accuracy over labeled scans.
package trust

import (
	"strings"

	"github.com/sells-group/calibration-engine/internal/model"
)

// Known label sources, strongest first.
const (
	SourceExpert       = "expert"
	SourceAdmin        = "admin"
	SourceTrustedUser  = "trusted_user"
	SourceSelfReported = "self_reported"
	SourceUnknown      = "unknown"
)

// Weights maps a label source to its credibility weight in [0,1].
type Weights map[string]float64

// DefaultWeights returns the standard trust tier table.
func DefaultWeights() Weights {
	return Weights{
		SourceExpert:       0.9,
		SourceAdmin:        0.8,
		SourceTrustedUser:  0.7,
		SourceSelfReported: 0.6,
		SourceUnknown:      0.5,
	}
}

// Weight looks up the weight for a source, case-insensitively. Missing or
// unrecognized sources land on the lowest tier.
func (w Weights) Weight(source string) float64 {
	if source != "" {
		if v, ok := w[strings.ToLower(strings.TrimSpace(source))]; ok {
			return v
		}
	}
	if v, ok := w[SourceUnknown]; ok {
		return v
	}
	return 0.5
}

// Sources returns the number of distinct trust tiers in the table.
func (w Weights) Sources() int { return len(w) }

// WeightedAccuracy computes Σ(correct·weight)/Σ(weight) over the labels whose
// correctness flag for the given axis is set, along with how many labels
// qualified. Callers must gate on the count: (0, 0) means no label qualified,
// and the accuracy value carries no information.
func WeightedAccuracy(labels []model.LabeledScan, axis model.ConfidenceType, w Weights) (float64, int) {
	var totalWeight, weightedCorrect float64
	var n int

	for _, l := range labels {
		correct := l.Correct(axis)
		if correct == nil {
			continue
		}
		weight := w.Weight(l.TrustSource)
		totalWeight += weight
		if *correct {
			weightedCorrect += weight
		}
		n++
	}

	if totalWeight == 0 {
		return 0.0, 0
	}
	return weightedCorrect / totalWeight, n
}
