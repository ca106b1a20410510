// Package curve builds and applies binned empirical calibration curves.
package curve

import (
	"fmt"
	"time"

	"github.com/sells-group/calibration-engine/internal/model"
)

// BinCount fixes the curve resolution: ten equal-width bins over 0-100.
const BinCount = 10

const binWidth = 100 / BinCount

// Index returns the bin index for a raw confidence value, clamped to [0,9].
func Index(rawConfidence float64) int {
	if rawConfidence < 0 {
		rawConfidence = 0
	}
	if rawConfidence > 100 {
		rawConfidence = 100
	}
	idx := int(rawConfidence) / binWidth
	if idx >= BinCount {
		idx = BinCount - 1
	}
	return idx
}

// Midpoint returns the fallback calibrated value for an under-sampled bin:
// the range midpoint on a 0-1 scale.
func Midpoint(binIdx int) float64 {
	lo := binIdx * binWidth
	hi := lo + binWidth
	return float64(lo+hi) / 200.0
}

// NewBins creates the empty ten-bin layout.
func NewBins() []model.Bin {
	bins := make([]model.Bin, BinCount)
	for i := range bins {
		bins[i] = model.Bin{
			MinConfidence:        i * binWidth,
			MaxConfidence:        (i + 1) * binWidth,
			CalibratedConfidence: Midpoint(i),
		}
	}
	return bins
}

// Apply maps a raw confidence value through a curve. When the selected bin
// carries at least binMinSamples observations its empirical value is used;
// otherwise the raw value passes through scaled to 0-1 and usedFallback is
// set. This function is the single bin-selection implementation shared by
// live scoring and the recalibration job.
func Apply(rawConfidence float64, c *model.CalibrationCurve, binMinSamples int) (float64, bool) {
	if c == nil || len(c.Bins) == 0 {
		return clamp01(rawConfidence / 100.0), true
	}

	idx := Index(rawConfidence)
	if idx < len(c.Bins) {
		b := c.Bins[idx]
		if b.SampleCount >= binMinSamples {
			return b.CalibratedConfidence, false
		}
	}
	return clamp01(rawConfidence / 100.0), true
}

// NewVersion stamps a curve generation. Each build run gets its own version;
// generations accumulate and are never merged.
func NewVersion(now time.Time) string {
	return fmt.Sprintf("v2-curve-%s", now.UTC().Format("20060102-150405"))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
