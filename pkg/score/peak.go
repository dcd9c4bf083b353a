package score

import (
	"math"
	"sort"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
	"github.com/ChrisMcGann/RamanKey/pkg/peaks"
)

// Peak score weights: match ratio vs intensity similarity.
const (
	detectedRatioWeight = 0.7
	callerRatioWeight   = 0.8
	callerBonusRatio    = 0.8
	callerBonus         = 1.1
)

// PeakMatch compares reference peaks against the peaks re-detected on
// candidate at heightPercent of its maximum. Manual reference peaks are
// trusted for position more than intensity.
func PeakMatch(reference core.PeakSet, candidate core.Spectrum, tolerance, heightPercent float64) float64 {
	c, err := prepare(candidate)
	if err != nil || tolerance <= 0 {
		return 0
	}
	return clamp01(matchPeaks(reference, candidatePeaks(c.spectrum, heightPercent), tolerance,
		reference.Provenance == core.PeaksManual))
}

// candidatePeaks detects every local maximum above heightPercent of the
// candidate's maximum.
func candidatePeaks(s core.Spectrum, heightPercent float64) core.PeakSet {
	height := heightPercent / 100 * s.MaxIntensity()
	return core.DetectedPeakSet(s, peaks.Detect(s.Intensities, height, 1, 0))
}

// matchPeaks pairs every reference peak with its nearest candidate peak and
// blends the fraction matched within tolerance with the intensity
// similarity of the matched pairs.
func matchPeaks(ref, cand core.PeakSet, tolerance float64, caller bool) float64 {
	if ref.Len() == 0 || cand.Len() == 0 {
		return 0
	}

	refMax := maxOf(ref.Intensities)
	candMax := maxOf(cand.Intensities)
	haveIntensities := len(ref.Intensities) == ref.Len() && refMax > 0 && candMax > 0

	matched := 0
	simSum := 0.0
	for i, pos := range ref.Positions {
		j := nearest(cand.Positions, pos)
		if math.Abs(cand.Positions[j]-pos) > tolerance {
			continue
		}
		matched++
		if haveIntensities {
			simSum += ratio(ref.Intensities[i]/refMax, cand.Intensities[j]/candMax)
		}
	}
	if matched == 0 {
		return 0
	}

	matchRatio := float64(matched) / float64(ref.Len())
	score := matchRatio
	if haveIntensities {
		w := detectedRatioWeight
		if caller {
			w = callerRatioWeight
		}
		score = w*matchRatio + (1-w)*simSum/float64(matched)
	}
	if caller && matchRatio >= callerBonusRatio {
		score = math.Min(score*callerBonus, 1)
	}
	return score
}

// nearest returns the index of the value in sorted closest to x.
func nearest(sorted []float64, x float64) int {
	i := sort.SearchFloat64s(sorted, x)
	switch {
	case i == 0:
		return 0
	case i == len(sorted):
		return len(sorted) - 1
	case x-sorted[i-1] <= sorted[i]-x:
		return i - 1
	}
	return i
}

// ratio returns min/max of two non-negative values.
func ratio(a, b float64) float64 {
	a, b = math.Max(a, 0), math.Max(b, 0)
	hi := math.Max(a, b)
	if hi == 0 {
		return 0
	}
	return math.Min(a, b) / hi
}

func maxOf(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		m = math.Max(m, v)
	}
	return m
}
