// Package peaks provides local-maximum peak detection on intensity arrays.
package peaks

import (
	"sort"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

// Params holds detection thresholds relative to the spectrum.
type Params struct {
	HeightPercent     float64 // minimum height as % of the maximum intensity
	Distance          int     // minimum separation in samples
	ProminencePercent float64 // minimum prominence as % of (max - min)
}

// DefaultParams returns the thresholds used when nothing else is configured.
func DefaultParams() Params {
	return Params{HeightPercent: 10, Distance: 10, ProminencePercent: 5}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if p.HeightPercent < 0 || p.HeightPercent > 100 {
		return core.NewConfigError("height percent", "must be within 0-100, got %.2f", p.HeightPercent)
	}
	if p.ProminencePercent < 0 || p.ProminencePercent > 100 {
		return core.NewConfigError("prominence percent", "must be within 0-100, got %.2f", p.ProminencePercent)
	}
	if p.Distance < 1 {
		return core.NewConfigError("distance", "must be at least 1 sample, got %d", p.Distance)
	}
	return nil
}

// Thresholds converts relative parameters into absolute thresholds for y.
func (p Params) Thresholds(y []float64) (height, prominence float64) {
	if len(y) == 0 {
		return 0, 0
	}
	lo, hi := y[0], y[0]
	for _, v := range y[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	height = p.HeightPercent / 100.0 * hi
	prominence = p.ProminencePercent / 100.0 * (hi - lo)
	return height, prominence
}

// DetectRelative runs Detect with thresholds derived from p.
func DetectRelative(y []float64, p Params) []int {
	height, prominence := p.Thresholds(y)
	return Detect(y, height, p.Distance, prominence)
}

// DetectSpectrum detects peaks on a spectrum and returns them as a peak set.
func DetectSpectrum(s core.Spectrum, p Params) core.PeakSet {
	return core.DetectedPeakSet(s, DetectRelative(s.Intensities, p))
}

// Detect returns the indices, in increasing order, of local maxima of y
// whose value is at least height, that are at least distance samples apart
// and whose prominence is at least prominence. When two maxima are closer
// than distance the lower one is discarded. No qualifying maximum yields an
// empty result.
func Detect(y []float64, height float64, distance int, prominence float64) []int {
	candidates := localMaxima(y)

	// Height filter
	filtered := candidates[:0]
	for _, i := range candidates {
		if y[i] >= height {
			filtered = append(filtered, i)
		}
	}
	candidates = filtered

	// Distance filter
	if distance > 1 && len(candidates) > 1 {
		candidates = selectByDistance(y, candidates, distance)
	}

	// Prominence filter
	out := make([]int, 0, len(candidates))
	for _, i := range candidates {
		if Prominence(y, i) >= prominence {
			out = append(out, i)
		}
	}
	return out
}

// localMaxima finds interior samples greater than both neighbours. A flat
// top counts once, at its midpoint (rounded down). Edge samples never
// qualify.
func localMaxima(y []float64) []int {
	var maxima []int
	n := len(y)
	i := 1
	for i < n-1 {
		if y[i-1] < y[i] {
			// Walk across a possible plateau
			ahead := i + 1
			for ahead < n-1 && y[ahead] == y[i] {
				ahead++
			}
			if y[ahead] < y[i] {
				maxima = append(maxima, (i+ahead-1)/2)
				i = ahead
				continue
			}
		}
		i++
	}
	return maxima
}

// selectByDistance keeps the highest peaks first and drops any peak closer
// than distance samples to an already kept one. Equal heights keep the
// leftmost peak.
func selectByDistance(y []float64, peaks []int, distance int) []int {
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return y[peaks[order[a]]] > y[peaks[order[b]]]
	})

	keep := make([]bool, len(peaks))
	removed := make([]bool, len(peaks))
	for _, k := range order {
		if removed[k] {
			continue
		}
		keep[k] = true
		for j := k - 1; j >= 0 && peaks[k]-peaks[j] < distance; j-- {
			removed[j] = true
		}
		for j := k + 1; j < len(peaks) && peaks[j]-peaks[k] < distance; j++ {
			removed[j] = true
		}
	}

	out := make([]int, 0, len(peaks))
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// Prominence returns how far the sample at peak stands out: on each side,
// the lowest value between the peak and the nearest strictly higher sample
// (or the border) is found, and the higher of those two bases is
// subtracted from the peak value.
func Prominence(y []float64, peak int) float64 {
	if peak < 0 || peak >= len(y) {
		return 0
	}
	v := y[peak]

	leftMin := v
	for i := peak - 1; i >= 0 && y[i] <= v; i-- {
		if y[i] < leftMin {
			leftMin = y[i]
		}
	}

	rightMin := v
	for i := peak + 1; i < len(y) && y[i] <= v; i++ {
		if y[i] < rightMin {
			rightMin = y[i]
		}
	}

	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return v - base
}

// Positions maps detector indices onto wavenumbers.
func Positions(s core.Spectrum, indices []int) []float64 {
	return core.DetectedPeakSet(s, indices).Positions
}
