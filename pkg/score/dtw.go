package score

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ChrisMcGann/RamanKey/pkg/align"
	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

// dtwDistanceScale converts a normalized DTW distance into a similarity.
const dtwDistanceScale = 3

// DTW is the dynamic time warping similarity of a and b over their
// overlap, using cfg's point cap, overlap requirement and band radius.
func DTW(a, b core.Spectrum, cfg Config) float64 {
	pa, err := prepare(a)
	if err != nil {
		return 0
	}
	pb, err := prepare(b)
	if err != nil {
		return 0
	}
	return clamp01(dtwScore(&pa, &pb, cfg))
}

// dtwScore downsamples both spectra over their overlap, min-max
// normalizes them and returns 1/(1+3·d) for the banded DTW distance d per
// point. Spectra overlapping less than cfg.DTWMinOverlap of their union
// score 0.
func dtwScore(q, c *prepared, cfg Config) float64 {
	r, ok := align.Overlap(q.spectrum, c.spectrum, nil)
	if !ok {
		return 0
	}
	rq, rc := q.resampler.Range(), c.resampler.Range()
	union := math.Max(rq.Hi, rc.Hi) - math.Min(rq.Lo, rc.Lo)
	if union <= 0 || r.Width()/union < cfg.DTWMinOverlap {
		return 0
	}

	n := min(cfg.DTWMaxPoints, q.spectrum.CountIn(r), c.spectrum.CountIn(r))
	al, err := align.Resampled(q.resampler, c.resampler, align.Options{Range: &r, Points: n})
	if err != nil {
		return 0
	}
	a, okA := minMaxNormalize(al.A)
	b, okB := minMaxNormalize(al.B)
	if !okA || !okB {
		return 0
	}

	radius := max(1, min(cfg.DTWMaxRadius, al.Len()/5))
	d := dtwDistance(a, b, radius) / float64(al.Len())
	return 1 / (1 + dtwDistanceScale*d)
}

// minMaxNormalize rescales x onto [0, 1]. ok is false for constant input.
func minMaxNormalize(x []float64) ([]float64, bool) {
	lo, hi := floats.Min(x), floats.Max(x)
	if !(hi > lo) {
		return nil, false
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - lo) / (hi - lo)
	}
	return out, true
}

// dtwDistance is the DTW cost of equal-length series a and b with an
// absolute-difference local cost, restricted to |i-j| <= radius.
func dtwDistance(a, b []float64, radius int) float64 {
	n := len(a)
	inf := math.Inf(1)
	prev := make([]float64, n+1)
	curr := make([]float64, n+1)
	for j := range prev {
		prev[j] = inf
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		for j := range curr {
			curr[j] = inf
		}
		lo, hi := max(1, i-radius), min(n, i+radius)
		for j := lo; j <= hi; j++ {
			cost := math.Abs(a[i-1] - b[j-1])
			curr[j] = cost + math.Min(prev[j-1], math.Min(prev[j], curr[j-1]))
		}
		prev, curr = curr, prev
	}
	return prev[n]
}
