package score

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/RamanKey/pkg/align"
	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

// Correlation is the absolute Pearson correlation of a and b over their
// overlap. Malformed, constant or non-overlapping input scores 0.
func Correlation(a, b core.Spectrum) float64 {
	pa, err := prepare(a)
	if err != nil {
		return 0
	}
	pb, err := prepare(b)
	if err != nil {
		return 0
	}
	return clamp01(correlate(&pa, &pb, nil, 0))
}

// correlate aligns q and c, optionally restricted to r and resampled to
// points, and returns their absolute Pearson correlation.
func correlate(q, c *prepared, r *core.Range, points int) float64 {
	al, err := align.Resampled(q.resampler, c.resampler, align.Options{Range: r, Points: points})
	if err != nil {
		return 0
	}
	return absPearson(al.A, al.B)
}

// absPearson returns |r| for two equal-length series, or 0 when either has
// no variance.
func absPearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) || constant(x) || constant(y) {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return clamp01(math.Abs(r))
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
