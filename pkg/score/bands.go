package score

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/RamanKey/pkg/align"
	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

// Band is a diagnostic wavenumber window with a relative weight.
type Band struct {
	Name   string
	Range  core.Range
	Weight float64
}

var multiWindowBands = []Band{
	{Name: "lattice", Range: core.Range{Lo: 50, Hi: 400}, Weight: 0.2},
	{Name: "bending", Range: core.Range{Lo: 400, Hi: 800}, Weight: 0.3},
	{Name: "stretching", Range: core.Range{Lo: 800, Hi: 1200}, Weight: 0.4},
	{Name: "high", Range: core.Range{Lo: 1200, Hi: 1800}, Weight: 0.1},
}

var mineralBands = []Band{
	{Name: "metal-oxide lattice", Range: core.Range{Lo: 100, Hi: 400}, Weight: 0.15},
	{Name: "M-O bending", Range: core.Range{Lo: 400, Hi: 600}, Weight: 0.2},
	{Name: "ring/chain bending", Range: core.Range{Lo: 600, Hi: 800}, Weight: 0.15},
	{Name: "Si-O stretching", Range: core.Range{Lo: 800, Hi: 1100}, Weight: 0.3},
	{Name: "carbonate/sulfate", Range: core.Range{Lo: 1000, Hi: 1200}, Weight: 0.2},
}

// MultiWindowBands returns the bands of the multi-window scorer.
func MultiWindowBands() []Band {
	return append([]Band(nil), multiWindowBands...)
}

// MineralBands returns the vibrational-mode bands of the mineral scorer.
func MineralBands() []Band {
	return append([]Band(nil), mineralBands...)
}

// MultiWindow is the weighted mean of per-band correlations over the four
// diagnostic windows. Bands without usable data are skipped.
func MultiWindow(a, b core.Spectrum) float64 {
	return freeBandScore(a, b, multiWindowBands, false)
}

// MineralVibration is the band correlation over the mineral vibrational
// modes, with each band boosted by the query's mean intensity in it.
func MineralVibration(query, candidate core.Spectrum) float64 {
	return freeBandScore(query, candidate, mineralBands, true)
}

func freeBandScore(a, b core.Spectrum, bands []Band, boost bool) float64 {
	pa, err := prepare(a)
	if err != nil {
		return 0
	}
	pb, err := prepare(b)
	if err != nil {
		return 0
	}
	return clamp01(bandScore(&pa, &pb, bands, boost))
}

// bandScore correlates q and c inside each band and averages the results
// with weights renormalized over the bands actually evaluated. With boost,
// a band's weight is scaled by 1 + mean(query in band)/max(query).
func bandScore(q, c *prepared, bands []Band, boost bool) float64 {
	peak := 0.0
	if boost {
		for _, v := range q.spectrum.Intensities {
			peak = math.Max(peak, math.Abs(v))
		}
	}

	var sum, weights float64
	for _, band := range bands {
		r, ok := align.Overlap(q.spectrum, c.spectrum, &band.Range)
		if !ok {
			continue
		}
		points := min(q.spectrum.CountIn(r), c.spectrum.CountIn(r))
		if points < align.MinPoints {
			continue
		}
		al, err := align.Resampled(q.resampler, c.resampler, align.Options{Range: &r, Points: points})
		if err != nil || constant(al.A) || constant(al.B) {
			continue
		}

		w := band.Weight
		if boost && peak > 0 {
			w *= 1 + math.Max(stat.Mean(al.A, nil), 0)/peak
		}
		sum += w * absPearson(al.A, al.B)
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}
