// Package align resamples pairs of spectra onto a shared wavenumber grid.
package align

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

// MinPoints is the smallest grid an alignment may produce.
const MinPoints = 5

// Options restricts an alignment.
type Options struct {
	Range  *core.Range // optional extra restriction of the overlap
	Points int         // grid size; 0 means min(len(a), len(b))
}

// Aligned holds two spectra resampled onto one grid.
type Aligned struct {
	Grid []float64
	A    []float64
	B    []float64
}

// Len returns the number of grid points.
func (a *Aligned) Len() int {
	return len(a.Grid)
}

// Overlap returns the wavenumber interval shared by a and b, intersected
// with restrict when given. ok is false when the interval is empty.
func Overlap(a, b core.Spectrum, restrict *core.Range) (core.Range, bool) {
	return intersect(a.Range(), b.Range(), restrict)
}

func intersect(ra, rb core.Range, restrict *core.Range) (core.Range, bool) {
	r := core.Range{Lo: math.Max(ra.Lo, rb.Lo), Hi: math.Min(ra.Hi, rb.Hi)}
	if restrict != nil {
		r.Lo = math.Max(r.Lo, restrict.Lo)
		r.Hi = math.Min(r.Hi, restrict.Hi)
	}
	if !(r.Hi > r.Lo) {
		return r, false
	}
	return r, true
}

// Align resamples a and b by linear interpolation onto evenly spaced
// points across their overlap. It returns core.ErrNoOverlap when the
// spectra do not intersect or the grid would have fewer than MinPoints.
func Align(a, b core.Spectrum, opts Options) (*Aligned, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	fa, err := NewResampler(a)
	if err != nil {
		return nil, err
	}
	fb, err := NewResampler(b)
	if err != nil {
		return nil, err
	}
	return Resampled(fa, fb, opts)
}

// Resampled aligns two prepared resamplers. It lets a caller build the
// query's resampler once and align it against many candidates.
func Resampled(a, b *Resampler, opts Options) (*Aligned, error) {
	r, ok := intersect(a.Range(), b.Range(), opts.Range)
	if !ok {
		return nil, core.ErrNoOverlap
	}

	n := opts.Points
	if n <= 0 {
		n = min(a.Len(), b.Len())
	}
	if n < MinPoints {
		return nil, fmt.Errorf("%w: %d grid points, need %d", core.ErrNoOverlap, n, MinPoints)
	}

	grid := floats.Span(make([]float64, n), r.Lo, r.Hi)
	grid[n-1] = r.Hi
	return &Aligned{
		Grid: grid,
		A:    a.Sample(grid),
		B:    b.Sample(grid),
	}, nil
}

// Resampler evaluates a spectrum at arbitrary wavenumbers by linear
// interpolation. It is built once and reused across many alignments.
type Resampler struct {
	fit   interp.PiecewiseLinear
	n     int
	span  core.Range
	first float64
	last  float64
}

// NewResampler fits an interpolator to s. The axis does not need to be
// sorted.
func NewResampler(s core.Spectrum) (*Resampler, error) {
	sorted := s.Sorted()
	if sorted.Len() < 2 {
		return nil, &core.DataError{Field: "Spectrum", Message: "need at least two distinct wavenumbers"}
	}
	r := &Resampler{
		n:     s.Len(),
		span:  core.Range{Lo: sorted.Wavenumbers[0], Hi: sorted.Wavenumbers[sorted.Len()-1]},
		first: sorted.Intensities[0],
		last:  sorted.Intensities[sorted.Len()-1],
	}
	if err := r.fit.Fit(sorted.Wavenumbers, sorted.Intensities); err != nil {
		return nil, fmt.Errorf("fit interpolator: %w", err)
	}
	return r, nil
}

// Len returns the number of points of the original spectrum.
func (r *Resampler) Len() int {
	return r.n
}

// Range returns the wavenumber span covered by the resampler.
func (r *Resampler) Range() core.Range {
	return r.span
}

// At evaluates the spectrum at x. Points outside the span take the
// nearest end value.
func (r *Resampler) At(x float64) float64 {
	switch {
	case x <= r.span.Lo:
		return r.first
	case x >= r.span.Hi:
		return r.last
	}
	return r.fit.Predict(x)
}

// Sample evaluates the spectrum at every grid point.
func (r *Resampler) Sample(grid []float64) []float64 {
	out := make([]float64, len(grid))
	for i, x := range grid {
		out[i] = r.At(x)
	}
	return out
}
