// Package core provides the data model and validation logic for Raman
// spectra, reference library records and search results used by RamanKey.
package core

import (
	"math"
	"sort"
)

// Spectrum is a Raman spectrum: an intensity per wavenumber (cm⁻¹).
// The axis is usually, but not necessarily, increasing.
type Spectrum struct {
	Wavenumbers []float64
	Intensities []float64
}

// Range is a closed wavenumber interval.
type Range struct {
	Lo float64
	Hi float64
}

// Contains reports whether x lies inside the range.
func (r Range) Contains(x float64) bool {
	return x >= r.Lo && x <= r.Hi
}

// Width returns Hi-Lo, or 0 for an inverted range.
func (r Range) Width() float64 {
	if r.Hi < r.Lo {
		return 0
	}
	return r.Hi - r.Lo
}

// NewSpectrum builds a spectrum from copies of the given axes.
func NewSpectrum(wavenumbers, intensities []float64) Spectrum {
	return Spectrum{
		Wavenumbers: append([]float64(nil), wavenumbers...),
		Intensities: append([]float64(nil), intensities...),
	}
}

// Len returns the number of points in the spectrum.
func (s Spectrum) Len() int {
	return len(s.Intensities)
}

// Validate checks that a spectrum can enter a scorer or detector.
func (s Spectrum) Validate() error {
	if len(s.Intensities) == 0 || len(s.Wavenumbers) == 0 {
		return &DataError{Field: "Spectrum", Message: "spectrum is empty"}
	}
	if len(s.Wavenumbers) != len(s.Intensities) {
		return &DataError{
			Field:   "Spectrum",
			Message: "wavenumber and intensity axes differ in length",
		}
	}
	for i := range s.Intensities {
		if !isFinite(s.Wavenumbers[i]) {
			return &DataError{Field: "Wavenumbers", Message: "non-finite wavenumber"}
		}
		if !isFinite(s.Intensities[i]) {
			return &DataError{Field: "Intensities", Message: "non-finite intensity"}
		}
	}
	return nil
}

// Range returns the smallest and largest wavenumber. An empty spectrum
// yields an inverted range.
func (s Spectrum) Range() Range {
	r := Range{Lo: math.Inf(1), Hi: math.Inf(-1)}
	for _, x := range s.Wavenumbers {
		if x < r.Lo {
			r.Lo = x
		}
		if x > r.Hi {
			r.Hi = x
		}
	}
	return r
}

// MaxIntensity returns the largest intensity, or 0 for an empty spectrum.
func (s Spectrum) MaxIntensity() float64 {
	if len(s.Intensities) == 0 {
		return 0
	}
	m := s.Intensities[0]
	for _, v := range s.Intensities[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// CountIn returns the number of points whose wavenumber lies in r.
func (s Spectrum) CountIn(r Range) int {
	n := 0
	for _, x := range s.Wavenumbers {
		if r.Contains(x) {
			n++
		}
	}
	return n
}

// IsSorted reports whether the axis is strictly increasing.
func (s Spectrum) IsSorted() bool {
	for i := 1; i < len(s.Wavenumbers); i++ {
		if s.Wavenumbers[i] <= s.Wavenumbers[i-1] {
			return false
		}
	}
	return true
}

// Sorted returns a copy with a strictly increasing axis. Points sharing a
// wavenumber collapse into one point carrying their mean intensity.
func (s Spectrum) Sorted() Spectrum {
	n := len(s.Wavenumbers)
	if len(s.Intensities) < n {
		n = len(s.Intensities)
	}
	if s.IsSorted() && len(s.Wavenumbers) == len(s.Intensities) {
		return NewSpectrum(s.Wavenumbers, s.Intensities)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return s.Wavenumbers[idx[i]] < s.Wavenumbers[idx[j]]
	})

	out := Spectrum{
		Wavenumbers: make([]float64, 0, n),
		Intensities: make([]float64, 0, n),
	}
	for i := 0; i < n; {
		x := s.Wavenumbers[idx[i]]
		sum := 0.0
		j := i
		for j < n && s.Wavenumbers[idx[j]] == x {
			sum += s.Intensities[idx[j]]
			j++
		}
		out.Wavenumbers = append(out.Wavenumbers, x)
		out.Intensities = append(out.Intensities, sum/float64(j-i))
		i = j
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
