package core

import "sort"

// PeakProvenance tells where a peak set came from.
type PeakProvenance int

const (
	// PeaksDetected were found by the peak detector on a specific spectrum.
	PeaksDetected PeakProvenance = iota
	// PeaksManual were supplied by a user or caller.
	PeaksManual
)

func (p PeakProvenance) String() string {
	if p == PeaksManual {
		return "manual"
	}
	return "detected"
}

// PeakSet holds peak positions (cm⁻¹) and, when known, their intensities.
type PeakSet struct {
	Positions   []float64
	Intensities []float64 // nil when unknown
	Provenance  PeakProvenance
}

// NewManualPeakSet builds a sorted manual peak set from caller positions.
func NewManualPeakSet(positions []float64) PeakSet {
	sorted := append([]float64(nil), positions...)
	sort.Float64s(sorted)
	return PeakSet{Positions: sorted, Provenance: PeaksManual}
}

// DetectedPeakSet builds a peak set from detector indices into s.
// Out-of-range indices are ignored.
func DetectedPeakSet(s Spectrum, indices []int) PeakSet {
	ps := PeakSet{
		Positions:   make([]float64, 0, len(indices)),
		Intensities: make([]float64, 0, len(indices)),
		Provenance:  PeaksDetected,
	}
	for _, i := range indices {
		if i < 0 || i >= len(s.Wavenumbers) || i >= len(s.Intensities) {
			continue
		}
		ps.Positions = append(ps.Positions, s.Wavenumbers[i])
		ps.Intensities = append(ps.Intensities, s.Intensities[i])
	}
	return ps
}

// Len returns the number of peaks.
func (p PeakSet) Len() int {
	return len(p.Positions)
}
