// Package session holds the processing state of one spectrum: the
// original data, the transforms applied so far, an optional uncommitted
// background preview and the current peak set.
package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ChrisMcGann/RamanKey/pkg/background"
	"github.com/ChrisMcGann/RamanKey/pkg/core"
	"github.com/ChrisMcGann/RamanKey/pkg/peaks"
	"github.com/ChrisMcGann/RamanKey/pkg/score"
	"github.com/ChrisMcGann/RamanKey/pkg/smooth"
)

// ErrNoPreview is returned by Commit when nothing is being previewed.
var ErrNoPreview = errors.New("no background preview to commit")

// TransformKind identifies an applied processing step.
type TransformKind string

const (
	TransformBackground    TransformKind = "background"
	TransformSavitzkyGolay TransformKind = "savitzky-golay"
	TransformMedian        TransformKind = "median"
)

// Transform records one committed processing step.
type Transform struct {
	Kind       TransformKind
	Background background.Params // set for background subtraction
	Method     background.Method // method that actually produced the baseline
	Window     int               // smoothing window
	Order      int               // Savitzky-Golay order
}

func (t Transform) String() string {
	switch t.Kind {
	case TransformBackground:
		return fmt.Sprintf("background(%s)", t.Method)
	case TransformSavitzkyGolay:
		return fmt.Sprintf("savitzky-golay(window=%d, order=%d)", t.Window, t.Order)
	case TransformMedian:
		return fmt.Sprintf("median(window=%d)", t.Window)
	}
	return string(t.Kind)
}

// Preview is an estimated baseline not yet applied to the spectrum.
type Preview struct {
	Params    background.Params
	Method    background.Method
	Fallback  error
	Baseline  []float64
	Corrected []float64
}

// Session is the processing aggregate of one spectrum. It is not safe for
// concurrent use.
type Session struct {
	ID uuid.UUID

	original core.Spectrum
	current  core.Spectrum
	applied  []Transform
	preview  *Preview

	peaks    *core.PeakSet
	detected []int // detector indices behind peaks, nil for manual peaks
}

// New starts a session on a copy of s.
func New(s core.Spectrum) (*Session, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	orig := core.NewSpectrum(s.Wavenumbers, s.Intensities)
	return &Session{
		ID:       uuid.New(),
		original: orig,
		current:  core.NewSpectrum(orig.Wavenumbers, orig.Intensities),
	}, nil
}

// Original returns a copy of the unprocessed spectrum.
func (s *Session) Original() core.Spectrum {
	return core.NewSpectrum(s.original.Wavenumbers, s.original.Intensities)
}

// Current returns a copy of the processed spectrum.
func (s *Session) Current() core.Spectrum {
	return core.NewSpectrum(s.current.Wavenumbers, s.current.Intensities)
}

// Applied returns the committed transforms in order.
func (s *Session) Applied() []Transform {
	return append([]Transform(nil), s.applied...)
}

// Preview returns the pending background preview, or nil.
func (s *Session) Preview() *Preview {
	return s.preview
}

// PreviewBackground estimates a baseline for the current spectrum without
// applying it. A new preview replaces the previous one.
func (s *Session) PreviewBackground(p background.Params) (*Preview, error) {
	res, err := background.EstimateWithReport(s.current.Wavenumbers, s.current.Intensities, p)
	if err != nil {
		return nil, err
	}
	s.preview = &Preview{
		Params:    p,
		Method:    res.Method,
		Fallback:  res.Fallback,
		Baseline:  res.Baseline,
		Corrected: background.Subtract(s.current.Intensities, res.Baseline),
	}
	return s.preview, nil
}

// Commit applies the pending preview.
func (s *Session) Commit() error {
	if s.preview == nil {
		return ErrNoPreview
	}
	p := s.preview
	s.setIntensities(p.Corrected)
	s.applied = append(s.applied, Transform{Kind: TransformBackground, Background: p.Params, Method: p.Method})
	return nil
}

// Discard drops the pending preview.
func (s *Session) Discard() {
	s.preview = nil
}

// SubtractBackground previews and commits in one step.
func (s *Session) SubtractBackground(p background.Params) error {
	if _, err := s.PreviewBackground(p); err != nil {
		return err
	}
	return s.Commit()
}

// SmoothSavitzkyGolay applies a Savitzky-Golay filter to the current
// intensities.
func (s *Session) SmoothSavitzkyGolay(window, order int) error {
	y, err := smooth.SavitzkyGolay(s.current.Intensities, window, order)
	if err != nil {
		return err
	}
	s.setIntensities(y)
	s.applied = append(s.applied, Transform{Kind: TransformSavitzkyGolay, Window: window, Order: order})
	return nil
}

// SmoothMedian applies a median filter to the current intensities.
func (s *Session) SmoothMedian(window int) error {
	y, err := smooth.Median(s.current.Intensities, window)
	if err != nil {
		return err
	}
	s.setIntensities(y)
	s.applied = append(s.applied, Transform{Kind: TransformMedian, Window: window})
	return nil
}

// DetectPeaks runs the detector on the current intensities and stores the
// result as the session's peak set.
func (s *Session) DetectPeaks(p peaks.Params) (core.PeakSet, error) {
	if err := p.Validate(); err != nil {
		return core.PeakSet{}, err
	}
	idx := peaks.DetectRelative(s.current.Intensities, p)
	ps := core.DetectedPeakSet(s.current, idx)
	s.peaks = &ps
	s.detected = idx
	return ps, nil
}

// SetManualPeaks replaces the peak set with caller positions.
func (s *Session) SetManualPeaks(positions []float64) core.PeakSet {
	ps := core.NewManualPeakSet(positions)
	s.peaks = &ps
	s.detected = nil
	return ps
}

// Peaks returns the current peak set. ok is false when no peaks were
// selected or they were invalidated by a later transform.
func (s *Session) Peaks() (core.PeakSet, bool) {
	if s.peaks == nil {
		return core.PeakSet{}, false
	}
	return *s.peaks, true
}

// Reset restores the original spectrum and clears transforms, preview and
// peaks.
func (s *Session) Reset() {
	s.current = core.NewSpectrum(s.original.Wavenumbers, s.original.Intensities)
	s.applied = nil
	s.preview = nil
	s.peaks = nil
	s.detected = nil
}

// Query builds a search query from the current spectrum and peak set.
func (s *Session) Query() score.Query {
	q := score.Query{Spectrum: s.Current()}
	if s.peaks == nil {
		return q
	}
	if s.peaks.Provenance == core.PeaksManual {
		q.CallerPeaks = append([]float64(nil), s.peaks.Positions...)
	} else {
		q.DetectedPeaks = append([]int(nil), s.detected...)
	}
	return q
}

// setIntensities replaces the current intensities, invalidating any
// preview and peak set derived from the old ones.
func (s *Session) setIntensities(y []float64) {
	s.current.Intensities = y
	s.preview = nil
	s.peaks = nil
	s.detected = nil
}
