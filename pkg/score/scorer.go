// Package score implements the spectral similarity functions used to rank
// reference spectra against a query. Every score lies in [0, 1].
package score

import (
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ChrisMcGann/RamanKey/pkg/align"
	"github.com/ChrisMcGann/RamanKey/pkg/core"
	"github.com/ChrisMcGann/RamanKey/pkg/peaks"
)

// Algorithm names a scoring function.
type Algorithm string

const (
	AlgorithmCorrelation      Algorithm = "correlation"
	AlgorithmMultiWindow      Algorithm = "multi-window"
	AlgorithmMineralVibration Algorithm = "mineral-vibration"
	AlgorithmPeak             Algorithm = "peak"
	AlgorithmDTW              Algorithm = "dtw"
	AlgorithmCombined         Algorithm = "combined"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{
	AlgorithmCorrelation,
	AlgorithmMultiWindow,
	AlgorithmMineralVibration,
	AlgorithmPeak,
	AlgorithmDTW,
	AlgorithmCombined,
}

// ParseAlgorithm parses an algorithm name case-insensitively.
func ParseAlgorithm(s string) (Algorithm, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	switch key {
	case "multiwindow":
		key = string(AlgorithmMultiWindow)
	case "mineral", "mineralvibration", "mineral-vibrations":
		key = string(AlgorithmMineralVibration)
	case "peaks":
		key = string(AlgorithmPeak)
	}
	for _, a := range Algorithms {
		if string(a) == key {
			return a, nil
		}
	}
	return "", core.NewConfigError("algorithm", "unknown algorithm %q", s)
}

// Expensive reports whether the algorithm runs DTW and so qualifies for
// early termination.
func (a Algorithm) Expensive() bool {
	return a == AlgorithmDTW || a == AlgorithmCombined
}

// Blend weighs the components of the combined score.
type Blend struct {
	Correlation float64
	DTW         float64
	Peak        float64
}

// Config holds the tunable constants of the scorers.
type Config struct {
	PeakTolerance          float64 // cm⁻¹
	CandidateHeightPercent float64 // height threshold for re-detecting candidate peaks
	QueryPeaks             peaks.Params

	CombinedLow    float64 // below: cheap rejection
	CombinedHigh   float64 // at or above: DTW-heavy blend
	RejectScale    float64
	BlendMid       Blend
	BlendMidPeaks  Blend
	BlendHigh      Blend
	BlendHighPeaks Blend

	DTWMaxPoints  int
	DTWMinOverlap float64 // fraction of the union of both ranges
	DTWMaxRadius  int
}

// DefaultConfig returns the empirically chosen defaults.
func DefaultConfig() Config {
	return Config{
		PeakTolerance:          10,
		CandidateHeightPercent: 10,
		QueryPeaks:             peaks.DefaultParams(),

		CombinedLow:    0.2,
		CombinedHigh:   0.5,
		RejectScale:    0.5,
		BlendMid:       Blend{Correlation: 0.6, DTW: 0.4},
		BlendMidPeaks:  Blend{Correlation: 0.4, DTW: 0.3, Peak: 0.3},
		BlendHigh:      Blend{Correlation: 0.3, DTW: 0.7},
		BlendHighPeaks: Blend{Correlation: 0.2, DTW: 0.3, Peak: 0.5},

		DTWMaxPoints:  75,
		DTWMinOverlap: 0.3,
		DTWMaxRadius:  10,
	}
}

// Validate checks the tunables.
func (c Config) Validate() error {
	if c.PeakTolerance <= 0 {
		return core.NewConfigError("peak tolerance", "must be positive, got %g", c.PeakTolerance)
	}
	if c.CandidateHeightPercent < 0 || c.CandidateHeightPercent > 100 {
		return core.NewConfigError("candidate height percent", "must be within 0-100, got %g", c.CandidateHeightPercent)
	}
	if err := c.QueryPeaks.Validate(); err != nil {
		return err
	}
	if c.CombinedLow < 0 || c.CombinedHigh > 1 || c.CombinedLow > c.CombinedHigh {
		return core.NewConfigError("combined tiers", "need 0 <= low <= high <= 1, got %g/%g", c.CombinedLow, c.CombinedHigh)
	}
	if c.RejectScale < 0 || c.RejectScale > 1 {
		return core.NewConfigError("combined reject scale", "must be within 0-1, got %g", c.RejectScale)
	}
	if c.DTWMaxPoints < align.MinPoints {
		return core.NewConfigError("dtw max points", "must be at least %d, got %d", align.MinPoints, c.DTWMaxPoints)
	}
	if c.DTWMinOverlap < 0 || c.DTWMinOverlap > 1 {
		return core.NewConfigError("dtw min overlap", "must be within 0-1, got %g", c.DTWMinOverlap)
	}
	if c.DTWMaxRadius < 1 {
		return core.NewConfigError("dtw max radius", "must be at least 1, got %d", c.DTWMaxRadius)
	}
	return nil
}

// Query is the spectrum being identified, with optional peak information.
type Query struct {
	Spectrum      core.Spectrum
	CallerPeaks   []float64 // manual peak positions in cm⁻¹
	DetectedPeaks []int     // detector indices into Spectrum
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.log = l
		}
	}
}

// WithoutDTW makes DTW unavailable, as when its dependency is missing.
// DTW and Combined then fall back to correlation.
func WithoutDTW() Option {
	return func(s *Scorer) {
		s.dtwAvailable = false
	}
}

// Scorer scores candidates against one query. The query's sorted form, its
// interpolator and its reference peaks are computed once. A Scorer is
// meant for a single search and is not safe for concurrent use.
type Scorer struct {
	algo Algorithm
	cfg  Config
	log  *zap.Logger

	query     prepared
	reference core.PeakSet
	caller    bool

	dtwAvailable bool
	fallbackOnce sync.Once
}

// NewScorer prepares a scorer for query. It fails with a *core.DataError
// for a malformed query or a *core.ConfigError for bad settings.
func NewScorer(algo Algorithm, q Query, cfg Config, opts ...Option) (*Scorer, error) {
	algo, err := ParseAlgorithm(string(algo))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prep, err := prepare(q.Spectrum)
	if err != nil {
		return nil, err
	}

	s := &Scorer{
		algo:         algo,
		cfg:          cfg,
		log:          zap.NewNop(),
		query:        prep,
		dtwAvailable: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Reference peaks: caller positions, then caller indices, then detection
	switch {
	case len(q.CallerPeaks) > 0:
		s.reference = core.NewManualPeakSet(q.CallerPeaks)
		s.reference.Intensities = prep.resampler.Sample(s.reference.Positions)
		s.caller = true
	case len(q.DetectedPeaks) > 0:
		s.reference = core.DetectedPeakSet(q.Spectrum, q.DetectedPeaks)
	default:
		s.reference = peaks.DetectSpectrum(prep.spectrum, cfg.QueryPeaks)
	}
	return s, nil
}

// Algorithm returns the scorer's algorithm.
func (s *Scorer) Algorithm() Algorithm {
	return s.algo
}

// ReferencePeaks returns the query peaks the peak scorer compares against.
func (s *Scorer) ReferencePeaks() core.PeakSet {
	return s.reference
}

// DTWAvailable reports whether DTW runs or falls back to correlation.
func (s *Scorer) DTWAvailable() bool {
	return s.dtwAvailable
}

// Score returns the candidate's similarity to the query. Malformed or
// non-overlapping candidates score 0.
func (s *Scorer) Score(candidate core.Spectrum) float64 {
	v, err := s.Evaluate(candidate)
	if err != nil {
		s.log.Debug("candidate scored 0", zap.Error(err))
		return 0
	}
	return v
}

// Evaluate is Score that reports malformed candidate data as a
// *core.DataError. Lack of overlap is not an error: it scores 0.
func (s *Scorer) Evaluate(candidate core.Spectrum) (float64, error) {
	c, err := prepare(candidate)
	if err != nil {
		return 0, err
	}

	var v float64
	switch s.algo {
	case AlgorithmCorrelation:
		v = correlate(&s.query, &c, nil, 0)
	case AlgorithmMultiWindow:
		v = bandScore(&s.query, &c, multiWindowBands, false)
	case AlgorithmMineralVibration:
		v = bandScore(&s.query, &c, mineralBands, true)
	case AlgorithmPeak:
		v = s.peakScore(&c)
	case AlgorithmDTW:
		v = s.dtwOrFallback(&c)
	case AlgorithmCombined:
		v = s.combined(&c)
	default:
		return 0, core.NewConfigError("algorithm", "unknown algorithm %q", s.algo)
	}
	return clamp01(v), nil
}

func (s *Scorer) peakScore(c *prepared) float64 {
	return matchPeaks(s.reference, candidatePeaks(c.spectrum, s.cfg.CandidateHeightPercent), s.cfg.PeakTolerance, s.caller)
}

// dtwOrFallback runs DTW, or correlation when DTW is unavailable.
func (s *Scorer) dtwOrFallback(c *prepared) float64 {
	if !s.dtwAvailable {
		s.fallbackOnce.Do(func() {
			s.log.Warn("dtw unavailable, falling back to correlation",
				zap.Error(core.ErrDependencyUnavailable))
		})
		return correlate(&s.query, c, nil, 0)
	}
	return dtwScore(&s.query, c, s.cfg)
}

// prepared is a validated spectrum with a sorted copy and an interpolator.
type prepared struct {
	spectrum  core.Spectrum
	resampler *align.Resampler
}

func prepare(s core.Spectrum) (prepared, error) {
	if err := s.Validate(); err != nil {
		return prepared{}, err
	}
	sorted := s.Sorted()
	r, err := align.NewResampler(sorted)
	if err != nil {
		return prepared{}, err
	}
	return prepared{spectrum: sorted, resampler: r}, nil
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
