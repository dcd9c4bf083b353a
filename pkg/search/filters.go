// Package search ranks reference library records against a query spectrum.
package search

import (
	"math"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
	"github.com/ChrisMcGann/RamanKey/pkg/filter"
	"github.com/ChrisMcGann/RamanKey/pkg/score"
)

// Early termination applies to expensive algorithms once this many times
// MaxResults candidates qualified and this fraction of candidates was seen.
const (
	earlyStopFactor   = 3
	earlyStopFraction = 0.3
)

// Filters are the parameters of one search call.
type Filters struct {
	Algorithm     score.Algorithm
	MaxResults    int
	Threshold     float64   // minimum score, within [0, 1]
	PeakPositions []float64 // caller peak positions in cm⁻¹, optional
	PeakTolerance float64   // cm⁻¹; 0 keeps the scorer default
	Metadata      *filter.Config

	// Exhaustive disables early termination. Without it DTW and combined
	// searches may skip the tail of a large library.
	Exhaustive bool
}

// DefaultFilters returns a correlation search for the ten best matches.
func DefaultFilters() Filters {
	return Filters{
		Algorithm:  score.AlgorithmCorrelation,
		MaxResults: 10,
	}
}

// Validate rejects unusable filters with a *core.ConfigError.
func (f Filters) Validate() error {
	if _, err := score.ParseAlgorithm(string(f.Algorithm)); err != nil {
		return err
	}
	if f.MaxResults <= 0 {
		return core.NewConfigError("max results", "must be positive, got %d", f.MaxResults)
	}
	if f.Threshold < 0 || f.Threshold > 1 {
		return core.NewConfigError("threshold", "must be within 0-1, got %g", f.Threshold)
	}
	if f.PeakTolerance < 0 {
		return core.NewConfigError("peak tolerance", "must be positive, got %g", f.PeakTolerance)
	}
	for _, p := range f.PeakPositions {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return core.NewConfigError("peak positions", "must be finite")
		}
	}
	return nil
}
