package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/RamanKey/pkg/background"
	"github.com/ChrisMcGann/RamanKey/pkg/core"
	"github.com/ChrisMcGann/RamanKey/pkg/score"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ramankey.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "local", cfg.Logging.Env)
	assert.Equal(t, "ramankey.db", cfg.Database.Path)

	f, err := cfg.SearchFilters()
	require.NoError(t, err)
	assert.Equal(t, score.AlgorithmCorrelation, f.Algorithm)
	assert.Equal(t, 10, f.MaxResults)

	p, err := cfg.BackgroundParams()
	require.NoError(t, err)
	assert.Equal(t, background.DefaultALS(), p)

	assert.Equal(t, score.DefaultConfig(), cfg.ScoreConfig())
}

func TestLoad(t *testing.T) {
	t.Setenv("RAMANKEY_DB", "/data/rruff.db")

	path := writeConfig(t, `
logging:
  env: prod
  level: info
database:
  path: ${RAMANKEY_DB}
search:
  algorithm: combined
  max_results: 25
  threshold: 0.4
  exhaustive: true
background:
  method: spline
  spline:
    knots: 20
    smoothing_log: 3
peaks:
  distance: 5
scoring:
  dtw_max_points: 100
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Logging.Env)
	assert.Equal(t, "/data/rruff.db", cfg.Database.Path)

	f, err := cfg.SearchFilters()
	require.NoError(t, err)
	assert.Equal(t, score.AlgorithmCombined, f.Algorithm)
	assert.Equal(t, 25, f.MaxResults)
	assert.InDelta(t, 0.4, f.Threshold, 1e-12)
	assert.True(t, f.Exhaustive)

	p, err := cfg.BackgroundParams()
	require.NoError(t, err)
	sp, ok := p.(background.SplineParams)
	require.True(t, ok)
	assert.Equal(t, 20, sp.Knots)
	assert.InDelta(t, 1000, sp.Smoothing, 1e-9)
	assert.Equal(t, 3, sp.Degree)

	assert.Equal(t, 5, cfg.PeakParams().Distance)
	assert.Equal(t, 100, cfg.ScoreConfig().DTWMaxPoints)
}

func TestLoadEnvDefault(t *testing.T) {
	path := writeConfig(t, "database:\n  path: ${RAMANKEY_UNSET_VAR:-fallback.db}\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fallback.db", cfg.Database.Path)
}

func TestLoadRobustFalse(t *testing.T) {
	path := writeConfig(t, "background:\n  method: polynomial\n  polynomial:\n    robust: false\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	p, err := cfg.BackgroundParams()
	require.NoError(t, err)
	assert.Equal(t, background.PolynomialParams{Order: 3, Robust: false}, p)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "search: [unterminated"},
		{"unknown algorithm", "search:\n  algorithm: fourier\n"},
		{"threshold out of range", "search:\n  threshold: 1.5\n"},
		{"unknown method", "background:\n  method: wavelet\n"},
		{"als p out of range", "background:\n  als:\n    p: 0.9\n"},
		{"unknown window", "background:\n  method: moving-average\n  moving_average:\n    window: boxcar\n"},
		{"bad env", "logging:\n  env: staging\n"},
		{"inverted tiers", "scoring:\n  combined_low: 0.8\n  combined_high: 0.3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidationErrorsAreConfigErrors(t *testing.T) {
	cfg := Default()
	cfg.Background.ALS.Iterations = 1000

	err := cfg.Validate()
	var cfgErr *core.ConfigError
	assert.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
}

func TestBackgroundParamsFor(t *testing.T) {
	cfg := Default()
	for _, m := range []background.Method{
		background.MethodALS,
		background.MethodLinear,
		background.MethodPolynomial,
		background.MethodSpline,
		background.MethodMovingAverage,
	} {
		p, err := cfg.BackgroundParamsFor(m)
		require.NoError(t, err, m)
		assert.Equal(t, m, p.Method())
	}

	p, err := cfg.BackgroundParamsFor(background.MethodSpline)
	require.NoError(t, err)
	assert.InDelta(t, 10, p.(background.SplineParams).Smoothing, 1e-9)
	assert.False(t, math.IsNaN(p.(background.SplineParams).Smoothing))
}
