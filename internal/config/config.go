// Package config loads the ramankey YAML configuration.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/RamanKey/pkg/background"
	"github.com/ChrisMcGann/RamanKey/pkg/peaks"
	"github.com/ChrisMcGann/RamanKey/pkg/score"
	"github.com/ChrisMcGann/RamanKey/pkg/search"
)

// Config holds the ramankey configuration.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Search     SearchConfig     `yaml:"search"`
	Background BackgroundConfig `yaml:"background"`
	Peaks      PeaksConfig      `yaml:"peaks"`
	Scoring    ScoringConfig    `yaml:"scoring"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // prod, local, dev (default: local)
	Level string `yaml:"level"` // debug, info, warn, error (default: warn)
}

// DatabaseConfig locates the reference library.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	Algorithm     string  `yaml:"algorithm"`
	MaxResults    int     `yaml:"max_results"`
	Threshold     float64 `yaml:"threshold"`
	PeakTolerance float64 `yaml:"peak_tolerance"` // cm⁻¹
	Exhaustive    bool    `yaml:"exhaustive"`
}

// BackgroundConfig selects a background method and its parameters.
type BackgroundConfig struct {
	Method        string              `yaml:"method"`
	ALS           ALSConfig           `yaml:"als"`
	Polynomial    PolynomialConfig    `yaml:"polynomial"`
	Spline        SplineConfig        `yaml:"spline"`
	MovingAverage MovingAverageConfig `yaml:"moving_average"`
	Linear        LinearConfig        `yaml:"linear"`
}

type ALSConfig struct {
	Lambda     float64 `yaml:"lambda"`
	P          float64 `yaml:"p"`
	Iterations int     `yaml:"iterations"`
}

type PolynomialConfig struct {
	Order  int   `yaml:"order"`
	Robust *bool `yaml:"robust"` // default: true
}

type SplineConfig struct {
	Knots        int      `yaml:"knots"`
	SmoothingLog *float64 `yaml:"smoothing_log"` // log10 of the roughness penalty
	Degree       int      `yaml:"degree"`
}

type MovingAverageConfig struct {
	WindowPercent float64 `yaml:"window_percent"`
	Window        string  `yaml:"window"` // uniform, gaussian, hann, hamming
}

type LinearConfig struct {
	StartWeight float64 `yaml:"start_weight"`
	EndWeight   float64 `yaml:"end_weight"`
}

// PeaksConfig holds peak detection thresholds.
type PeaksConfig struct {
	HeightPercent     float64 `yaml:"height_percent"`
	Distance          int     `yaml:"distance"`
	ProminencePercent float64 `yaml:"prominence_percent"`
}

// ScoringConfig holds scorer tunables.
type ScoringConfig struct {
	CombinedLow            float64 `yaml:"combined_low"`
	CombinedHigh           float64 `yaml:"combined_high"`
	DTWMaxPoints           int     `yaml:"dtw_max_points"`
	DTWMinOverlap          float64 `yaml:"dtw_min_overlap"`
	CandidateHeightPercent float64 `yaml:"candidate_height_percent"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Logging.Env == "" {
		c.Logging.Env = "local"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "warn"
	}
	if c.Database.Path == "" {
		c.Database.Path = "ramankey.db"
	}

	filters := search.DefaultFilters()
	if c.Search.Algorithm == "" {
		c.Search.Algorithm = string(filters.Algorithm)
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = filters.MaxResults
	}

	sc := score.DefaultConfig()
	if c.Search.PeakTolerance <= 0 {
		c.Search.PeakTolerance = sc.PeakTolerance
	}

	if c.Background.Method == "" {
		c.Background.Method = string(background.MethodALS)
	}
	als := background.DefaultALS()
	if c.Background.ALS.Lambda <= 0 {
		c.Background.ALS.Lambda = als.Lambda
	}
	if c.Background.ALS.P <= 0 {
		c.Background.ALS.P = als.P
	}
	if c.Background.ALS.Iterations <= 0 {
		c.Background.ALS.Iterations = als.Iterations
	}
	poly := background.DefaultPolynomial()
	if c.Background.Polynomial.Order <= 0 {
		c.Background.Polynomial.Order = poly.Order
	}
	if c.Background.Polynomial.Robust == nil {
		robust := poly.Robust
		c.Background.Polynomial.Robust = &robust
	}
	spline := background.DefaultSpline()
	if c.Background.Spline.Knots <= 0 {
		c.Background.Spline.Knots = spline.Knots
	}
	if c.Background.Spline.SmoothingLog == nil {
		logS := math.Log10(spline.Smoothing)
		c.Background.Spline.SmoothingLog = &logS
	}
	if c.Background.Spline.Degree <= 0 {
		c.Background.Spline.Degree = spline.Degree
	}
	moving := background.DefaultMovingAverage()
	if c.Background.MovingAverage.WindowPercent <= 0 {
		c.Background.MovingAverage.WindowPercent = moving.WindowPercent
	}
	if c.Background.MovingAverage.Window == "" {
		c.Background.MovingAverage.Window = string(moving.Window)
	}
	linear := background.DefaultLinear()
	if c.Background.Linear.StartWeight <= 0 {
		c.Background.Linear.StartWeight = linear.StartWeight
	}
	if c.Background.Linear.EndWeight <= 0 {
		c.Background.Linear.EndWeight = linear.EndWeight
	}

	pk := peaks.DefaultParams()
	if c.Peaks.HeightPercent <= 0 {
		c.Peaks.HeightPercent = pk.HeightPercent
	}
	if c.Peaks.Distance <= 0 {
		c.Peaks.Distance = pk.Distance
	}
	if c.Peaks.ProminencePercent <= 0 {
		c.Peaks.ProminencePercent = pk.ProminencePercent
	}

	if c.Scoring.CombinedLow <= 0 {
		c.Scoring.CombinedLow = sc.CombinedLow
	}
	if c.Scoring.CombinedHigh <= 0 {
		c.Scoring.CombinedHigh = sc.CombinedHigh
	}
	if c.Scoring.DTWMaxPoints <= 0 {
		c.Scoring.DTWMaxPoints = sc.DTWMaxPoints
	}
	if c.Scoring.DTWMinOverlap <= 0 {
		c.Scoring.DTWMinOverlap = sc.DTWMinOverlap
	}
	if c.Scoring.CandidateHeightPercent <= 0 {
		c.Scoring.CandidateHeightPercent = sc.CandidateHeightPercent
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Logging.Env {
	case "prod", "local", "dev":
		// ok
	default:
		return fmt.Errorf("logging.env must be prod, local or dev, got %q", c.Logging.Env)
	}
	if _, err := c.SearchFilters(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if _, err := c.BackgroundParams(); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	if err := c.PeakParams().Validate(); err != nil {
		return fmt.Errorf("peaks: %w", err)
	}
	if err := c.ScoreConfig().Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	return nil
}

// SearchFilters converts the search section into search filters.
func (c *Config) SearchFilters() (search.Filters, error) {
	algo, err := score.ParseAlgorithm(c.Search.Algorithm)
	if err != nil {
		return search.Filters{}, err
	}
	f := search.Filters{
		Algorithm:     algo,
		MaxResults:    c.Search.MaxResults,
		Threshold:     c.Search.Threshold,
		PeakTolerance: c.Search.PeakTolerance,
		Exhaustive:    c.Search.Exhaustive,
	}
	if err := f.Validate(); err != nil {
		return search.Filters{}, err
	}
	return f, nil
}

// BackgroundParams returns the parameters of the configured method.
func (c *Config) BackgroundParams() (background.Params, error) {
	m, err := background.ParseMethod(c.Background.Method)
	if err != nil {
		return nil, err
	}
	return c.BackgroundParamsFor(m)
}

// BackgroundParamsFor returns the configured parameters of method m.
func (c *Config) BackgroundParamsFor(m background.Method) (background.Params, error) {
	b := c.Background
	var p background.Params
	switch m {
	case background.MethodALS:
		p = background.ALSParams{Lambda: b.ALS.Lambda, P: b.ALS.P, Iterations: b.ALS.Iterations}
	case background.MethodLinear:
		p = background.LinearParams{StartWeight: b.Linear.StartWeight, EndWeight: b.Linear.EndWeight}
	case background.MethodPolynomial:
		robust := true
		if b.Polynomial.Robust != nil {
			robust = *b.Polynomial.Robust
		}
		p = background.PolynomialParams{Order: b.Polynomial.Order, Robust: robust}
	case background.MethodSpline:
		smoothing := background.DefaultSpline().Smoothing
		if b.Spline.SmoothingLog != nil {
			smoothing = math.Pow(10, *b.Spline.SmoothingLog)
		}
		p = background.SplineParams{Knots: b.Spline.Knots, Smoothing: smoothing, Degree: b.Spline.Degree}
	case background.MethodMovingAverage:
		w, err := background.ParseWindow(b.MovingAverage.Window)
		if err != nil {
			return nil, err
		}
		p = background.MovingAverageParams{WindowPercent: b.MovingAverage.WindowPercent, Window: w}
	default:
		return nil, fmt.Errorf("unsupported background method %q", m)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// PeakParams converts the peaks section.
func (c *Config) PeakParams() peaks.Params {
	return peaks.Params{
		HeightPercent:     c.Peaks.HeightPercent,
		Distance:          c.Peaks.Distance,
		ProminencePercent: c.Peaks.ProminencePercent,
	}
}

// ScoreConfig merges the scoring section into the scorer defaults.
func (c *Config) ScoreConfig() score.Config {
	sc := score.DefaultConfig()
	sc.PeakTolerance = c.Search.PeakTolerance
	sc.CandidateHeightPercent = c.Scoring.CandidateHeightPercent
	sc.QueryPeaks = c.PeakParams()
	sc.CombinedLow = c.Scoring.CombinedLow
	sc.CombinedHigh = c.Scoring.CombinedHigh
	sc.DTWMaxPoints = c.Scoring.DTWMaxPoints
	sc.DTWMinOverlap = c.Scoring.DTWMinOverlap
	return sc
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
