// Package background estimates slowly varying baselines under Raman spectra.
package background

import (
	"fmt"
	"strings"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

// Method names a baseline estimation algorithm.
type Method string

const (
	MethodALS           Method = "als"
	MethodLinear        Method = "linear"
	MethodPolynomial    Method = "polynomial"
	MethodSpline        Method = "spline"
	MethodMovingAverage Method = "moving-average"
)

// ParseMethod parses a method name case-insensitively.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "als", "asymmetric-least-squares":
		return MethodALS, nil
	case "linear":
		return MethodLinear, nil
	case "polynomial", "poly":
		return MethodPolynomial, nil
	case "spline":
		return MethodSpline, nil
	case "moving-average", "moving_average", "movingaverage", "rolling":
		return MethodMovingAverage, nil
	}
	return "", core.NewConfigError("background method", "unknown method %q", s)
}

// Params is the parameter set of one method. Implementations are
// ALSParams, LinearParams, PolynomialParams, SplineParams and
// MovingAverageParams.
type Params interface {
	Method() Method
	Validate() error
}

// ALSParams configures asymmetric least squares.
type ALSParams struct {
	Lambda     float64 // smoothness, typically 1e3-1e7
	P          float64 // asymmetry, typically 0.001-0.05
	Iterations int     // typically 5-30
}

// DefaultALS returns the default ALS parameters.
func DefaultALS() ALSParams {
	return ALSParams{Lambda: 1e5, P: 0.01, Iterations: 10}
}

func (ALSParams) Method() Method { return MethodALS }

func (p ALSParams) Validate() error {
	if p.Lambda < 1 || p.Lambda > 1e10 {
		return core.NewConfigError("als lambda", "must be within 1-1e10, got %g", p.Lambda)
	}
	if p.P <= 0 || p.P >= 0.5 {
		return core.NewConfigError("als p", "must be within (0, 0.5), got %g", p.P)
	}
	if p.Iterations < 1 || p.Iterations > 100 {
		return core.NewConfigError("als iterations", "must be within 1-100, got %d", p.Iterations)
	}
	return nil
}

// LinearParams configures a straight baseline between the weighted minima
// of the first and last 5% of the spectrum.
type LinearParams struct {
	StartWeight float64 // 0.1-2.0
	EndWeight   float64 // 0.1-2.0
}

// DefaultLinear returns unweighted linear parameters.
func DefaultLinear() LinearParams {
	return LinearParams{StartWeight: 1, EndWeight: 1}
}

func (LinearParams) Method() Method { return MethodLinear }

func (p LinearParams) Validate() error {
	if p.StartWeight < 0.1 || p.StartWeight > 2 {
		return core.NewConfigError("linear start weight", "must be within 0.1-2.0, got %g", p.StartWeight)
	}
	if p.EndWeight < 0.1 || p.EndWeight > 2 {
		return core.NewConfigError("linear end weight", "must be within 0.1-2.0, got %g", p.EndWeight)
	}
	return nil
}

// PolynomialParams configures a polynomial fit to the minimum-filtered
// spectrum.
type PolynomialParams struct {
	Order  int  // 1-6
	Robust bool // iterative reweighting instead of plain least squares
}

// DefaultPolynomial returns the default polynomial parameters.
func DefaultPolynomial() PolynomialParams {
	return PolynomialParams{Order: 3, Robust: true}
}

func (PolynomialParams) Method() Method { return MethodPolynomial }

func (p PolynomialParams) Validate() error {
	if p.Order < 1 || p.Order > 6 {
		return core.NewConfigError("polynomial order", "must be within 1-6, got %d", p.Order)
	}
	return nil
}

// SplineParams configures a penalized smoothing spline through the
// minimum-filtered spectrum.
type SplineParams struct {
	Knots     int     // interior knot count
	Smoothing float64 // roughness penalty; callers usually pick it on a log scale
	Degree    int     // 1-5
}

// DefaultSpline returns the default spline parameters.
func DefaultSpline() SplineParams {
	return SplineParams{Knots: 10, Smoothing: 10, Degree: 3}
}

func (SplineParams) Method() Method { return MethodSpline }

func (p SplineParams) Validate() error {
	if p.Degree < 1 || p.Degree > 5 {
		return core.NewConfigError("spline degree", "must be within 1-5, got %d", p.Degree)
	}
	if p.Knots < 1 || p.Knots > 200 {
		return core.NewConfigError("spline knots", "must be within 1-200, got %d", p.Knots)
	}
	if p.Smoothing < 0 {
		return core.NewConfigError("spline smoothing", "must be non-negative, got %g", p.Smoothing)
	}
	return nil
}

// WindowType selects the smoothing kernel of the moving-average method.
type WindowType string

const (
	WindowUniform  WindowType = "uniform"
	WindowGaussian WindowType = "gaussian"
	WindowHann     WindowType = "hann"
	WindowHamming  WindowType = "hamming"
)

// ParseWindow parses a window type case-insensitively.
func ParseWindow(s string) (WindowType, error) {
	w := WindowType(strings.ToLower(strings.TrimSpace(s)))
	switch w {
	case WindowUniform, WindowGaussian, WindowHann, WindowHamming:
		return w, nil
	case "":
		return WindowUniform, nil
	}
	return "", core.NewConfigError("window type", "unknown window %q", s)
}

// MovingAverageParams configures a minimum filter followed by smoothing.
type MovingAverageParams struct {
	WindowPercent float64 // window size as % of spectrum length, 1-50
	Window        WindowType
}

// DefaultMovingAverage returns the default moving-average parameters.
func DefaultMovingAverage() MovingAverageParams {
	return MovingAverageParams{WindowPercent: 10, Window: WindowUniform}
}

func (MovingAverageParams) Method() Method { return MethodMovingAverage }

func (p MovingAverageParams) Validate() error {
	if p.WindowPercent < 1 || p.WindowPercent > 50 {
		return core.NewConfigError("moving average window", "must be within 1-50%%, got %g", p.WindowPercent)
	}
	if _, err := ParseWindow(string(p.Window)); err != nil {
		return err
	}
	return nil
}

// Defaults returns the default parameters of a method.
func Defaults(m Method) (Params, error) {
	switch m {
	case MethodALS:
		return DefaultALS(), nil
	case MethodLinear:
		return DefaultLinear(), nil
	case MethodPolynomial:
		return DefaultPolynomial(), nil
	case MethodSpline:
		return DefaultSpline(), nil
	case MethodMovingAverage:
		return DefaultMovingAverage(), nil
	}
	return nil, fmt.Errorf("no defaults for method %q", m)
}
