package background

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

// errNumeric marks an estimator that could not produce a usable baseline.
var errNumeric = errors.New("numeric failure")

// Result describes one estimation.
type Result struct {
	Baseline []float64
	Method   Method // method that produced the baseline
	Fallback error  // why the requested method was abandoned, nil otherwise
}

// Estimate returns a baseline of the same length as intensities. The only
// error it returns is a *core.ConfigError for rejected parameters; numeric
// failures fall back to simpler methods.
func Estimate(wavenumbers, intensities []float64, params Params) ([]float64, error) {
	res, err := EstimateWithReport(wavenumbers, intensities, params)
	if err != nil {
		return nil, err
	}
	return res.Baseline, nil
}

// EstimateWithReport is Estimate that also reports which method produced
// the baseline.
func EstimateWithReport(wavenumbers, intensities []float64, params Params) (Result, error) {
	if params == nil {
		return Result{}, core.NewConfigError("background method", "no parameters given")
	}
	if err := params.Validate(); err != nil {
		return Result{}, err
	}

	n := len(intensities)
	res := Result{Method: params.Method()}
	if n == 0 {
		res.Baseline = []float64{}
		return res, nil
	}

	// Non-numeric input yields a zero baseline so subtraction is a no-op
	if !allFinite(intensities) {
		res.Baseline = make([]float64, n)
		res.Fallback = &core.DataError{Field: "Intensities", Message: "non-finite intensity"}
		return res, nil
	}
	if isConstant(intensities) {
		res.Baseline = append([]float64(nil), intensities...)
		return res, nil
	}

	u := axis(wavenumbers, n)

	var (
		base []float64
		err  error
	)
	switch p := params.(type) {
	case ALSParams:
		base, err = als(intensities, p)
	case LinearParams:
		base = linear(u, intensities, p)
	case PolynomialParams:
		if p.Order >= minFilterWindow(n) {
			return Result{}, core.NewConfigError("polynomial order",
				"order %d must be below the smoothing window of %d points", p.Order, minFilterWindow(n))
		}
		base, err = polynomial(u, intensities, p)
	case SplineParams:
		base, err = spline(u, intensities, p)
		if err != nil {
			res.Fallback = fmt.Errorf("spline: %w", err)
			res.Method = MethodPolynomial
			base, err = polynomial(u, intensities, fallbackPolynomial(n))
		}
	case MovingAverageParams:
		base = movingAverage(intensities, p)
	default:
		return Result{}, core.NewConfigError("background method", "unsupported parameters %T", params)
	}

	if err == nil && !allFinite(base) {
		err = errNumeric
	}
	if err != nil {
		if res.Fallback == nil {
			res.Fallback = fmt.Errorf("%s: %w", res.Method, err)
		}
		res.Method = MethodLinear
		base = linear(u, intensities, DefaultLinear())
	}

	res.Baseline = base
	return res, nil
}

// Subtract returns y - baseline clamped at zero. Lengths must match; extra
// points of the longer slice are ignored.
func Subtract(y, baseline []float64) []float64 {
	n := min(len(y), len(baseline))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Max(y[i]-baseline[i], 0)
	}
	return out
}

// fallbackPolynomial picks a cubic robust fit, or a lower order for very
// short spectra.
func fallbackPolynomial(n int) PolynomialParams {
	p := DefaultPolynomial()
	if w := minFilterWindow(n); p.Order >= w {
		p.Order = w - 1
	}
	return p
}

// axis maps the wavenumbers onto [0, 1]. A strictly monotonic axis keeps
// its spacing; anything else falls back to sample positions.
func axis(wavenumbers []float64, n int) []float64 {
	u := make([]float64, n)
	if n == 1 {
		return u
	}
	if len(wavenumbers) == n && allFinite(wavenumbers) && monotonic(wavenumbers) {
		x0, x1 := wavenumbers[0], wavenumbers[n-1]
		for i, x := range wavenumbers {
			u[i] = (x - x0) / (x1 - x0)
		}
		return u
	}
	for i := range u {
		u[i] = float64(i) / float64(n-1)
	}
	return u
}

func monotonic(x []float64) bool {
	up, down := true, true
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			up = false
		}
		if x[i] >= x[i-1] {
			down = false
		}
	}
	return up || down
}

func allFinite(y []float64) bool {
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func isConstant(y []float64) bool {
	for _, v := range y[1:] {
		if v != y[0] {
			return false
		}
	}
	return true
}

// clampBelow enforces base[i] <= y[i] in place.
func clampBelow(base, y []float64) []float64 {
	for i := range base {
		if base[i] > y[i] {
			base[i] = y[i]
		}
	}
	return base
}

// quantile returns the empirical p-quantile of v without modifying it.
func quantile(p float64, v []float64) float64 {
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}
