package background

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const robustIterations = 3

// polynomial fits a polynomial to the minimum-filtered spectrum, plainly or
// with iterative down-weighting of points above the 25th-percentile residual.
func polynomial(u, y []float64, p PolynomialParams) ([]float64, error) {
	n := len(y)
	if p.Order+1 > n {
		return nil, fmt.Errorf("polynomial order %d needs %d points, have %d: %w", p.Order, p.Order+1, n, errNumeric)
	}
	target := minFilter(y, minFilterWindow(n))

	// Map onto [-1, 1] for conditioning
	t := make([]float64, n)
	for i, v := range u {
		t[i] = 2*v - 1
	}

	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	fit, err := weightedPolyFit(t, target, w, p.Order)
	if err != nil {
		return nil, err
	}

	if p.Robust {
		resid := make([]float64, n)
		abs := make([]float64, n)
		for iter := 0; iter < robustIterations; iter++ {
			for i := range resid {
				resid[i] = target[i] - fit[i]
				abs[i] = math.Abs(resid[i])
			}
			threshold := quantile(0.25, resid)
			scale := quantile(0.5, abs)
			for i, r := range resid {
				w[i] = 1
				if r > threshold && scale > 0 {
					w[i] = 1 / (1 + math.Abs(r)/scale)
				}
			}
			if fit, err = weightedPolyFit(t, target, w, p.Order); err != nil {
				return nil, err
			}
		}
	}
	return clampBelow(fit, y), nil
}

// weightedPolyFit solves the weighted least-squares problem for the
// polynomial coefficients and returns the fitted values at t.
func weightedPolyFit(t, y, w []float64, order int) ([]float64, error) {
	n, m := len(t), order+1
	a := mat.NewDense(n, m, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		sw := math.Sqrt(w[i])
		pow := 1.0
		for j := 0; j < m; j++ {
			a.Set(i, j, sw*pow)
			pow *= t[i]
		}
		b.SetVec(i, sw*y[i])
	}

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("polynomial least squares: %w", err)
	}

	out := make([]float64, n)
	for i := range out {
		// Horner
		v := 0.0
		for j := m - 1; j >= 0; j-- {
			v = v*t[i] + coef.AtVec(j)
		}
		out[i] = v
	}
	return out, nil
}
