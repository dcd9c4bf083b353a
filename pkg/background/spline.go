package background

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	splineRefinements = 3
	splineQuantile    = 0.2
	splineRidge       = 1e-9
)

// spline fits a penalized B-spline to the minimum-filtered spectrum, then
// refits it to the points whose residual is under the 20th percentile.
func spline(u, y []float64, p SplineParams) ([]float64, error) {
	n := len(y)
	m := p.Knots + p.Degree + 1 // basis functions
	if m > n {
		return nil, fmt.Errorf("%d basis functions for %d points: %w", m, n, errNumeric)
	}
	target := minFilter(y, minFilterWindow(n))
	knots := clampedKnots(p.Knots, p.Degree)

	// Each row of the design matrix has Degree+1 non-zero entries
	spans := make([]int, n)
	rows := make([][]float64, n)
	for i, x := range u {
		spans[i] = findSpan(knots, p.Degree, m, x)
		rows[i] = basisFuncs(knots, spans[i], p.Degree, x)
	}

	lambda := p.Smoothing * float64(n) / float64(m)
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}

	fit, err := solvePSpline(spans, rows, target, w, m, p.Degree, lambda)
	if err != nil {
		return nil, err
	}
	resid := make([]float64, n)
	for iter := 0; iter < splineRefinements; iter++ {
		for i := range resid {
			resid[i] = target[i] - fit[i]
		}
		threshold := quantile(splineQuantile, resid)
		for i, r := range resid {
			w[i] = 0
			if r <= threshold {
				w[i] = 1
			}
		}
		if fit, err = solvePSpline(spans, rows, target, w, m, p.Degree, lambda); err != nil {
			return nil, err
		}
	}
	return clampBelow(fit, y), nil
}

// solvePSpline solves (BᵀWB + λPᵀP + εI) c = BᵀWy and returns Bc.
func solvePSpline(spans []int, rows [][]float64, y, w []float64, m, degree int, lambda float64) ([]float64, error) {
	a := mat.NewSymDense(m, nil)
	rhs := mat.NewVecDense(m, nil)

	for i, row := range rows {
		if w[i] == 0 {
			continue
		}
		first := spans[i] - degree
		for r, br := range row {
			rhs.SetVec(first+r, rhs.AtVec(first+r)+w[i]*br*y[i])
			for c := r; c < len(row); c++ {
				a.SetSym(first+r, first+c, a.At(first+r, first+c)+w[i]*br*row[c])
			}
		}
	}
	for r := 0; r+2 < m; r++ {
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				a.SetSym(r+i, r+j, a.At(r+i, r+j)+lambda*secondDifference[i]*secondDifference[j])
			}
		}
	}
	for i := 0; i < m; i++ {
		a.SetSym(i, i, a.At(i, i)+splineRidge*(1+lambda))
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("spline system not positive definite: %w", errNumeric)
	}
	var coef mat.VecDense
	if err := chol.SolveVecTo(&coef, rhs); err != nil {
		return nil, fmt.Errorf("spline solve: %w", err)
	}

	out := make([]float64, len(rows))
	for i, row := range rows {
		first := spans[i] - degree
		for r, br := range row {
			out[i] += br * coef.AtVec(first+r)
		}
	}
	return out, nil
}

// clampedKnots returns a knot vector on [0, 1] with degree+1 repeated end
// knots and evenly spaced interior knots.
func clampedKnots(interior, degree int) []float64 {
	knots := make([]float64, 0, interior+2*(degree+1))
	for i := 0; i <= degree; i++ {
		knots = append(knots, 0)
	}
	for i := 1; i <= interior; i++ {
		knots = append(knots, float64(i)/float64(interior+1))
	}
	for i := 0; i <= degree; i++ {
		knots = append(knots, 1)
	}
	return knots
}

// findSpan returns the knot span holding x, with x = 1 assigned to the
// last span.
func findSpan(knots []float64, degree, m int, x float64) int {
	if x >= knots[m] {
		return m - 1
	}
	if x <= knots[degree] {
		return degree
	}
	lo, hi := degree, m
	mid := (lo + hi) / 2
	for x < knots[mid] || x >= knots[mid+1] {
		if x < knots[mid] {
			hi = mid
		} else {
			lo = mid
		}
		mid = (lo + hi) / 2
	}
	return mid
}

// basisFuncs evaluates the degree+1 non-zero B-spline basis functions at x
// (Cox–de Boor, triangular scheme).
func basisFuncs(knots []float64, span, degree int, x float64) []float64 {
	out := make([]float64, degree+1)
	left := make([]float64, degree+1)
	right := make([]float64, degree+1)
	out[0] = 1
	for j := 1; j <= degree; j++ {
		left[j] = x - knots[span+1-j]
		right[j] = knots[span+j] - x
		saved := 0.0
		for r := 0; r < j; r++ {
			tmp := out[r] / (right[r+1] + left[j-r])
			out[r] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		out[j] = saved
	}
	return out
}
