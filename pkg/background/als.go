package background

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// secondDifference is one row of the second-difference operator D.
var secondDifference = [3]float64{1, -2, 1}

// als runs asymmetric least squares: (W + λDᵀD) z = W y is solved
// repeatedly, weighting points above the current z by p and points below
// by 1-p.
func als(y []float64, p ALSParams) ([]float64, error) {
	n := len(y)
	if n < 3 {
		return append([]float64(nil), y...), nil
	}

	const k = 2 // bandwidth of DᵀD
	penalty := make([]float64, n*(k+1))
	for r := 0; r+2 < n; r++ {
		for a := 0; a < 3; a++ {
			for b := a; b < 3; b++ {
				penalty[(r+a)*(k+1)+(b-a)] += p.Lambda * secondDifference[a] * secondDifference[b]
			}
		}
	}

	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	z := make([]float64, n)
	rhs := make([]float64, n)

	for iter := 0; iter < p.Iterations; iter++ {
		// Upper band storage: row i holds a(i,i), a(i,i+1), a(i,i+2)
		band := append([]float64(nil), penalty...)
		for i := 0; i < n; i++ {
			band[i*(k+1)] += w[i]
			rhs[i] = w[i] * y[i]
		}

		var chol mat.BandCholesky
		if ok := chol.Factorize(mat.NewSymBandDense(n, k, band)); !ok {
			return nil, fmt.Errorf("als iteration %d: system not positive definite: %w", iter, errNumeric)
		}
		var sol mat.VecDense
		if err := chol.SolveVecTo(&sol, mat.NewVecDense(n, rhs)); err != nil {
			return nil, fmt.Errorf("als iteration %d: %w", iter, err)
		}
		for i := range z {
			z[i] = sol.AtVec(i)
		}

		for i := range w {
			if y[i] > z[i] {
				w[i] = p.P
			} else {
				w[i] = 1 - p.P
			}
		}
	}
	return z, nil
}
