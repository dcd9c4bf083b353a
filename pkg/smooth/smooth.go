// Package smooth implements noise filters applied to intensities before
// peak picking.
package smooth

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

// SavitzkyGolay smooths y with a least-squares polynomial of the given
// order over a sliding window. Window must be odd, at least 3 and larger
// than order. Edges are mirrored.
func SavitzkyGolay(y []float64, window, order int) ([]float64, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	if order < 0 || order >= window {
		return nil, core.NewConfigError("smoothing order", "order %d must be within 0-%d for window %d", order, window-1, window)
	}
	if len(y) == 0 {
		return []float64{}, nil
	}

	coef, err := savgolCoefficients(window, order)
	if err != nil {
		return nil, err
	}

	h := window / 2
	out := make([]float64, len(y))
	for i := range y {
		acc := 0.0
		for j, c := range coef {
			acc += c * y[mirror(i+j-h, len(y))]
		}
		out[i] = acc
	}
	return out, nil
}

// savgolCoefficients returns the smoothing row of the Savitzky-Golay
// projection (Vᵀ V)⁻¹ Vᵀ for a centred window.
func savgolCoefficients(window, order int) ([]float64, error) {
	h := window / 2
	v := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		x := float64(i - h)
		pow := 1.0
		for j := 0; j <= order; j++ {
			v.Set(i, j, pow)
			pow *= x
		}
	}

	var vtv mat.Dense
	vtv.Mul(v.T(), v)
	var inv mat.Dense
	if err := inv.Inverse(&vtv); err != nil {
		return nil, fmt.Errorf("savitzky-golay coefficients: %w", err)
	}
	var proj mat.Dense
	proj.Mul(&inv, v.T())

	coef := make([]float64, window)
	mat.Row(coef, 0, &proj)
	return coef, nil
}

// Median replaces each sample with the median of the surrounding window.
// The window shrinks at the edges.
func Median(y []float64, window int) ([]float64, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	h := window / 2
	out := make([]float64, len(y))
	buf := make([]float64, 0, window)
	for i := range y {
		lo, hi := max(0, i-h), min(len(y), i+h+1)
		buf = append(buf[:0], y[lo:hi]...)
		sort.Float64s(buf)
		m := len(buf) / 2
		if len(buf)%2 == 1 {
			out[i] = buf[m]
		} else {
			out[i] = (buf[m-1] + buf[m]) / 2
		}
	}
	return out, nil
}

func validateWindow(window int) error {
	if window < 3 || window%2 == 0 {
		return core.NewConfigError("smoothing window", "must be odd and at least 3, got %d", window)
	}
	return nil
}

// mirror reflects an out-of-range index back into [0, n).
func mirror(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
