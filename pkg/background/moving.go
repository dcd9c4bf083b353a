package background

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// gaussianSigma is the kernel width relative to the half window.
const gaussianSigma = 1.0 / 3

// movingAverage smooths the sliding minimum of y with the selected kernel.
func movingAverage(y []float64, p MovingAverageParams) []float64 {
	n := len(y)
	w := int(math.Round(float64(n) * p.WindowPercent / 100))
	w = max(w, 3)
	if w%2 == 0 {
		w++
	}
	if w > n {
		w = n
		if w%2 == 0 {
			w--
		}
	}
	if w < 3 {
		return append([]float64(nil), y...)
	}

	mins := minFilter(y, w)
	kernel := makeKernel(w, p.Window)
	return clampBelow(convolveNearest(mins, kernel), y)
}

// makeKernel returns a normalized smoothing kernel of size w.
func makeKernel(w int, kind WindowType) []float64 {
	k := make([]float64, w)
	for i := range k {
		k[i] = 1
	}
	switch kind {
	case WindowGaussian:
		k = window.Gaussian{Sigma: gaussianSigma}.Transform(k)
	case WindowHann:
		k = window.Hann(k)
	case WindowHamming:
		k = window.Hamming(k)
	}
	sum := floats.Sum(k)
	if !(sum > 0) {
		for i := range k {
			k[i] = 1 / float64(w)
		}
		return k
	}
	floats.Scale(1/sum, k)
	return k
}

// convolveNearest applies a centred odd-length kernel, repeating the edge
// samples beyond the ends.
func convolveNearest(y, kernel []float64) []float64 {
	n := len(y)
	h := len(kernel) / 2
	out := make([]float64, n)
	for i := range out {
		acc := 0.0
		for j, kv := range kernel {
			idx := min(max(i+j-h, 0), n-1)
			acc += kv * y[idx]
		}
		out[i] = acc
	}
	return out
}
