package background

// linear draws a line between the weighted minima of the first and last
// 5% of the spectrum.
func linear(u, y []float64, p LinearParams) []float64 {
	n := len(y)
	m := max(1, n*5/100)

	start := minOf(y[:m]) * p.StartWeight
	end := minOf(y[n-m:]) * p.EndWeight

	base := make([]float64, n)
	span := u[n-1] - u[0]
	for i := range base {
		if span == 0 {
			base[i] = start
			continue
		}
		t := (u[i] - u[0]) / span
		base[i] = start + (end-start)*t
	}
	return clampBelow(base, y)
}

func minOf(y []float64) float64 {
	m := y[0]
	for _, v := range y[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
