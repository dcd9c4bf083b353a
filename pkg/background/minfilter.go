package background

// minFilterWindow is the sliding-minimum window used by the polynomial and
// spline methods: about 5% of the spectrum, odd, at least 3.
func minFilterWindow(n int) int {
	w := max(3, n/20)
	if w%2 == 0 {
		w++
	}
	return w
}

// minFilter returns the centred sliding minimum of y over w samples. The
// window shrinks at the edges.
func minFilter(y []float64, w int) []float64 {
	n := len(y)
	h := w / 2
	out := make([]float64, n)
	deque := make([]int, 0, w)
	next := 0
	for i := 0; i < n; i++ {
		hi := min(n-1, i+h)
		for ; next <= hi; next++ {
			for len(deque) > 0 && y[deque[len(deque)-1]] >= y[next] {
				deque = deque[:len(deque)-1]
			}
			deque = append(deque, next)
		}
		for deque[0] < i-h {
			deque = deque[1:]
		}
		out[i] = y[deque[0]]
	}
	return out
}
