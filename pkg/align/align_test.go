package align

import (
	"errors"
	"math"
	"testing"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

func linearSpectrum(lo, hi float64, n int, slope float64) core.Spectrum {
	s := core.Spectrum{
		Wavenumbers: make([]float64, n),
		Intensities: make([]float64, n),
	}
	step := (hi - lo) / float64(n-1)
	for i := 0; i < n; i++ {
		x := lo + step*float64(i)
		s.Wavenumbers[i] = x
		s.Intensities[i] = slope * x
	}
	return s
}

func TestAlignOverlap(t *testing.T) {
	a := linearSpectrum(100, 1000, 91, 1)
	b := linearSpectrum(500, 1500, 51, 2)

	al, err := Align(a, b, Options{})
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}
	if al.Len() != 51 {
		t.Errorf("Expected 51 grid points, got %d", al.Len())
	}
	if al.Grid[0] != 500 || al.Grid[al.Len()-1] != 1000 {
		t.Errorf("Grid spans %.1f-%.1f, want 500-1000", al.Grid[0], al.Grid[al.Len()-1])
	}
	for i, x := range al.Grid {
		if math.Abs(al.A[i]-x) > 1e-9 {
			t.Errorf("A[%d] = %v, want %v", i, al.A[i], x)
		}
		if math.Abs(al.B[i]-2*x) > 1e-9 {
			t.Errorf("B[%d] = %v, want %v", i, al.B[i], 2*x)
		}
	}
}

func TestAlignRangeAndPoints(t *testing.T) {
	a := linearSpectrum(0, 2000, 201, 1)
	b := linearSpectrum(0, 2000, 401, 1)

	al, err := Align(a, b, Options{Range: &core.Range{Lo: 400, Hi: 800}, Points: 20})
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}
	if al.Len() != 20 {
		t.Errorf("Expected 20 grid points, got %d", al.Len())
	}
	if al.Grid[0] != 400 || al.Grid[19] != 800 {
		t.Errorf("Grid spans %.1f-%.1f, want 400-800", al.Grid[0], al.Grid[19])
	}
}

func TestAlignNoOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b core.Spectrum
		opts Options
	}{
		{
			name: "disjoint ranges",
			a:    linearSpectrum(100, 400, 30, 1),
			b:    linearSpectrum(500, 900, 30, 1),
		},
		{
			name: "range outside overlap",
			a:    linearSpectrum(100, 400, 30, 1),
			b:    linearSpectrum(100, 400, 30, 1),
			opts: Options{Range: &core.Range{Lo: 1200, Hi: 1800}},
		},
		{
			name: "too few points",
			a:    linearSpectrum(100, 400, 3, 1),
			b:    linearSpectrum(100, 400, 30, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Align(tt.a, tt.b, tt.opts)
			if !errors.Is(err, core.ErrNoOverlap) {
				t.Errorf("Align() error = %v, want ErrNoOverlap", err)
			}
		})
	}
}

func TestAlignUnsortedAxis(t *testing.T) {
	a := core.Spectrum{
		Wavenumbers: []float64{500, 100, 300, 200, 400},
		Intensities: []float64{5, 1, 3, 2, 4},
	}
	b := linearSpectrum(100, 500, 5, 0.01)

	al, err := Align(a, b, Options{})
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}
	for i, x := range al.Grid {
		if math.Abs(al.A[i]-x/100) > 1e-9 {
			t.Errorf("A[%d] = %v, want %v", i, al.A[i], x/100)
		}
	}
}

func TestAlignRejectsInvalidSpectrum(t *testing.T) {
	_, err := Align(core.Spectrum{}, linearSpectrum(0, 1, 10, 1), Options{})
	var dataErr *core.DataError
	if !errors.As(err, &dataErr) {
		t.Errorf("Align() error = %v, want *DataError", err)
	}
}
