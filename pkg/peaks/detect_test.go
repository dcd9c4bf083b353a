package peaks

import (
	"math"
	"reflect"
	"testing"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

func gaussianSpectrum(centers, heights []float64, width float64) core.Spectrum {
	n := 1001
	s := core.Spectrum{
		Wavenumbers: make([]float64, n),
		Intensities: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		x := 500 + float64(i) // 500..1500 cm⁻¹, 1 cm⁻¹ steps
		s.Wavenumbers[i] = x
		for k, c := range centers {
			d := (x - c) / width
			s.Intensities[i] += heights[k] * math.Exp(-0.5*d*d)
		}
	}
	return s
}

func TestSingleGaussianPeak(t *testing.T) {
	spec := gaussianSpectrum([]float64{1000}, []float64{100}, 8)

	idx := DetectRelative(spec.Intensities, Params{HeightPercent: 10, Distance: 10, ProminencePercent: 5})
	if len(idx) != 1 {
		t.Fatalf("Expected exactly 1 peak, got %d (%v)", len(idx), idx)
	}
	if got := spec.Wavenumbers[idx[0]]; math.Abs(got-1000) > 1 {
		t.Errorf("Peak at %.1f cm⁻¹, want ≈1000", got)
	}
}

func TestDetectThresholds(t *testing.T) {
	y := []float64{0, 5, 0, 1, 0, 10, 0, 3, 2, 3, 0}

	tests := []struct {
		name       string
		height     float64
		distance   int
		prominence float64
		want       []int
	}{
		{"all maxima", 0, 1, 0, []int{1, 3, 5, 7, 9}},
		{"height", 4, 1, 0, []int{1, 5}},
		{"distance keeps higher", 0, 3, 0, []int{1, 5, 9}},
		{"prominence", 0, 1, 2, []int{1, 5, 7, 9}},
		{"all constraints", 2, 3, 2, []int{1, 5, 9}},
		{"nothing qualifies", 11, 1, 0, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(y, tt.height, tt.distance, tt.prominence)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlateauAndEdges(t *testing.T) {
	// Edges are never peaks; a flat top counts once at its midpoint
	y := []float64{9, 1, 4, 4, 4, 1, 9}
	got := Detect(y, 0, 1, 0)
	if !reflect.DeepEqual(got, []int{3}) {
		t.Errorf("Detect() = %v, want [3]", got)
	}
}

func TestProminence(t *testing.T) {
	y := []float64{0, 5, 2, 7, 1, 4, 0}

	// Peak 1 stops at 7 on its right, so its base is 2
	tests := []struct {
		peak int
		want float64
	}{
		{1, 3},
		{3, 7},
		{5, 3},
	}

	for _, tt := range tests {
		if got := Prominence(y, tt.peak); got != tt.want {
			t.Errorf("Prominence(%d) = %v, want %v", tt.peak, got, tt.want)
		}
	}
}

func TestDetectIsIdempotent(t *testing.T) {
	spec := gaussianSpectrum([]float64{700, 1000, 1085}, []float64{40, 100, 70}, 6)
	p := DefaultParams()

	first := DetectRelative(spec.Intensities, p)
	second := DetectRelative(spec.Intensities, p)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Detection not idempotent: %v vs %v", first, second)
	}
	if len(first) != 3 {
		t.Errorf("Expected 3 peaks, got %d", len(first))
	}
}

func TestDistanceNeverIncreasesCount(t *testing.T) {
	spec := gaussianSpectrum(
		[]float64{600, 640, 700, 760, 800, 1000, 1030, 1085, 1200},
		[]float64{30, 25, 40, 20, 35, 100, 60, 70, 15},
		4,
	)

	prev := math.MaxInt
	for _, d := range []int{1, 5, 10, 20, 40, 80, 160, 400} {
		n := len(Detect(spec.Intensities, 0, d, 0))
		if n > prev {
			t.Errorf("distance %d found %d peaks, more than %d at a smaller distance", d, n, prev)
		}
		prev = n
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", DefaultParams(), false},
		{"zero distance", Params{HeightPercent: 10, Distance: 0}, true},
		{"height over 100", Params{HeightPercent: 120, Distance: 1}, true},
		{"negative prominence", Params{Distance: 1, ProminencePercent: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
