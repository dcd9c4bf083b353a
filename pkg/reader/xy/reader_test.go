package xy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []float64
	}{
		{"comma", "100,1\n200,2\n300,3\n", []float64{100, 200, 300}},
		{"tab with header", "Wavenumber\tIntensity\n100\t1\n200\t2\n", []float64{100, 200}},
		{"comments", "# exported\n% instrument\n100 1\n// note\n200 2\n", []float64{100, 200}},
		{"extra columns", "100, 1, 0.1\n200, 2, 0.2\n", []float64{100, 200}},
		{"title line", "Quartz sample\n100;1\n200;2\n", []float64{100, 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Read(strings.NewReader(tt.data))
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if spec.Len() != len(tt.want) {
				t.Fatalf("Expected %d points, got %d", len(tt.want), spec.Len())
			}
			for i, w := range tt.want {
				if spec.Wavenumbers[i] != w {
					t.Errorf("wavenumber[%d] = %v, want %v", i, spec.Wavenumbers[i], w)
				}
			}
		})
	}
}

func TestReadErrors(t *testing.T) {
	if _, err := Read(strings.NewReader("100 1\n200 oops\n")); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Expected line 2 error, got %v", err)
	}

	_, err := Read(strings.NewReader("# nothing here\n"))
	var dataErr *core.DataError
	if !errors.As(err, &dataErr) {
		t.Errorf("Expected DataError for empty file, got %v", err)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.txt")
	if err := os.WriteFile(path, []byte("100 1\n200 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	spec, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if spec.Len() != 2 {
		t.Errorf("Expected 2 points, got %d", spec.Len())
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}
