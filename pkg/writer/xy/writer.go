// Package xy writes spectra as two-column text
package xy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

// Write writes s as "wavenumber,intensity" lines with a header row.
// Extra columns, such as a baseline, are appended when given and must
// match the spectrum length.
func Write(w io.Writer, s core.Spectrum, extra ...Column) error {
	if err := s.Validate(); err != nil {
		return err
	}
	for _, col := range extra {
		if len(col.Values) != s.Len() {
			return fmt.Errorf("column %s has %d values, spectrum has %d", col.Name, len(col.Values), s.Len())
		}
	}

	bw := bufio.NewWriter(w)

	// Header
	bw.WriteString("wavenumber,intensity")
	for _, col := range extra {
		bw.WriteString(",")
		bw.WriteString(col.Name)
	}
	bw.WriteString("\n")

	for i := range s.Wavenumbers {
		bw.WriteString(formatFloat(s.Wavenumbers[i]))
		bw.WriteString(",")
		bw.WriteString(formatFloat(s.Intensities[i]))
		for _, col := range extra {
			bw.WriteString(",")
			bw.WriteString(formatFloat(col.Values[i]))
		}
		bw.WriteString("\n")
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write spectrum: %w", err)
	}
	return nil
}

// WriteFile creates path and writes s to it
func WriteFile(path string, s core.Spectrum, extra ...Column) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := Write(f, s, extra...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Column is an additional named output column
type Column struct {
	Name   string
	Values []float64
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
