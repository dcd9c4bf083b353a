// Package xy reads two-column (wavenumber, intensity) spectrum files
package xy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

// Read parses a two-column text spectrum. Comment lines (#, %, //) and
// non-numeric header lines before the first data line are skipped. Extra
// columns are ignored.
func Read(r io.Reader) (core.Spectrum, error) {
	scanner := bufio.NewScanner(r)
	var spec core.Spectrum
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || isComment(line) {
			continue
		}

		fields := strings.FieldsFunc(line, isSeparator)
		if len(fields) < 2 {
			if len(spec.Wavenumbers) == 0 {
				continue
			}
			return core.Spectrum{}, fmt.Errorf("line %d: expected 2 columns, got %d", lineNum, len(fields))
		}

		x, errX := strconv.ParseFloat(fields[0], 64)
		y, errY := strconv.ParseFloat(fields[1], 64)
		if errX != nil || errY != nil {
			// Column headers such as "Wavenumber,Intensity"
			if len(spec.Wavenumbers) == 0 {
				continue
			}
			return core.Spectrum{}, fmt.Errorf("line %d: invalid data line '%s'", lineNum, line)
		}

		spec.Wavenumbers = append(spec.Wavenumbers, x)
		spec.Intensities = append(spec.Intensities, y)
	}

	if err := scanner.Err(); err != nil {
		return core.Spectrum{}, fmt.Errorf("error reading spectrum: %w", err)
	}

	if err := spec.Validate(); err != nil {
		return core.Spectrum{}, err
	}
	return spec, nil
}

// ReadFile opens path and parses it with Read
func ReadFile(path string) (core.Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Spectrum{}, fmt.Errorf("failed to open spectrum file: %w", err)
	}
	defer f.Close()

	spec, err := Read(f)
	if err != nil {
		return core.Spectrum{}, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "#") || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "//")
}

func isSeparator(c rune) bool {
	return c == ',' || c == ';' || c == ' ' || c == '\t'
}
