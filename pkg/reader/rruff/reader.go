// Package rruff provides streaming readers for RRUFF-style reference
// spectrum files
package rruff

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

// Header keys that identify a record when NAME is missing
const (
	keyEnd     = "END"
	keyRRUFFID = "RRUFFID"
)

// Reader provides streaming access to RRUFF files. A file holds one or
// more records: "##KEY=VALUE" header lines, "x, y" data lines and a
// closing "##END=" line.
type Reader struct {
	scanner      *bufio.Scanner
	fallbackName string
	lineNum      int
	count        int
	current      *core.Record
	err          error
}

// NewReader creates a new RRUFF reader. fallbackName names records that
// carry neither NAME nor RRUFFID headers.
func NewReader(r io.Reader, fallbackName string) *Reader {
	return &Reader{
		scanner:      bufio.NewScanner(r),
		fallbackName: fallbackName,
	}
}

// Next advances to the next record. Returns false when no more records or error.
func (r *Reader) Next() bool {
	r.current = nil

	rec, err := r.readRecord()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.count++
	r.current = rec
	return true
}

// Record returns the current record
func (r *Reader) Record() *core.Record {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// ReadAll reads every record from r
func ReadAll(r io.Reader, fallbackName string) ([]*core.Record, error) {
	reader := NewReader(r, fallbackName)
	var records []*core.Record
	for reader.Next() {
		records = append(records, reader.Record())
	}
	return records, reader.Err()
}

// readRecord reads a single record up to "##END=" or the end of input
func (r *Reader) readRecord() (*core.Record, error) {
	raw := make(map[string]string)
	var wn, inten []float64

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "##") {
			key, value, _ := strings.Cut(strings.TrimPrefix(line, "##"), "=")
			key = strings.TrimSpace(key)
			if strings.EqualFold(key, keyEnd) {
				if len(raw) == 0 && len(wn) == 0 {
					continue
				}
				return r.build(raw, wn, inten)
			}
			if key != "" {
				raw[key] = value
			}
			continue
		}

		// Parse data line
		x, y, err := parsePoint(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		wn = append(wn, x)
		inten = append(inten, y)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// A trailing record without ##END= still counts
	if len(wn) > 0 {
		return r.build(raw, wn, inten)
	}

	return nil, io.EOF
}

// build assembles a record with canonical metadata and a resolved name
func (r *Reader) build(raw map[string]string, wn, inten []float64) (*core.Record, error) {
	rec := &core.Record{
		Wavenumbers: wn,
		Intensities: inten,
		Metadata:    core.NormalizeMetadata(raw),
	}

	rec.Name = rec.Metadata.Get(core.KeyName)
	if rec.Name == "" {
		rec.Name = rec.Metadata.Get(keyRRUFFID)
	}
	if rec.Name == "" {
		rec.Name = r.fallbackName
		if r.count > 0 {
			rec.Name = fmt.Sprintf("%s_%d", r.fallbackName, r.count+1)
		}
	}
	if rec.Name == "" {
		return nil, fmt.Errorf("line %d: record has no name", r.lineNum)
	}
	rec.Metadata[core.KeyName] = rec.Name

	if len(wn) == 0 {
		return nil, fmt.Errorf("line %d: record %q has no data points", r.lineNum, rec.Name)
	}
	return rec, nil
}

// parsePoint parses "x, y", "x y" or "x\ty"
func parsePoint(line string) (float64, float64, error) {
	fields := strings.FieldsFunc(line, func(c rune) bool {
		return c == ',' || c == ' ' || c == '\t' || c == ';'
	})
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("invalid data line %q, expected 'x, y'", line)
	}

	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid wavenumber: %w", err)
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid intensity: %w", err)
	}
	return x, y, nil
}
