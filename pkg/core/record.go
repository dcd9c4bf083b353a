package core

// Record is a reference spectrum stored in a library. Records are treated
// as read-only once stored.
type Record struct {
	Name        string
	Wavenumbers []float64
	Intensities []float64
	Metadata    Metadata
	Peaks       []float64 // peak positions in cm⁻¹, optional
}

// Spectrum returns the record's spectral data. The slices are shared.
func (r *Record) Spectrum() Spectrum {
	return Spectrum{Wavenumbers: r.Wavenumbers, Intensities: r.Intensities}
}

// HasSpectrum reports whether the record carries any spectral data.
func (r *Record) HasSpectrum() bool {
	return len(r.Wavenumbers) > 0 && len(r.Intensities) > 0
}

// MatchResult is one ranked candidate returned by a search.
type MatchResult struct {
	Name     string
	Score    float64
	Metadata Metadata
	Peaks    []float64
}

// Library is the read side of a reference database: a name -> record
// mapping with a stable iteration order.
type Library interface {
	Names() []string
	Get(name string) (*Record, bool)
}

// Records materializes every record of a library in iteration order.
func Records(lib Library) []*Record {
	names := lib.Names()
	out := make([]*Record, 0, len(names))
	for _, name := range names {
		if rec, ok := lib.Get(name); ok {
			out = append(out, rec)
		}
	}
	return out
}

// MemoryLibrary is an in-memory Library that preserves insertion order.
type MemoryLibrary struct {
	names   []string
	records map[string]*Record
}

// NewMemoryLibrary creates a library holding the given records.
func NewMemoryLibrary(records ...*Record) *MemoryLibrary {
	lib := &MemoryLibrary{records: make(map[string]*Record)}
	for _, rec := range records {
		lib.Add(rec)
	}
	return lib
}

// Add inserts or replaces a record. Replacing keeps the original position.
func (l *MemoryLibrary) Add(rec *Record) {
	if _, ok := l.records[rec.Name]; !ok {
		l.names = append(l.names, rec.Name)
	}
	l.records[rec.Name] = rec
}

// Names returns record names in insertion order.
func (l *MemoryLibrary) Names() []string {
	return append([]string(nil), l.names...)
}

// Get looks up a record by name.
func (l *MemoryLibrary) Get(name string) (*Record, bool) {
	rec, ok := l.records[name]
	return rec, ok
}

// Len returns the number of records.
func (l *MemoryLibrary) Len() int {
	return len(l.names)
}
