// Package filter provides metadata predicates that narrow a reference
// library down to search candidates
package filter

import (
	"strings"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

// Config holds filtering configuration. Peak positions are deliberately
// absent: they feed the scorers and never eliminate a record.
type Config struct {
	ChemicalFamily   string   // case-insensitive substring of CHEMICAL FAMILY ("" = any)
	Classification   string   // case-insensitive substring of HEY CLASSIFICATION ("" = any)
	OnlyElements     []string // record elements must be a subset (nil = no constraint)
	RequiredElements []string // record must contain all of these
	ExcludedElements []string // record must contain none of these
}

// IsEmpty reports whether the config filters nothing.
func (c *Config) IsEmpty() bool {
	return c == nil || (strings.TrimSpace(c.ChemicalFamily) == "" &&
		strings.TrimSpace(c.Classification) == "" &&
		len(c.OnlyElements) == 0 &&
		len(c.RequiredElements) == 0 &&
		len(c.ExcludedElements) == 0)
}

// Apply returns the records that pass every configured predicate, in
// their original order
func (c *Config) Apply(records []*core.Record) []*core.Record {
	if c.IsEmpty() {
		return records
	}
	var filtered []*core.Record
	for _, rec := range records {
		if c.Passes(rec) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// Passes evaluates every configured predicate against a record
func (c *Config) Passes(rec *core.Record) bool {
	if c.IsEmpty() {
		return true
	}
	if rec == nil {
		return false
	}

	// Text predicates first
	if !containsFold(rec.Metadata.Get(core.KeyChemicalFamily), c.ChemicalFamily) {
		return false
	}
	if !containsFold(rec.Metadata.Get(core.KeyHeyClassification), c.Classification) {
		return false
	}

	if !c.hasElementFilters() {
		return true
	}

	// A record without element data fails any element predicate
	elems, ok := core.Elements(rec.Metadata)
	if !ok {
		return false
	}
	have := toSet(elems)

	if len(c.OnlyElements) > 0 {
		allowed := toSet(c.OnlyElements)
		for e := range have {
			if _, ok := allowed[e]; !ok {
				return false
			}
		}
	}
	for _, e := range c.RequiredElements {
		if _, ok := have[core.NormalizeElement(e)]; !ok {
			return false
		}
	}
	for _, e := range c.ExcludedElements {
		if _, ok := have[core.NormalizeElement(e)]; ok {
			return false
		}
	}
	return true
}

func (c *Config) hasElementFilters() bool {
	return len(c.OnlyElements) > 0 || len(c.RequiredElements) > 0 || len(c.ExcludedElements) > 0
}

// containsFold is a case-insensitive substring match; an empty needle
// matches anything
func containsFold(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// toSet normalizes element symbols into a set
func toSet(elems []string) map[string]struct{} {
	set := make(map[string]struct{}, len(elems))
	for _, e := range elems {
		if sym := core.NormalizeElement(e); sym != "" {
			set[sym] = struct{}{}
		}
	}
	return set
}

// RemoveEmptyRecords drops records without spectral data
func RemoveEmptyRecords(records []*core.Record) []*core.Record {
	var filtered []*core.Record
	for _, rec := range records {
		if rec != nil && rec.HasSpectrum() {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
