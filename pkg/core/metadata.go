package core

import "strings"

// Canonical metadata keys.
const (
	KeyName              = "NAME"
	KeyChemicalFamily    = "CHEMICAL FAMILY"
	KeyHeyClassification = "HEY CLASSIFICATION"
	KeyChemistryElements = "CHEMISTRY ELEMENTS"
	KeyFormula           = "FORMULA"
	KeyIdealChemistry    = "IDEAL CHEMISTRY"
)

// metadataSynonyms maps normalized spellings onto canonical keys.
var metadataSynonyms = map[string]string{
	"NAME":               KeyName,
	"NAMES":              KeyName,
	"MINERAL":            KeyName,
	"MINERAL NAME":       KeyName,
	"CHEMICAL FAMILY":    KeyChemicalFamily,
	"FAMILY":             KeyChemicalFamily,
	"HEY CLASSIFICATION": KeyHeyClassification,
	"HEY CLASS":          KeyHeyClassification,
	"CLASSIFICATION":     KeyHeyClassification,
	"CHEMISTRY ELEMENTS": KeyChemistryElements,
	"ELEMENTS":           KeyChemistryElements,
	"FORMULA":            KeyFormula,
	"CHEMICAL FORMULA":   KeyFormula,
	"IDEAL CHEMISTRY":    KeyIdealChemistry,
}

// Metadata is a record's descriptive fields keyed by canonical names.
type Metadata map[string]string

// Get returns the value for a canonical key.
func (m Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return m[key]
}

// Clone returns a copy of the metadata.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CanonicalKey normalizes a raw metadata key: upper case, underscores and
// runs of whitespace become single spaces, and known synonyms are mapped
// onto their canonical key.
func CanonicalKey(raw string) string {
	key := strings.ToUpper(strings.ReplaceAll(raw, "_", " "))
	key = strings.Join(strings.Fields(key), " ")
	if canonical, ok := metadataSynonyms[key]; ok {
		return canonical
	}
	return key
}

// NormalizeMetadata converts raw key/value pairs to canonical keys.
// Empty values never overwrite non-empty ones.
func NormalizeMetadata(raw map[string]string) Metadata {
	md := make(Metadata, len(raw))
	for k, v := range raw {
		key := CanonicalKey(k)
		if key == "" {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" && md[key] != "" {
			continue
		}
		md[key] = v
	}
	return md
}
