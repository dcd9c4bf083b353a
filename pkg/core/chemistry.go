package core

import (
	"regexp"
	"sort"
	"strings"
)

// elementToken matches element symbols: a capital letter followed by an
// optional lowercase letter.
var elementToken = regexp.MustCompile(`[A-Z][a-z]?`)

// Elements returns the set of element symbols of a record. The explicit
// CHEMISTRY ELEMENTS field wins; otherwise the formula (FORMULA, then
// IDEAL CHEMISTRY) is scanned for element tokens. The bool is false when
// the record carries no element data at all.
func Elements(md Metadata) ([]string, bool) {
	if list := md.Get(KeyChemistryElements); strings.TrimSpace(list) != "" {
		if elems := ParseElementList(list); len(elems) > 0 {
			return elems, true
		}
	}
	for _, key := range []string{KeyFormula, KeyIdealChemistry} {
		if formula := md.Get(key); strings.TrimSpace(formula) != "" {
			if elems := ElementsFromFormula(formula); len(elems) > 0 {
				return elems, true
			}
		}
	}
	return nil, false
}

// ParseElementList parses a comma, semicolon or whitespace separated list
// of element symbols ("Ca, C, O" or "Ca C O").
func ParseElementList(list string) []string {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if sym := NormalizeElement(f); sym != "" {
			set[sym] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// ElementsFromFormula extracts element symbols from a chemical formula such
// as "CaCO3" or "Mg_2_SiO_4_". Parsing is intentionally crude: every
// capital-letter-led token counts as an element.
func ElementsFromFormula(formula string) []string {
	set := make(map[string]struct{})
	for _, tok := range elementToken.FindAllString(formula, -1) {
		set[tok] = struct{}{}
	}
	return sortedKeys(set)
}

// NormalizeElement title-cases an element symbol ("ca" -> "Ca").
func NormalizeElement(sym string) string {
	sym = strings.TrimSpace(sym)
	if sym == "" {
		return ""
	}
	return strings.ToUpper(sym[:1]) + strings.ToLower(sym[1:])
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
