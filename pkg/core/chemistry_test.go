package core

import (
	"reflect"
	"testing"
)

func TestElementsFromFormula(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		want    []string
	}{
		{"calcite", "CaCO3", []string{"C", "Ca", "O"}},
		{"rruff subscripts", "Mg_2_SiO_4_", []string{"Mg", "O", "Si"}},
		{"hydrated", "MgSO4·7H2O", []string{"H", "Mg", "O", "S"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ElementsFromFormula(tt.formula)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ElementsFromFormula(%q) = %v, want %v", tt.formula, got, tt.want)
			}
		})
	}
}

func TestElementsPrefersExplicitField(t *testing.T) {
	md := Metadata{
		KeyChemistryElements: "ca, c ,o",
		KeyFormula:           "SiO2",
	}

	got, ok := Elements(md)
	if !ok {
		t.Fatal("Expected element data")
	}
	want := []string{"C", "Ca", "O"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Elements() = %v, want %v", got, want)
	}
}

func TestElementsFallback(t *testing.T) {
	got, ok := Elements(Metadata{KeyIdealChemistry: "SiO_2_"})
	if !ok || !reflect.DeepEqual(got, []string{"O", "Si"}) {
		t.Errorf("Elements() = %v, %v; want [O Si], true", got, ok)
	}

	if _, ok := Elements(Metadata{KeyName: "Unknown"}); ok {
		t.Error("Expected no element data")
	}
}

func TestNormalizeMetadata(t *testing.T) {
	md := NormalizeMetadata(map[string]string{
		"Chemical Family":  " Carbonate ",
		"hey_class":        "Carbonates",
		"IDEAL  CHEMISTRY": "CaCO_3_",
		"names":            "Calcite",
		"Locality":         "Iceland",
	})

	tests := []struct {
		key  string
		want string
	}{
		{KeyChemicalFamily, "Carbonate"},
		{KeyHeyClassification, "Carbonates"},
		{KeyIdealChemistry, "CaCO_3_"},
		{KeyName, "Calcite"},
		{"LOCALITY", "Iceland"},
	}
	for _, tt := range tests {
		if got := md.Get(tt.key); got != tt.want {
			t.Errorf("md[%q] = %q, want %q", tt.key, got, tt.want)
		}
	}
}
