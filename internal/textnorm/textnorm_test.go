package textnorm

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", "  \t\n ", []string{}},
		{"punctuation only", "?!.,;", []string{}},
		{"simple", "Paris is the capital of France.", []string{"paris", "is", "the", "capital", "of", "france"}},
		{"collapse spaces", "a   b\n\nc", []string{"a", "b", "c"}},
		{"apostrophe inside word", "Don't stop", []string{"don't", "stop"}},
		{"curly apostrophe", "it’s fine", []string{"it's", "fine"}},
		{"quote marks dropped", "'quoted' word", []string{"quoted", "word"}},
		{"hyphen splits", "light-dependent", []string{"light", "dependent"}},
		{"digits kept", "H2O at 100C", []string{"h2o", "at", "100c"}},
		{"non-ascii", "Ёжик в тумане", []string{"ёжик", "в", "тумане"}},
		{"fullwidth folded", "ＡＢＣ", []string{"abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank("  ...  ") {
		t.Error("punctuation and spaces should be blank")
	}
	if IsBlank("x") {
		t.Error("single letter should not be blank")
	}
}

func TestCanonicalID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Q1", "Q1"},
		{"Q1.", "Q1"},
		{"q1:", "Q1"},
		{" Q1) ", "Q1"},
		{"Q01", "Q1"},
		{"Q 12-", "Q12"},
		{"(Q3)", "Q3"},
		{"Ｑ１", "Q1"},
		{"Q１．", "Q1"},
		{"7.", "Q7"},
		{"Q0", "Q0"},
		{"Q00", "Q0"},
		{"Q1a", "Q1a"},
		{"Part A", "Part A"},
		{"", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := CanonicalID(tt.in)
			if got != tt.want {
				t.Errorf("CanonicalID(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := CanonicalID(got); again != got {
				t.Errorf("CanonicalID not idempotent: %q -> %q -> %q", tt.in, got, again)
			}
		})
	}
}
