package metric

import (
	"math"
	"strings"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBLEUEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		cand, ref string
		want      float64
	}{
		{"both empty", "", "", 1},
		{"both blank", "  ..", "?", 1},
		{"empty candidate", "", "some reference", 0},
		{"empty reference", "some answer", "", 0},
		{"identical", "Paris is the capital of France.", "paris is the capital of france", 1},
		{"identical single token", "ATP", "atp", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BLEU(tt.cand, tt.ref)
			if !approx(got, tt.want) {
				t.Errorf("BLEU(%q, %q) = %v, want %v", tt.cand, tt.ref, got, tt.want)
			}
		})
	}
}

func TestBLEUClipsRepeatedTokens(t *testing.T) {
	// "the the the" against "the cat": unigram clipped to 1 of 3.
	cand := []string{"the", "the", "the"}
	ref := []string{"the", "cat"}
	got := modifiedPrecision(cand, ref, 1)
	if !approx(got, 1.0/3) {
		t.Errorf("modifiedPrecision = %v, want 1/3", got)
	}
}

func TestBLEUBrevityPenalty(t *testing.T) {
	full := BLEU("the cat sat on the mat", "the cat sat on the mat")
	short := BLEU("the cat sat", "the cat sat on the mat")
	if !(short < full) {
		t.Errorf("short candidate %v should score below full %v", short, full)
	}
	// All n-grams of the short candidate match, so only the penalty applies.
	want := math.Exp(1 - 6.0/3.0)
	if !approx(short, want) {
		t.Errorf("BLEU(short) = %v, want %v", short, want)
	}
}

func TestBLEUDisjointIsSmall(t *testing.T) {
	got := BLEU("alpha beta gamma delta", "one two three four")
	if got <= 0 || got > 0.2 {
		t.Errorf("disjoint BLEU = %v, want small positive (smoothed)", got)
	}
}

func TestRougeLEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		cand, ref string
		want      float64
	}{
		{"both empty", "", "", 1},
		{"empty candidate", "", "ref", 0},
		{"empty reference", "cand", "", 0},
		{"disjoint", "a b c", "x y z", 0},
		{"identical", "the water cycle", "The water cycle.", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RougeL(tt.cand, tt.ref)
			if !approx(got, tt.want) {
				t.Errorf("RougeL(%q, %q) = %v, want %v", tt.cand, tt.ref, got, tt.want)
			}
		})
	}
}

func TestRougeLPartial(t *testing.T) {
	s := RougeLTokens(
		strings.Fields("water evaporates condenses then precipitates"),
		strings.Fields("the water cycle involves evaporation condensation and precipitation"),
	)
	if !approx(s.Precision, 0.2) || !approx(s.Recall, 0.125) {
		t.Errorf("precision/recall = %v/%v, want 0.2/0.125", s.Precision, s.Recall)
	}
	b2 := RougeBeta * RougeBeta
	want := (1 + b2) * 0.2 * 0.125 / (0.125 + b2*0.2)
	if !approx(s.FMeasure, want) {
		t.Errorf("FMeasure = %v, want %v", s.FMeasure, want)
	}
}

func TestLCSLength(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"a b c", "", 0},
		{"a b c d", "a c d", 3},
		{"a c d", "a b c d", 3},
		{"a b c b d a b", "b d c a b a", 4},
		{"x y", "y x", 1},
	}
	for _, tt := range tests {
		got := LCSLength(strings.Fields(tt.a), strings.Fields(tt.b))
		if got != tt.want {
			t.Errorf("LCSLength(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMetricsBounded(t *testing.T) {
	huge := strings.Repeat("lorem ipsum dolor sit amet ", 400)
	inputs := []string{"", " ", "a", "a a a a a a", "日本語 テキスト", huge, "Ünïcödé wörds 123"}
	for _, c := range inputs {
		for _, r := range inputs {
			for name, v := range map[string]float64{"bleu": BLEU(c, r), "rouge_l": RougeL(c, r)} {
				if v < 0 || v > 1 || math.IsNaN(v) {
					t.Errorf("%s(%.20q, %.20q) = %v out of [0,1]", name, c, r, v)
				}
			}
		}
	}
}
