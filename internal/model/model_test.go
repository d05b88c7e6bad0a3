package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewSheetDropsDuplicates(t *testing.T) {
	s, dups := NewSheet(KindAnswerKey, []QuestionEntry{
		{ID: "Q1", Text: "first"},
		{ID: "Q2", Text: "second"},
		{ID: "Q1", Text: "again"},
	})
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if len(dups) != 1 || dups[0] != "Q1" {
		t.Errorf("dups = %v, want [Q1]", dups)
	}
	e, ok := s.Lookup("Q1")
	if !ok || e.Text != "first" {
		t.Errorf("Lookup(Q1) = %+v, %v; want first entry", e, ok)
	}
	if _, ok := s.Lookup("Q3"); ok {
		t.Error("Lookup(Q3) should miss")
	}
}

func TestSheetLookupCanonicalizes(t *testing.T) {
	built, dups := NewSheet(KindSubmission, []QuestionEntry{
		{ID: "q01:", Text: "first"},
		{ID: "Q1", Text: "again"},
	})
	if len(dups) != 1 {
		t.Errorf("dups = %v, want one", dups)
	}
	if got := built.IDs(); len(got) != 1 || got[0] != "Q1" {
		t.Errorf("IDs() = %v, want [Q1]", got)
	}
	literal := &Sheet{Kind: KindSubmission, Entries: []QuestionEntry{{ID: "Q1", Text: "first"}}}

	for name, s := range map[string]*Sheet{"built": built, "literal": literal} {
		for _, id := range []string{"Q1", "q1", "Q01.", " (Q1) ", "1"} {
			e, ok := s.Lookup(id)
			if !ok || e.Text != "first" {
				t.Errorf("%s: Lookup(%q) = %+v, %v; want first entry", name, id, e, ok)
			}
		}
	}
}

func TestNilSheet(t *testing.T) {
	var s *Sheet
	if s.Len() != 0 {
		t.Error("nil sheet should have zero length")
	}
	if _, ok := s.Lookup("Q1"); ok {
		t.Error("nil sheet lookup should miss")
	}
}

func TestResultsJSONKeepsOrder(t *testing.T) {
	sem := 0.5
	report := EvaluationReport{
		IndividualResults: Results{
			{QuestionID: "Q2", RawScore: 10, EvaluationDetails: EvaluationDetails{SemanticScore: &sem}},
			{QuestionID: "Q10", RawScore: 20},
			{QuestionID: "Q1", RawScore: 30},
		},
		Summary: Summary{TotalQuestions: 3},
	}
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	i2, i10, i1 := strings.Index(s, `"Q2":`), strings.Index(s, `"Q10":`), strings.Index(s, `"Q1":`)
	if !(i2 < i10 && i10 < i1) {
		t.Errorf("keys out of order in %s", s)
	}
	if !strings.Contains(s, `"image_similarity":null`) {
		t.Errorf("missing null image_similarity in %s", s)
	}

	var back EvaluationReport
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(back.IndividualResults) != 3 || back.IndividualResults[1].QuestionID != "Q10" {
		t.Errorf("round trip order = %+v", back.IndividualResults)
	}
	r, ok := back.IndividualResults.Get("Q2")
	if !ok || r.EvaluationDetails.SemanticScore == nil || *r.EvaluationDetails.SemanticScore != 0.5 {
		t.Errorf("Get(Q2) = %+v, %v", r, ok)
	}
}

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		w       Weights
		wantErr bool
	}{
		{"default", DefaultWeights(), false},
		{"negative", Weights{Semantic: -1, Lexical: 1, Sequence: 1}, true},
		{"zero text", Weights{Image: 0.2}, true},
		{"image too big", Weights{Semantic: 1, Image: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEvalConfigValidate(t *testing.T) {
	cfg := DefaultEvalConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg.MaxScore = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero max score should be rejected")
	}
}
