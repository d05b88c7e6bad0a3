package generate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/manvip28/Eval-Me-Maybe/internal/model"
)

type fakeCompleter struct {
	mu        sync.Mutex
	questions int
	fixed     string
	err       error
	prompts   []string
}

func (f *fakeCompleter) Complete(_ context.Context, _, prompt string, temperature float32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if temperature == questionTemp {
		if f.fixed != "" {
			return f.fixed, nil
		}
		f.questions++
		return fmt.Sprintf("<s> [OUT] Question: What is concept number %d in this material [/OUT] </s>", f.questions), nil
	}
	return "Answer: **Photosynthesis** converts light energy into chemical energy", nil
}

func longText(words int) string {
	base := strings.Fields("photosynthesis converts light energy into chemical energy stored in glucose by chlorophyll")
	out := make([]string, words)
	for i := range out {
		out[i] = base[i%len(base)]
	}
	return strings.Join(out, " ")
}

func TestSelectLevel(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		if got := SelectLevel(rng, 100); got != model.BloomRemember {
			t.Fatalf("SelectLevel(short) = %s, want Remember", got)
		}
		got := SelectLevel(rng, 1000)
		if !slices.Contains(model.BloomLevels[:3], got) {
			t.Fatalf("SelectLevel(medium) = %s, want one of the first three levels", got)
		}
		if got := SelectLevel(rng, 5000); !slices.Contains(model.BloomLevels, got) {
			t.Fatalf("SelectLevel(long) = %s, not a level", got)
		}
	}
}

func TestSelectLevelSeeded(t *testing.T) {
	a := rand.New(rand.NewPCG(7, 7))
	b := rand.New(rand.NewPCG(7, 7))
	for range 20 {
		if x, y := SelectLevel(a, 3000), SelectLevel(b, 3000); x != y {
			t.Fatalf("same seed gave %s and %s", x, y)
		}
	}
}

func TestChunk(t *testing.T) {
	content := longText(2000)
	tests := []struct {
		level model.BloomLevel
		marks int
		words int
	}{
		{model.BloomRemember, 1, 150},
		{model.BloomRemember, 2, 300},
		{model.BloomUnderstand, 5, 300},
		{model.BloomAnalyze, 8, 1000},
		{model.BloomCreate, 10, 2000},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.level, tt.marks), func(t *testing.T) {
			got, err := Chunk(content, tt.level, tt.marks)
			if err != nil {
				t.Fatalf("Chunk() error = %v", err)
			}
			if n := len(strings.Fields(got)); n != tt.words {
				t.Errorf("Chunk() words = %d, want %d", n, tt.words)
			}
		})
	}
}

func TestChunkErrors(t *testing.T) {
	if _, err := Chunk("x", model.BloomRemember, 5); err == nil {
		t.Error("expected error for marks outside the level")
	}
	if _, err := Chunk("x", "Memorize", 1); err == nil {
		t.Error("expected error for unknown level")
	}
	got, err := Chunk("only a few words", model.BloomRemember, 2)
	if err != nil || got != "only a few words" {
		t.Errorf("Chunk(short) = %q, %v", got, err)
	}
}

func TestCleanQuestion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"artifacts", "<s> [OUT] Question: what is the role of chlorophyll [/OUT] </s>", "what is the role of chlorophyll?", true},
		{"keeps question mark", "Why do leaves change colour?", "Why do leaves change colour?", true},
		{"statement gets period", "List the stages of mitosis", "List the stages of mitosis.", true},
		{"first line only", "What is ATP?\nIt is the energy currency.", "What is ATP?", true},
		{"markdown", "**Describe** the *water* cycle", "Describe the water cycle?", true},
		{"chat tokens", "<|im_start|>Which gas do plants absorb<|im_end|>", "Which gas do plants absorb?", true},
		{"too short", "What?", "", false},
		{"empty", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CleanQuestion(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("CleanQuestion(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCleanAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Answer: ATP stores   energy", "ATP stores energy.", true},
		{"**Model Answer:** Plants make food!", "Plants make food!", true},
		{"[INST] ok [/INST]", "", false},
	}
	for _, tt := range tests {
		got, ok := CleanAnswer(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CleanAnswer(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestKeywords(t *testing.T) {
	text := "Light drives photosynthesis. The light reaction uses light and chlorophyll; photosynthesis makes sugar in 2 steps."
	got := Keywords(text, 3)
	want := []string{"light", "photosynthesis", "drives"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keywords() = %q, want %q", got, want)
	}
	if got := Keywords("the and of it", 5); len(got) != 0 {
		t.Errorf("Keywords(stopwords) = %q, want empty", got)
	}
}

func TestJaccard(t *testing.T) {
	a := wordSet("water cycle evaporation")
	b := wordSet("the evaporation of water")
	if got := Jaccard(a, b); got != 2.0/3 {
		t.Errorf("Jaccard() = %v, want 2/3", got)
	}
	if got := Jaccard(wordSet(""), wordSet("")); got != 0 {
		t.Errorf("Jaccard(empty) = %v, want 0", got)
	}
}

func TestAttachDiagrams(t *testing.T) {
	entries := []model.QuestionEntry{
		{ID: "Q1", Question: "Describe the water cycle.", Text: "Evaporation condensation precipitation."},
		{ID: "Q2", Question: "Label the parts of a plant cell.", Text: "Cell wall membrane nucleus chloroplast."},
	}
	diagrams := []Diagram{
		{Ref: "cell.png", Context: "Figure 2: plant cell showing nucleus and chloroplast"},
		{Ref: "cycle.png", Context: "Figure 1: the water cycle with evaporation"},
		{Ref: "unrelated.png", Context: "stock prices"},
	}
	AttachDiagrams(entries, diagrams)
	if !reflect.DeepEqual(entries[0].Images, []string{"cycle.png"}) {
		t.Errorf("Q1 images = %q, want [cycle.png]", entries[0].Images)
	}
	if !reflect.DeepEqual(entries[1].Images, []string{"cell.png"}) {
		t.Errorf("Q2 images = %q, want [cell.png]", entries[1].Images)
	}
}

func TestGenerate(t *testing.T) {
	fc := &fakeCompleter{}
	g, err := New(fc, Options{PerTopic: 2, Seed: 42})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	topics := []Topic{
		{Title: "Photosynthesis", Content: longText(400), Keywords: []string{"chlorophyll", "glucose", "light"}},
		{Title: "Energy", Content: longText(80)},
		{Title: "Empty", Content: "the and of"},
	}
	sheet, err := g.Generate(context.Background(), topics, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if sheet.Kind != model.KindAnswerKey {
		t.Errorf("Kind = %s, want answer key", sheet.Kind)
	}
	if got, want := sheet.IDs(), []string{"Q1", "Q2", "Q3", "Q4"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("IDs() = %q, want %q", got, want)
	}
	for _, e := range sheet.Entries {
		if !slices.Contains(Levels[e.BloomLevel].Marks, e.Marks) {
			t.Errorf("%s: marks %d not allowed for %s", e.ID, e.Marks, e.BloomLevel)
		}
		if len(e.Keywords) == 0 {
			t.Errorf("%s: no keywords", e.ID)
		}
		if !strings.HasSuffix(e.Question, "?") || strings.Contains(e.Question, "[OUT]") {
			t.Errorf("%s: question not cleaned: %q", e.ID, e.Question)
		}
		if e.Text != "Photosynthesis converts light energy into chemical energy." {
			t.Errorf("%s: answer = %q", e.ID, e.Text)
		}
	}
	// Two topics with keywords, two questions each, one completion per
	// question and one per answer.
	if len(fc.prompts) != 8 {
		t.Errorf("completions = %d, want 8", len(fc.prompts))
	}
	if !strings.Contains(fc.prompts[0], "<source-content>") {
		t.Errorf("question prompt missing source block: %q", fc.prompts[0])
	}
}

func TestGenerateSkipsDuplicates(t *testing.T) {
	fc := &fakeCompleter{fixed: "What is the main purpose of photosynthesis in plants"}
	g, err := New(fc, Options{PerTopic: 3, Seed: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sheet, err := g.Generate(context.Background(), []Topic{{Title: "t", Content: longText(50)}}, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if sheet.Len() != 1 {
		t.Errorf("Len() = %d, want 1", sheet.Len())
	}
}

func TestGenerateModelFailure(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("model down")}
	g, err := New(fc, Options{Seed: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sheet, err := g.Generate(context.Background(), []Topic{{Title: "t", Content: longText(50)}}, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if sheet.Len() != 0 {
		t.Errorf("Len() = %d, want 0", sheet.Len())
	}
}

func TestGenerateCanceled(t *testing.T) {
	g, err := New(&fakeCompleter{}, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Generate(ctx, []Topic{{Title: "t", Content: longText(50)}}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

func TestDecodeTopics(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"array", `[{"title":"A","content":"x"},{"title":"B","content":"y","keywords":["k"]}]`, []string{"A", "B"}},
		{"object keeps order", `{"Zeta":"z","Alpha":"a"}`, []string{"Zeta", "Alpha"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topics, err := DecodeTopics(strings.NewReader(tt.in))
			if err != nil {
				t.Fatalf("DecodeTopics() error = %v", err)
			}
			var titles []string
			for _, tp := range topics {
				titles = append(titles, tp.Title)
			}
			if !reflect.DeepEqual(titles, tt.want) {
				t.Errorf("titles = %q, want %q", titles, tt.want)
			}
		})
	}
	if _, err := DecodeTopics(strings.NewReader(`"nope"`)); err == nil {
		t.Error("expected error for scalar input")
	}
}
