package generate

import (
	"github.com/samber/lo"

	"github.com/manvip28/Eval-Me-Maybe/internal/assign"
	"github.com/manvip28/Eval-Me-Maybe/internal/model"
	"github.com/manvip28/Eval-Me-Maybe/internal/textnorm"
)

// minDiagramOverlap is the Jaccard similarity a diagram's context must
// exceed to be attached to a question.
const minDiagramOverlap = 0.1

// Diagram is an extracted figure with the text that surrounded it.
type Diagram struct {
	Ref     string `json:"ref"`
	Context string `json:"context"`
}

// AttachDiagrams assigns each diagram to at most one entry by word overlap
// between the diagram context and the entry's question and answer. Each
// entry receives at most one diagram. Entries are modified in place.
func AttachDiagrams(entries []model.QuestionEntry, diagrams []Diagram) {
	if len(entries) == 0 || len(diagrams) == 0 {
		return
	}
	entryWords := lo.Map(entries, func(e model.QuestionEntry, _ int) map[string]struct{} {
		return wordSet(e.Question + " " + e.Text)
	})
	scores := make([][]float64, len(diagrams))
	for i, d := range diagrams {
		ctx := wordSet(d.Context)
		scores[i] = make([]float64, len(entries))
		for j := range entries {
			scores[i][j] = Jaccard(ctx, entryWords[j])
		}
	}
	for _, p := range assign.Greedy(scores, minDiagramOverlap) {
		entries[p.Col].Images = append(entries[p.Col].Images, diagrams[p.Row].Ref)
	}
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range textnorm.Tokenize(text) {
		if stopwords[tok] {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}
