// Package generate builds answer keys from study material: it picks a Bloom
// level and mark value per question, asks a language model for a question
// and a model answer, and cleans the output.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/samber/lo"

	"github.com/manvip28/Eval-Me-Maybe/internal/llm/prompts"
	"github.com/manvip28/Eval-Me-Maybe/internal/model"
)

const (
	systemPrompt       = "You are an expert exam setter. Follow the instructions exactly and output only what is asked."
	questionTemp       = 0.7
	answerTemp         = 0.3
	fallbackKeywords   = 5
	minDuplicateLength = 20
)

// Completer is a chat-completion model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, temperature float32) (string, error)
}

// Topic is one section of study material.
type Topic struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords,omitempty"`
}

// Options controls generation.
type Options struct {
	PerTopic int    // questions per topic, 0 means 1
	Seed     uint64 // seeds level, marks and keyword selection
}

// Generator produces answer-key questions.
type Generator struct {
	llm      Completer
	rng      *rand.Rand
	perTopic int
}

// New creates a Generator. It loads the built-in prompt templates.
func New(c Completer, opts Options) (*Generator, error) {
	if err := prompts.Load(prompts.Templates); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	return &Generator{
		llm:      c,
		rng:      rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		perTopic: max(opts.PerTopic, 1),
	}, nil
}

// Generate creates questions for every topic and returns them as an answer
// key numbered Q1..Qn. Topics that yield no keywords, and questions the model
// fails to produce, are skipped with a warning. Diagrams are attached by
// word overlap afterwards.
func (g *Generator) Generate(ctx context.Context, topics []Topic, diagrams []Diagram) (*model.Sheet, error) {
	var entries []model.QuestionEntry
	for _, topic := range topics {
		keywords := topic.Keywords
		if len(keywords) == 0 {
			keywords = Keywords(topic.Content, fallbackKeywords)
		}
		if len(keywords) == 0 {
			slog.Warn("skipping topic without keywords", "topic", topic.Title)
			continue
		}
		for i := 0; i < g.perTopic; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			entry, err := g.generateOne(ctx, topic, keywords, i)
			if err != nil {
				slog.Warn("question generation failed", "topic", topic.Title, "error", err)
				continue
			}
			if isDuplicate(entries, entry.Question) {
				slog.Debug("skipping duplicate question", "topic", topic.Title, "question", entry.Question)
				continue
			}
			entry.ID = fmt.Sprintf("Q%d", len(entries)+1)
			entries = append(entries, entry)
		}
	}
	AttachDiagrams(entries, diagrams)
	sheet, _ := model.NewSheet(model.KindAnswerKey, entries)
	return sheet, nil
}

func (g *Generator) generateOne(ctx context.Context, topic Topic, keywords []string, n int) (model.QuestionEntry, error) {
	level := SelectLevel(g.rng, len(topic.Content))
	marks := PickMarks(g.rng, level)
	chunk, err := Chunk(topic.Content, level, marks)
	if err != nil {
		return model.QuestionEntry{}, err
	}
	used := g.pickKeywords(keywords, marks)

	qPrompt, err := prompts.BuildQuestionPrompt(level, prompts.QuestionData{
		Marks:    marks,
		Chunk:    chunk,
		Keywords: used,
		Variety:  prompts.VarietyHints[n%len(prompts.VarietyHints)],
	})
	if err != nil {
		return model.QuestionEntry{}, fmt.Errorf("build question prompt: %w", err)
	}
	raw, err := g.llm.Complete(ctx, systemPrompt, qPrompt, questionTemp)
	if err != nil {
		return model.QuestionEntry{}, fmt.Errorf("generate question: %w", err)
	}
	question, ok := CleanQuestion(raw)
	if !ok {
		return model.QuestionEntry{}, fmt.Errorf("unusable question output %q", raw)
	}

	aPrompt, err := prompts.BuildAnswerPrompt(question, chunk, level, marks)
	if err != nil {
		return model.QuestionEntry{}, fmt.Errorf("build answer prompt: %w", err)
	}
	raw, err = g.llm.Complete(ctx, systemPrompt, aPrompt, answerTemp)
	if err != nil {
		return model.QuestionEntry{}, fmt.Errorf("generate answer: %w", err)
	}
	answer, ok := CleanAnswer(raw)
	if !ok {
		return model.QuestionEntry{}, fmt.Errorf("unusable answer output %q", raw)
	}

	return model.QuestionEntry{
		Text:       answer,
		Question:   question,
		BloomLevel: level,
		Keywords:   used,
		Marks:      marks,
	}, nil
}

// pickKeywords samples two keywords for short questions and three otherwise.
func (g *Generator) pickKeywords(keywords []string, marks int) []string {
	want := 2
	if marks >= 5 {
		want = 3
	}
	pool := lo.Uniq(keywords)
	if len(pool) <= want {
		return pool
	}
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:want]
}

// isDuplicate reports whether question is contained in, or contains, a
// previously generated question of meaningful length.
func isDuplicate(entries []model.QuestionEntry, question string) bool {
	q := strings.ToLower(question)
	return lo.SomeBy(entries, func(e model.QuestionEntry) bool {
		prev := strings.ToLower(e.Question)
		return len(prev) > minDuplicateLength && (strings.Contains(prev, q) || strings.Contains(q, prev))
	})
}
