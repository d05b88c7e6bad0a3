package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/manvip28/Eval-Me-Maybe/internal/model"
)

// Templates holds the built-in prompt templates.
//
//go:embed templates/*.txt
var Templates embed.FS

// maxChunkRunes bounds the source content pasted into a prompt.
const maxChunkRunes = 12000

var sourceContentRegex = regexp.MustCompile(`(?i)</?\s*source-content\b[^>]*>`)

var (
	loadOnce          sync.Once
	loadErr           error
	questionTemplates map[model.BloomLevel]*template.Template
	answerTemplate    *template.Template
)

var funcs = template.FuncMap{"join": strings.Join}

var focus = map[model.BloomLevel]string{
	model.BloomRemember:   "Factual recall, definitions, and basic information.",
	model.BloomUnderstand: "Explaining concepts, relationships, and comprehension.",
	model.BloomApply:      "Practical application, problem-solving, and implementation.",
	model.BloomAnalyze:    "Breaking down components, comparing, and examining structure.",
	model.BloomEvaluate:   "Making judgments, assessing effectiveness, and critical evaluation.",
	model.BloomCreate:     "Designing solutions, creating new approaches, and synthesis.",
}

// VarietyHints nudge the model toward different angles on the same content.
var VarietyHints = []string{
	"Focus on a different aspect of the content.",
	"Ask about a specific application or example.",
	"Compare or contrast different concepts.",
	"Explain the relationship between key terms.",
	"Describe the process or steps involved.",
}

// QuestionData holds template data for question prompts.
type QuestionData struct {
	Marks    int
	Chunk    string
	Keywords []string
	Variety  string
}

// AnswerData holds template data for answer prompts.
type AnswerData struct {
	Question string
	Chunk    string
	Bloom    model.BloomLevel
	Marks    int
	Focus    string
}

// Load parses prompt templates from fsys. Templates are loaded only once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		questionTemplates = make(map[model.BloomLevel]*template.Template)
		for _, level := range model.BloomLevels {
			name := "templates/question_" + string(level) + ".txt"
			tmpl, err := parse(fsys, name)
			if err != nil {
				loadErr = err
				return
			}
			questionTemplates[level] = tmpl
		}
		answerTemplate, loadErr = parse(fsys, "templates/answer.txt")
	})
	return loadErr
}

func parse(fsys fs.FS, name string) (*template.Template, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read prompt file %s: %w", name, err)
	}
	tmpl, err := template.New(name).Funcs(funcs).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	return tmpl, nil
}

// BuildQuestionPrompt renders the question prompt for a Bloom level.
func BuildQuestionPrompt(level model.BloomLevel, data QuestionData) (string, error) {
	if questionTemplates == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := questionTemplates[level]
	if !ok {
		return "", errors.New("unknown bloom level: " + string(level))
	}
	data.Chunk = sanitizeChunk(data.Chunk)
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildAnswerPrompt renders the model-answer prompt.
func BuildAnswerPrompt(question, chunk string, level model.BloomLevel, marks int) (string, error) {
	if answerTemplate == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	data := AnswerData{
		Question: strings.TrimSpace(question),
		Chunk:    sanitizeChunk(chunk),
		Bloom:    level,
		Marks:    marks,
		Focus:    focus[level],
	}
	var buf bytes.Buffer
	if err := answerTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitizeChunk strips delimiter tags that would let content escape its
// block and bounds the length.
func sanitizeChunk(chunk string) string {
	chunk = strings.TrimSpace(sourceContentRegex.ReplaceAllString(chunk, ""))
	if utf8.RuneCountInString(chunk) > maxChunkRunes {
		chunk = string([]rune(chunk)[:maxChunkRunes])
	}
	return chunk
}
