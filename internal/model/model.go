package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/manvip28/Eval-Me-Maybe/internal/textnorm"
)

// BloomLevel is a cognitive-complexity tag attached to a generated question.
type BloomLevel string

const (
	BloomRemember   BloomLevel = "Remember"
	BloomUnderstand BloomLevel = "Understand"
	BloomApply      BloomLevel = "Apply"
	BloomAnalyze    BloomLevel = "Analyze"
	BloomEvaluate   BloomLevel = "Evaluate"
	BloomCreate     BloomLevel = "Create"
)

// BloomLevels lists the levels from lowest to highest order.
var BloomLevels = []BloomLevel{
	BloomRemember, BloomUnderstand, BloomApply, BloomAnalyze, BloomEvaluate, BloomCreate,
}

// SheetKind tells the ingestion adapter which side of the evaluation a sheet is.
type SheetKind string

const (
	// KindAnswerKey is the authoritative reference sheet.
	KindAnswerKey SheetKind = "answer_key"
	// KindSubmission is a student's answer sheet.
	KindSubmission SheetKind = "submission"
)

// QuestionEntry is one question in an answer key or a student submission.
// Question, BloomLevel, Keywords and Marks are only meaningful on the key side.
type QuestionEntry struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Images     []string   `json:"images,omitempty"`
	Question   string     `json:"question,omitempty"`
	BloomLevel BloomLevel `json:"bloom_level,omitempty"`
	Keywords   []string   `json:"keywords,omitempty"`
	Marks      int        `json:"marks,omitempty"`
}

// HasImages reports whether the entry references at least one diagram.
func (e QuestionEntry) HasImages() bool {
	return len(e.Images) > 0
}

// Sheet is an ordered set of question entries keyed by canonical id.
type Sheet struct {
	Kind    SheetKind
	Entries []QuestionEntry
	index   map[string]int
}

// NewSheet builds a sheet from entries, canonicalizing their ids. The first
// entry wins when an id repeats; the dropped ids are returned.
func NewSheet(kind SheetKind, entries []QuestionEntry) (*Sheet, []string) {
	s := &Sheet{Kind: kind, index: make(map[string]int, len(entries))}
	var dups []string
	for _, e := range entries {
		e.ID = textnorm.CanonicalID(e.ID)
		if _, ok := s.index[e.ID]; ok {
			dups = append(dups, e.ID)
			continue
		}
		s.index[e.ID] = len(s.Entries)
		s.Entries = append(s.Entries, e)
	}
	return s, dups
}

// Lookup returns the entry for id after canonicalizing it. A sheet built
// without NewSheet is searched in order.
func (s *Sheet) Lookup(id string) (QuestionEntry, bool) {
	if s == nil {
		return QuestionEntry{}, false
	}
	id = textnorm.CanonicalID(id)
	if s.index == nil {
		for _, e := range s.Entries {
			if textnorm.CanonicalID(e.ID) == id {
				return e, true
			}
		}
		return QuestionEntry{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return QuestionEntry{}, false
	}
	return s.Entries[i], true
}

// Len returns the number of entries.
func (s *Sheet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// IDs returns the entry ids in sheet order.
func (s *Sheet) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		ids[i] = e.ID
	}
	return ids
}

// EvaluationDetails holds the individual similarity signals of one question.
// Nil pointers mark signals that were unavailable.
type EvaluationDetails struct {
	SemanticScore   *float64 `json:"semantic_score"`
	BLEU            float64  `json:"bleu"`
	RougeL          float64  `json:"rouge_l"`
	ImageSimilarity *float64 `json:"image_similarity"`
}

// PerQuestionResult is the scored outcome of a single answer-key question.
type PerQuestionResult struct {
	QuestionID        string            `json:"question_id"`
	QuestionText      string            `json:"question_text"`
	StudentAnswer     string            `json:"student_answer"`
	ExpectedAnswer    string            `json:"expected_answer"`
	RawScore          float64           `json:"raw_score"`
	MaxScore          float64           `json:"max_score"`
	PercentageScore   float64           `json:"percentage_score"`
	HasStudentImage   bool              `json:"has_student_image"`
	HasReferenceImage bool              `json:"has_reference_image"`
	EvaluationDetails EvaluationDetails `json:"evaluation_details"`
	Answered          bool              `json:"answered"`
	Unevaluable       bool              `json:"unevaluable,omitempty"`
	BloomLevel        BloomLevel        `json:"bloom_level,omitempty"`
	Keywords          []string          `json:"keywords,omitempty"`
}

// Results keeps per-question results in answer-key order. It marshals to a
// JSON object keyed by question id.
type Results []PerQuestionResult

// Get returns the result for a question id.
func (rs Results) Get(id string) (PerQuestionResult, bool) {
	for _, r := range rs {
		if r.QuestionID == id {
			return r, true
		}
	}
	return PerQuestionResult{}, false
}

// IDs returns the question ids in order.
func (rs Results) IDs() []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.QuestionID
	}
	return ids
}

// MarshalJSON writes the results as an object, preserving slice order.
func (rs Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range rs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.QuestionID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of results, keeping the order of its keys.
func (rs *Results) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*rs = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("individual_results: expected object, got %v", tok)
	}
	out := Results{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var r PerQuestionResult
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("individual_results[%s]: %w", key, err)
		}
		if r.QuestionID == "" {
			r.QuestionID = key
		}
		out = append(out, r)
	}
	*rs = out
	return nil
}

// Summary holds the roll-up statistics of an evaluation.
type Summary struct {
	TotalQuestions     int     `json:"total_questions"`
	AnsweredQuestions  int     `json:"answered_questions"`
	EvaluatedQuestions int     `json:"evaluated_questions"`
	OverallAverage     float64 `json:"overall_average"`
	TotalAchievedScore float64 `json:"total_achieved_score"`
	TotalPossibleScore float64 `json:"total_possible_score"`
}

// EvaluationReport is the top-level result of evaluating one submission.
type EvaluationReport struct {
	IndividualResults Results `json:"individual_results"`
	Summary           Summary `json:"summary"`
}

// Weights are the base combination weights of the scoring signals.
// Semantic, Lexical and Sequence are relative text weights; Image is the
// share taken by the diagram channel when it is active.
type Weights struct {
	Semantic float64 `json:"semantic"`
	Lexical  float64 `json:"lexical"`
	Sequence float64 `json:"sequence"`
	Image    float64 `json:"image"`
}

// DefaultWeights returns semantic 0.5, lexical 0.25, sequence 0.25, image 0.2.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.5, Lexical: 0.25, Sequence: 0.25, Image: 0.2}
}

// Validate checks that the weights can be renormalized.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"semantic": w.Semantic, "lexical": w.Lexical, "sequence": w.Sequence, "image": w.Image,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative, got %v", name, v)
		}
	}
	if w.Semantic+w.Lexical+w.Sequence <= 0 {
		return fmt.Errorf("text weights must sum to a positive value")
	}
	if w.Image >= 1 {
		return fmt.Errorf("image weight must be below 1, got %v", w.Image)
	}
	return nil
}

// EvalConfig holds evaluation parameters set via CLI flags or config file.
type EvalConfig struct {
	Weights      Weights
	MaxScore     float64       // per-question ceiling when the key gives no marks
	Workers      int           // 0 or 1 means sequential
	EmbedTimeout time.Duration // 0 means no timeout
	ImageSize    int           // canonical SSIM resolution, 0 means default
}

// DefaultEvalConfig returns the configuration used when nothing is set.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		Weights:      DefaultWeights(),
		MaxScore:     100,
		Workers:      1,
		EmbedTimeout: 30 * time.Second,
		ImageSize:    256,
	}
}

// Validate checks the configuration.
func (c EvalConfig) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.MaxScore <= 0 {
		return fmt.Errorf("max score must be positive, got %v", c.MaxScore)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.ImageSize < 0 {
		return fmt.Errorf("image size must not be negative, got %d", c.ImageSize)
	}
	return nil
}
