// Package scoring combines the text and image similarity signals of one
// answer into a bounded per-question score.
package scoring

import (
	"context"
	"log/slog"
	"math"

	"github.com/manvip28/Eval-Me-Maybe/internal/imagesim"
	"github.com/manvip28/Eval-Me-Maybe/internal/metric"
	"github.com/manvip28/Eval-Me-Maybe/internal/model"
	"github.com/manvip28/Eval-Me-Maybe/internal/semantic"
	"github.com/manvip28/Eval-Me-Maybe/internal/textnorm"
)

// QuestionScorer scores a student entry against an answer-key entry. It is
// safe for concurrent use as long as its embedder is.
type QuestionScorer struct {
	cfg      model.EvalConfig
	semantic *semantic.Scorer
	images   *imagesim.Scorer
}

// New returns a QuestionScorer. Either scorer may be nil, in which case the
// corresponding signal is always unavailable.
func New(cfg model.EvalConfig, sem *semantic.Scorer, img *imagesim.Scorer) *QuestionScorer {
	return &QuestionScorer{cfg: cfg, semantic: sem, images: img}
}

// Config returns the evaluation configuration in use.
func (q *QuestionScorer) Config() model.EvalConfig {
	return q.cfg
}

// ForRun returns a scorer that memoizes embeddings for the duration of one
// evaluation run.
func (q *QuestionScorer) ForRun() *QuestionScorer {
	if !q.semantic.Available() {
		return q
	}
	c := *q
	c.semantic = q.semantic.WithEmbedder(semantic.NewMemo(q.semantic.Embedder()))
	return &c
}

// MaxScoreFor returns the score ceiling of a key entry.
func (q *QuestionScorer) MaxScoreFor(reference model.QuestionEntry) float64 {
	if reference.Marks > 0 {
		return float64(reference.Marks)
	}
	if q.cfg.MaxScore <= 0 {
		return model.DefaultEvalConfig().MaxScore
	}
	return q.cfg.MaxScore
}

// Score never fails: unavailable signals are dropped from the weighted
// average, and a question with no usable signal scores 0 and is flagged
// unevaluable.
func (q *QuestionScorer) Score(ctx context.Context, student, reference model.QuestionEntry) (res model.PerQuestionResult) {
	maxScore := q.MaxScoreFor(reference)
	res = model.PerQuestionResult{
		QuestionID:        reference.ID,
		QuestionText:      reference.Question,
		StudentAnswer:     student.Text,
		ExpectedAnswer:    reference.Text,
		MaxScore:          maxScore,
		HasStudentImage:   student.HasImages(),
		HasReferenceImage: reference.HasImages(),
		Answered:          !textnorm.IsBlank(student.Text),
		BloomLevel:        reference.BloomLevel,
		Keywords:          reference.Keywords,
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("scoring panicked", "question", reference.ID, "panic", r)
			res.RawScore, res.PercentageScore = 0, 0
			res.Unevaluable = true
		}
	}()

	candTokens := textnorm.Tokenize(student.Text)
	refTokens := textnorm.Tokenize(reference.Text)
	bleu := metric.BLEUTokens(candTokens, refTokens)
	rouge := metric.RougeLTokens(candTokens, refTokens).FMeasure
	res.EvaluationDetails.BLEU = round4(bleu)
	res.EvaluationDetails.RougeL = round4(rouge)

	if !res.Answered {
		return res
	}

	// A blank reference scores the text signals 0; it does not drop them.
	avail := Availability{Lexical: true, Sequence: true}

	var semScore, imgScore float64
	if s, ok := q.semantic.Score(ctx, student.Text, reference.Text); ok {
		semScore = s
		avail.Semantic = true
		res.EvaluationDetails.SemanticScore = ptr(round4(s))
	}
	if res.HasStudentImage && res.HasReferenceImage {
		if s, ok := q.images.Score(ctx, student.Images, reference.Images); ok {
			imgScore = s
			avail.Image = true
			res.EvaluationDetails.ImageSimilarity = ptr(round4(s))
		}
	}

	w, ok := EffectiveWeights(q.cfg.Weights, avail)
	if !ok {
		slog.Warn("question unevaluable", "question", reference.ID)
		res.Unevaluable = true
		return res
	}
	if !avail.Semantic {
		slog.Debug("semantic signal unavailable, using lexical and sequence only", "question", reference.ID)
	}

	weighted := w.Semantic*semScore + w.Lexical*bleu + w.Sequence*rouge + w.Image*imgScore

	res.RawScore = math.Min(math.Max(round1(maxScore*weighted), 0), maxScore)
	res.PercentageScore = round1(res.RawScore / maxScore * 100)
	return res
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func ptr(v float64) *float64 {
	return &v
}
