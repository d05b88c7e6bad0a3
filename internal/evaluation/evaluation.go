// Package evaluation scores a whole submission against an answer key.
package evaluation

import (
	"context"
	"log/slog"
	"math"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/manvip28/Eval-Me-Maybe/internal/model"
	"github.com/manvip28/Eval-Me-Maybe/internal/scoring"
	"github.com/manvip28/Eval-Me-Maybe/internal/textnorm"
)

// Aggregator runs the question scorer over every answer-key question.
type Aggregator struct {
	scorer  *scoring.QuestionScorer
	workers int
}

// New returns an Aggregator. workers <= 1 scores questions sequentially.
func New(scorer *scoring.QuestionScorer, workers int) *Aggregator {
	return &Aggregator{scorer: scorer, workers: max(workers, 1)}
}

// Evaluate scores student against key. Every key question appears in the
// report in key order; questions missing from the submission score 0.
// Student entries whose ids are not in the key are ignored.
func (a *Aggregator) Evaluate(ctx context.Context, student, key *model.Sheet) model.EvaluationReport {
	scorer := a.scorer.ForRun()
	entries := []model.QuestionEntry{}
	if key != nil {
		entries = key.Entries
	}

	results := make(model.Results, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, ref := range entries {
		ref.ID = textnorm.CanonicalID(ref.ID)
		st, ok := student.Lookup(ref.ID)
		if !ok {
			st = model.QuestionEntry{ID: ref.ID}
		}
		g.Go(func() error {
			results[i] = scorer.Score(gctx, st, ref)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	if student != nil {
		unused := lo.Filter(student.IDs(), func(id string, _ int) bool {
			_, ok := key.Lookup(id)
			return !ok
		})
		if len(unused) > 0 {
			slog.Debug("ignoring submission entries not in answer key", "ids", unused)
		}
	}

	return model.EvaluationReport{
		IndividualResults: results,
		Summary:           Summarize(results),
	}
}

// Summarize computes the roll-up statistics of results. The overall average
// is the mean percentage over all questions, unanswered ones included.
func Summarize(results model.Results) model.Summary {
	s := model.Summary{
		TotalQuestions:     len(results),
		AnsweredQuestions:  lo.CountBy(results, func(r model.PerQuestionResult) bool { return r.Answered }),
		EvaluatedQuestions: len(results),
		TotalAchievedScore: round1(lo.SumBy(results, func(r model.PerQuestionResult) float64 { return r.RawScore })),
		TotalPossibleScore: round1(lo.SumBy(results, func(r model.PerQuestionResult) float64 { return r.MaxScore })),
	}
	if len(results) > 0 {
		mean := lo.SumBy(results, func(r model.PerQuestionResult) float64 { return r.PercentageScore }) / float64(len(results))
		s.OverallAverage = round1(mean)
	}
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
