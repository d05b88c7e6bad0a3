package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/manvip28/Eval-Me-Maybe/internal/i18n"
	"github.com/manvip28/Eval-Me-Maybe/internal/model"
)

func testCtx(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	return i18n.WithLanguage(context.Background(), lang)
}

func f64(v float64) *float64 { return &v }

func testRun() model.Run {
	return model.Run{
		ID:          "run-1",
		StudentName: "Alice",
		CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Report: model.EvaluationReport{
			IndividualResults: model.Results{
				{
					QuestionID: "Q1", QuestionText: "What is ATP?",
					StudentAnswer: "Energy currency.", ExpectedAnswer: "ATP is the energy currency of the cell.",
					RawScore: 9.5, MaxScore: 10, PercentageScore: 95, Answered: true,
					EvaluationDetails: model.EvaluationDetails{SemanticScore: f64(0.97), BLEU: 0.4, RougeL: 0.5},
					BloomLevel:        model.BloomRemember, Keywords: []string{"atp", "energy"},
				},
				{
					QuestionID: "Q2", ExpectedAnswer: "Draw the cycle.",
					MaxScore: 10, HasReferenceImage: true,
					EvaluationDetails: model.EvaluationDetails{ImageSimilarity: f64(0)},
				},
				{QuestionID: "Q3", MaxScore: 10, Unevaluable: true},
			},
			Summary: model.Summary{
				TotalQuestions: 3, AnsweredQuestions: 1, EvaluatedQuestions: 2,
				OverallAverage: 31.7, TotalAchievedScore: 9.5, TotalPossibleScore: 30,
			},
		},
	}
}

func TestRatingID(t *testing.T) {
	tests := []struct {
		avg  float64
		want string
	}{
		{100, "RatingExcellent"},
		{90, "RatingExcellent"},
		{89.9, "RatingVeryGood"},
		{80, "RatingVeryGood"},
		{70, "RatingGood"},
		{60, "RatingSatisfactory"},
		{59.9, "RatingNeedsImprovement"},
		{0, "RatingNeedsImprovement"},
	}
	for _, tt := range tests {
		if got := RatingID(tt.avg); got != tt.want {
			t.Errorf("RatingID(%v) = %q, want %q", tt.avg, got, tt.want)
		}
	}
}

func TestFeedback(t *testing.T) {
	ctx := testCtx(t, "en")
	tests := []struct {
		name string
		r    model.PerQuestionResult
		want string
	}{
		{"excellent", model.PerQuestionResult{Answered: true, PercentageScore: 92}, "Excellent answer that covers the key points."},
		{"partial", model.PerQuestionResult{Answered: true, PercentageScore: 45}, "Partially correct. Review the expected answer for missing concepts."},
		{"missing", model.PerQuestionResult{}, "Attempt this question next time."},
		{"unevaluable", model.PerQuestionResult{Unevaluable: true}, "This question could not be evaluated."},
		{"missing diagram", model.PerQuestionResult{Answered: true, PercentageScore: 75, HasReferenceImage: true},
			"Good answer with minor gaps. Include the required diagram."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Feedback(ctx, tt.r); got != tt.want {
				t.Errorf("Feedback() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarkdown(t *testing.T) {
	ctx := testCtx(t, "en")
	var buf bytes.Buffer
	if err := Markdown(ctx, &buf, testRun()); err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# Evaluation Report",
		"- **Student:** Alice",
		"`run-1`",
		"2026-03-01T10:00:00Z",
		"| Overall average | 31.7% |",
		"| Total score | 9.5 / 30.0 |",
		"| Overall rating | **Needs Improvement** |",
		"## Question Q1",
		"What is ATP?",
		"**Score:** 9.5 / 10.0 (95.0%)",
		"**Keywords:** atp, energy",
		"> Energy currency.",
		"Semantic similarity 0.9700",
		"Diagram similarity n/a",
		"_No answer submitted._",
		"Attempt this question next time.",
		"This question could not be evaluated.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
	if strings.Index(out, "Question Q1") > strings.Index(out, "Question Q2") {
		t.Error("questions out of key order")
	}
}

func TestMarkdownRussian(t *testing.T) {
	ctx := testCtx(t, "ru")
	var buf bytes.Buffer
	if err := Markdown(ctx, &buf, testRun()); err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	for _, want := range []string{"# Отчёт об оценке", "## Вопрос Q1", "Требует доработки"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestSummary(t *testing.T) {
	ctx := testCtx(t, "en")
	var buf bytes.Buffer
	if err := Summary(ctx, &buf, testRun().Report); err != nil {
		t.Fatalf("Summary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Q1", "9.5/10.0", "0.9700", "3 questions", "Needs Improvement", "Not evaluated: Q3"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestSummaryEmptyReport(t *testing.T) {
	ctx := testCtx(t, "en")
	var buf bytes.Buffer
	if err := Summary(ctx, &buf, model.EvaluationReport{IndividualResults: model.Results{}}); err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !strings.Contains(buf.String(), "0 questions") {
		t.Errorf("summary = %q, want zero count", buf.String())
	}
}
