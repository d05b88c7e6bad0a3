// Package report renders evaluation results for people: a Markdown report
// with per-question feedback and a compact console summary.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"

	"github.com/manvip28/Eval-Me-Maybe/internal/i18n"
	"github.com/manvip28/Eval-Me-Maybe/internal/model"
)

// band maps a lower percentage bound to a message id.
type band struct {
	min   float64
	msgID string
}

var ratingBands = []band{
	{90, "RatingExcellent"},
	{80, "RatingVeryGood"},
	{70, "RatingGood"},
	{60, "RatingSatisfactory"},
	{0, "RatingNeedsImprovement"},
}

var feedbackBands = []band{
	{90, "FeedbackExcellent"},
	{70, "FeedbackGood"},
	{40, "FeedbackPartial"},
	{0, "FeedbackPoor"},
}

func pick(bands []band, pct float64) string {
	for _, b := range bands {
		if pct >= b.min {
			return b.msgID
		}
	}
	return bands[len(bands)-1].msgID
}

// RatingID returns the message id of the overall rating for an average
// percentage.
func RatingID(avg float64) string {
	return pick(ratingBands, avg)
}

// Rating returns the localized overall rating for an average percentage.
func Rating(ctx context.Context, avg float64) string {
	return i18n.T(ctx, RatingID(avg))
}

// Feedback returns localized feedback for one question result.
func Feedback(ctx context.Context, r model.PerQuestionResult) string {
	switch {
	case r.Unevaluable:
		return i18n.T(ctx, "Unevaluable")
	case !r.Answered && !r.HasStudentImage:
		return i18n.T(ctx, "FeedbackMissing")
	}
	msg := i18n.T(ctx, pick(feedbackBands, r.PercentageScore))
	if r.HasReferenceImage && !r.HasStudentImage {
		msg += " " + i18n.T(ctx, "FeedbackDiagram")
	}
	return msg
}

// Markdown writes a full report for run.
func Markdown(ctx context.Context, w io.Writer, run model.Run) error {
	var b strings.Builder
	sum := run.Report.Summary

	fmt.Fprintf(&b, "# %s\n\n", i18n.T(ctx, "ReportTitle"))
	if run.StudentName != "" {
		fmt.Fprintf(&b, "- **%s:** %s\n", i18n.T(ctx, "Student"), run.StudentName)
	}
	if run.ID != "" {
		fmt.Fprintf(&b, "- **%s:** `%s`\n", i18n.T(ctx, "RunID"), run.ID)
	}
	if !run.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **%s:** %s\n", i18n.T(ctx, "Generated"), run.CreatedAt.UTC().Format(time.RFC3339))
	}

	fmt.Fprintf(&b, "\n## %s\n\n", i18n.T(ctx, "Summary"))
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| %s | %d |\n", i18n.T(ctx, "TotalQuestions"), sum.TotalQuestions)
	fmt.Fprintf(&b, "| %s | %d |\n", i18n.T(ctx, "AnsweredQuestions"), sum.AnsweredQuestions)
	fmt.Fprintf(&b, "| %s | %d |\n", i18n.T(ctx, "EvaluatedQuestions"), sum.EvaluatedQuestions)
	fmt.Fprintf(&b, "| %s | %s%% |\n", i18n.T(ctx, "OverallAverage"), i18n.Number(ctx, sum.OverallAverage))
	fmt.Fprintf(&b, "| %s | %s / %s |\n", i18n.T(ctx, "TotalScore"),
		i18n.Number(ctx, sum.TotalAchievedScore), i18n.Number(ctx, sum.TotalPossibleScore))
	fmt.Fprintf(&b, "| %s | **%s** |\n", i18n.T(ctx, "OverallRating"), Rating(ctx, sum.OverallAverage))

	for _, r := range run.Report.IndividualResults {
		writeQuestion(ctx, &b, r)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeQuestion(ctx context.Context, b *strings.Builder, r model.PerQuestionResult) {
	fmt.Fprintf(b, "\n## %s\n\n", i18n.Td(ctx, "QuestionN", map[string]any{"ID": r.QuestionID}))
	if r.QuestionText != "" {
		fmt.Fprintf(b, "%s\n\n", r.QuestionText)
	}
	fmt.Fprintf(b, "**%s:** %s / %s (%s%%)\n\n", i18n.T(ctx, "Score"),
		i18n.Number(ctx, r.RawScore), i18n.Number(ctx, r.MaxScore), i18n.Number(ctx, r.PercentageScore))
	if r.BloomLevel != "" {
		fmt.Fprintf(b, "**%s:** %s\n\n", i18n.T(ctx, "BloomLevel"), r.BloomLevel)
	}
	if len(r.Keywords) > 0 {
		fmt.Fprintf(b, "**%s:** %s\n\n", i18n.T(ctx, "Keywords"), strings.Join(r.Keywords, ", "))
	}

	answer := r.StudentAnswer
	if strings.TrimSpace(answer) == "" {
		answer = "_" + i18n.T(ctx, "NotAnswered") + "_"
	}
	fmt.Fprintf(b, "**%s:**\n\n%s\n\n", i18n.T(ctx, "StudentAnswer"), quote(answer))
	if r.ExpectedAnswer != "" {
		fmt.Fprintf(b, "**%s:**\n\n%s\n\n", i18n.T(ctx, "ExpectedAnswer"), quote(r.ExpectedAnswer))
	}

	d := r.EvaluationDetails
	fmt.Fprintf(b, "**%s:** %s %s, %s %.4f, %s %.4f, %s %s\n\n", i18n.T(ctx, "Signals"),
		i18n.T(ctx, "SemanticScore"), optional(ctx, d.SemanticScore),
		i18n.T(ctx, "BLEU"), d.BLEU,
		i18n.T(ctx, "RougeL"), d.RougeL,
		i18n.T(ctx, "ImageSimilarity"), optional(ctx, d.ImageSimilarity))
	fmt.Fprintf(b, "**%s:** %s\n", i18n.T(ctx, "Feedback"), Feedback(ctx, r))
}

func quote(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return "> " + strings.Join(lines, "\n> ")
}

func optional(ctx context.Context, v *float64) string {
	if v == nil {
		return i18n.T(ctx, "Unavailable")
	}
	return fmt.Sprintf("%.4f", *v)
}

// Summary writes a console table of per-question scores followed by the
// totals and overall rating.
func Summary(ctx context.Context, w io.Writer, rep model.EvaluationReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\t%%\t%s\t%s\t%s\t%s\n", i18n.T(ctx, "Score"),
		i18n.T(ctx, "SemanticScore"), i18n.T(ctx, "BLEU"), i18n.T(ctx, "RougeL"), i18n.T(ctx, "ImageSimilarity"))
	for _, r := range rep.IndividualResults {
		d := r.EvaluationDetails
		fmt.Fprintf(tw, "%s\t%s/%s\t%s\t%s\t%.4f\t%.4f\t%s\n", r.QuestionID,
			i18n.Number(ctx, r.RawScore), i18n.Number(ctx, r.MaxScore), i18n.Number(ctx, r.PercentageScore),
			optional(ctx, d.SemanticScore), d.BLEU, d.RougeL, optional(ctx, d.ImageSimilarity))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sum := rep.Summary
	_, err := fmt.Fprintf(w, "\n%s: %s  %s: %d  %s: %d\n%s: %s%%  %s: %s / %s  %s: %s\n",
		i18n.T(ctx, "TotalQuestions"), i18n.Tp(ctx, "Questions", sum.TotalQuestions),
		i18n.T(ctx, "AnsweredQuestions"), sum.AnsweredQuestions,
		i18n.T(ctx, "EvaluatedQuestions"), sum.EvaluatedQuestions,
		i18n.T(ctx, "OverallAverage"), i18n.Number(ctx, sum.OverallAverage),
		i18n.T(ctx, "TotalScore"), i18n.Number(ctx, sum.TotalAchievedScore), i18n.Number(ctx, sum.TotalPossibleScore),
		i18n.T(ctx, "OverallRating"), Rating(ctx, sum.OverallAverage),
	)
	if err != nil {
		return err
	}

	skipped := lo.FilterMap(rep.IndividualResults, func(r model.PerQuestionResult, _ int) (string, bool) {
		return r.QuestionID, r.Unevaluable
	})
	if len(skipped) > 0 {
		_, err = fmt.Fprintf(w, "%s: %s\n", i18n.T(ctx, "NotEvaluated"), strings.Join(skipped, ", "))
	}
	return err
}
