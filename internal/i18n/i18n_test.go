package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLanguage(context.Background(), lang)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "ReportTitle"); got != "Evaluation Report" {
		t.Errorf("T(ReportTitle) = %q, want 'Evaluation Report'", got)
	}
	if got := T(ctx, "RatingVeryGood"); got != "Very Good" {
		t.Errorf("T(RatingVeryGood) = %q, want 'Very Good'", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	if got := T(ctx, "ReportTitle"); got != "Отчёт об оценке" {
		t.Errorf("T(ReportTitle) = %q, want 'Отчёт об оценке'", got)
	}
	if got := T(ctx, "RatingExcellent"); got != "Отлично" {
		t.Errorf("T(RatingExcellent) = %q, want 'Отлично'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "Questions", 1); got != "1 question" {
		t.Errorf("Tp(Questions, 1) = %q, want '1 question'", got)
	}
	if got := Tp(ctx, "Questions", 5); got != "5 questions" {
		t.Errorf("Tp(Questions, 5) = %q, want '5 questions'", got)
	}
}

func TestPluralTranslationRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	tests := []struct {
		count int
		want  string
	}{
		{1, "1 вопрос"},
		{3, "3 вопроса"},
		{5, "5 вопросов"},
		{21, "21 вопрос"},
	}
	for _, tt := range tests {
		if got := Tp(ctx, "Questions", tt.count); got != tt.want {
			t.Errorf("Tp(Questions, %d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "QuestionN", map[string]any{"ID": "Q3"})
	if got != "Question Q3" {
		t.Errorf("Td(QuestionN, ID=Q3) = %q, want 'Question Q3'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestUnknownLanguageFallsBack(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx := WithLanguage(context.Background(), "fr")
	if got := T(ctx, "Summary"); got != "Summary" {
		t.Errorf("T(Summary) = %q, want English fallback", got)
	}
}

func TestNumber(t *testing.T) {
	ctx := initLang(t, "en")
	if got := Number(ctx, 32.54); got != "32.5" {
		t.Errorf("Number(32.54) = %q, want '32.5'", got)
	}
}

func TestMiddleware(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "Summary")
	}))

	tests := []struct {
		name   string
		target string
		accept string
		want   string
	}{
		{"default", "/", "", "Summary"},
		{"accept header", "/", "ru-RU,ru;q=0.9", "Итоги"},
		{"query overrides header", "/?lang=en", "ru", "Summary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("T(Summary) = %q, want %q", got, tt.want)
			}
		})
	}
}
