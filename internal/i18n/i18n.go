package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

// localizer pairs message lookup with locale-aware number formatting.
type localizer struct {
	loc     *i18n.Localizer
	printer *message.Printer
}

var (
	bundle      *i18n.Bundle
	defaultLang = "en"
)

// Init loads the translation bundle with lang as the default language.
func Init(lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", lang, err)
	}

	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	// Load all locale files from embedded FS.
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := b.ParseMessageFileBytes(data, e.Name()); err != nil {
			return fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
		slog.Debug("loaded locale file", "file", e.Name())
	}

	bundle = b
	defaultLang = tag.String()
	return nil
}

// Languages returns the languages with a loaded message file, default first.
func Languages() []language.Tag {
	if bundle == nil {
		return nil
	}
	return bundle.LanguageTags()
}

// WithLanguage stores a localizer for the preferred languages in the
// context. Unknown languages fall back to the default.
func WithLanguage(ctx context.Context, langs ...string) context.Context {
	return context.WithValue(ctx, ctxKey{}, newLocalizer(langs...))
}

func newLocalizer(langs ...string) *localizer {
	langs = append(langs, defaultLang)
	tag := language.Make(defaultLang)
	if bundle != nil {
		matcher := language.NewMatcher(bundle.LanguageTags())
		tag, _ = language.MatchStrings(matcher, langs...)
	}
	base, _ := tag.Base()
	return &localizer{
		loc:     i18n.NewLocalizer(bundle, langs...),
		printer: message.NewPrinter(language.Make(base.String())),
	}
}

// localizerFromCtx retrieves the localizer from context.
func localizerFromCtx(ctx context.Context) *localizer {
	if loc, ok := ctx.Value(ctxKey{}).(*localizer); ok {
		return loc
	}
	return newLocalizer()
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	if bundle == nil {
		return cfg.MessageID
	}
	s, err := localizerFromCtx(ctx).loc.Localize(cfg)
	if err != nil {
		slog.Warn("missing translation", "id", cfg.MessageID, "error", err)
		return cfg.MessageID
	}
	return s
}

// T translates a message by ID.
func T(ctx context.Context, msgID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID})
}

// Td translates a message by ID with template data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID, TemplateData: data})
}

// Tp translates a pluralized message by ID.
func Tp(ctx context.Context, msgID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

// Number formats v with one decimal place using the context language's
// separators.
func Number(ctx context.Context, v float64) string {
	return localizerFromCtx(ctx).printer.Sprintf("%.1f", v)
}
