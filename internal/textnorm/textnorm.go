// Package textnorm turns free text into the token sequences shared by all text
// metrics, and canonicalizes question identifiers.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Tokenize lowercases text, drops punctuation (apostrophes inside words are
// kept), and splits on whitespace. Empty input yields an empty slice.
func Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}
	// A Caser is stateful, so each call gets its own.
	s := cases.Lower(language.Und).String(norm.NFKC.String(text))
	runes := []rune(s)

	var sb strings.Builder
	sb.Grow(len(s))
	for i, r := range runes {
		switch {
		case isWordRune(r):
			sb.WriteRune(r)
		case isApostrophe(r) && i > 0 && i < len(runes)-1 && isWordRune(runes[i-1]) && isWordRune(runes[i+1]):
			sb.WriteRune('\'')
		default:
			sb.WriteRune(' ')
		}
	}
	fields := strings.Fields(sb.String())
	if fields == nil {
		return []string{}
	}
	return fields
}

// IsBlank reports whether text produces no tokens.
func IsBlank(text string) bool {
	return len(Tokenize(text)) == 0
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}

// CanonicalID maps question labels like "Q1.", "q1:", " Q1) " or "Q01" to
// "Q1". Bare numbers become "Q<n>". Anything else is returned trimmed.
// CanonicalID(CanonicalID(s)) == CanonicalID(s).
func CanonicalID(raw string) string {
	s := strings.TrimFunc(norm.NFKC.String(raw), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	if s == "" {
		return ""
	}

	digits := s
	if s[0] == 'q' || s[0] == 'Q' {
		digits = strings.TrimLeftFunc(s[1:], func(r rune) bool {
			return unicode.IsSpace(r) || unicode.IsPunct(r)
		})
	}
	if digits == "" || !allDigits(digits) {
		return s
	}
	n := strings.TrimLeft(digits, "0")
	if n == "" {
		n = "0"
	}
	return "Q" + n
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
