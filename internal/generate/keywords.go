package generate

import (
	"sort"
	"unicode/utf8"

	"github.com/manvip28/Eval-Me-Maybe/internal/textnorm"
)

var stopwords = map[string]bool{}

func init() {
	for _, w := range []string{
		"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and", "any", "are",
		"as", "at", "be", "because", "been", "before", "being", "below", "between", "both", "but", "by",
		"can", "could", "did", "do", "does", "doing", "down", "during", "each", "few", "for", "from",
		"further", "had", "has", "have", "having", "he", "her", "here", "hers", "him", "his", "how", "i",
		"if", "in", "into", "is", "it", "its", "itself", "just", "may", "me", "might", "more", "most",
		"must", "my", "no", "nor", "not", "now", "of", "off", "on", "once", "one", "only", "or", "other",
		"our", "out", "over", "own", "same", "she", "should", "so", "some", "such", "than", "that", "the",
		"their", "them", "then", "there", "these", "they", "this", "those", "through", "to", "too", "two",
		"under", "until", "up", "us", "use", "used", "uses", "using", "very", "was", "we", "were", "what",
		"when", "where", "which", "while", "who", "whom", "why", "will", "with", "would", "you", "your",
	} {
		stopwords[w] = true
	}
}

// Keywords returns up to n of the most frequent content words of text.
// Ties keep first-occurrence order.
func Keywords(text string, n int) []string {
	type kw struct {
		word  string
		count int
		first int
	}
	seen := map[string]*kw{}
	var list []*kw
	for i, tok := range textnorm.Tokenize(text) {
		if stopwords[tok] || utf8.RuneCountInString(tok) < 3 || isNumber(tok) {
			continue
		}
		if k, ok := seen[tok]; ok {
			k.count++
			continue
		}
		k := &kw{word: tok, count: 1, first: i}
		seen[tok] = k
		list = append(list, k)
	}
	sort.SliceStable(list, func(a, b int) bool {
		return list[a].count > list[b].count
	})
	out := []string{}
	for _, k := range list {
		if len(out) == n {
			break
		}
		out = append(out, k.word)
	}
	return out
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
