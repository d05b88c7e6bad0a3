// Package metric implements the lexical text similarity metrics used for
// answer scoring. All scores are in [0, 1] and no function fails.
package metric

import (
	"math"
	"strings"

	"github.com/manvip28/Eval-Me-Maybe/internal/textnorm"
)

const (
	// MaxNGram is the highest n-gram order used by BLEU.
	MaxNGram = 4
	// bleuEpsilon replaces a zero clipped match count (NLTK smoothing method 1).
	bleuEpsilon = 0.1
)

// BLEU scores candidate against reference with sentence-level BLEU: clipped
// n-gram precision for n = 1..min(4, len(candidate)), geometric mean with
// uniform weights, and a brevity penalty when the candidate is shorter.
func BLEU(candidate, reference string) float64 {
	return BLEUTokens(textnorm.Tokenize(candidate), textnorm.Tokenize(reference))
}

// BLEUTokens is BLEU over already tokenized input.
func BLEUTokens(cand, ref []string) float64 {
	switch {
	case len(cand) == 0 && len(ref) == 0:
		return 1
	case len(cand) == 0, len(ref) == 0:
		return 0
	}

	order := min(MaxNGram, len(cand))
	var logSum float64
	for n := 1; n <= order; n++ {
		p := modifiedPrecision(cand, ref, n)
		logSum += math.Log(p)
	}
	geo := math.Exp(logSum / float64(order))
	return clamp01(brevityPenalty(len(cand), len(ref)) * geo)
}

// modifiedPrecision returns clipped n-gram matches over candidate n-grams.
// The caller guarantees len(cand) >= n.
func modifiedPrecision(cand, ref []string, n int) float64 {
	candCounts := ngramCounts(cand, n)
	refCounts := ngramCounts(ref, n)

	var clipped int
	for g, c := range candCounts {
		clipped += min(c, refCounts[g])
	}
	total := len(cand) - n + 1
	if clipped == 0 {
		return bleuEpsilon / float64(total)
	}
	return float64(clipped) / float64(total)
}

func brevityPenalty(c, r int) float64 {
	if c >= r {
		return 1
	}
	return math.Exp(1 - float64(r)/float64(c))
}

func ngramCounts(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	if len(tokens) < n {
		return counts
	}
	for i := 0; i+n <= len(tokens); i++ {
		// U+001F never survives tokenization, so it is a safe separator.
		counts[strings.Join(tokens[i:i+n], "\x1f")]++
	}
	return counts
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
