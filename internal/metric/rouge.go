package metric

import "github.com/manvip28/Eval-Me-Maybe/internal/textnorm"

// RougeBeta weights recall over precision in the ROUGE-L F-measure.
const RougeBeta = 1.2

// RougeScore holds ROUGE-L precision, recall and F-measure.
type RougeScore struct {
	Precision float64
	Recall    float64
	FMeasure  float64
}

// RougeL returns the ROUGE-L F-measure of candidate against reference.
func RougeL(candidate, reference string) float64 {
	return RougeLTokens(textnorm.Tokenize(candidate), textnorm.Tokenize(reference)).FMeasure
}

// RougeLTokens computes ROUGE-L over already tokenized input.
func RougeLTokens(cand, ref []string) RougeScore {
	switch {
	case len(cand) == 0 && len(ref) == 0:
		return RougeScore{Precision: 1, Recall: 1, FMeasure: 1}
	case len(cand) == 0, len(ref) == 0:
		return RougeScore{}
	}

	lcs := LCSLength(cand, ref)
	if lcs == 0 {
		return RougeScore{}
	}
	p := float64(lcs) / float64(len(cand))
	r := float64(lcs) / float64(len(ref))
	b2 := RougeBeta * RougeBeta
	f := (1 + b2) * p * r / (r + b2*p)
	return RougeScore{Precision: p, Recall: r, FMeasure: clamp01(f)}
}

// LCSLength returns the length of the longest common subsequence of a and b.
// It keeps a single DP row sized by the shorter input.
func LCSLength(a, b []string) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return 0
	}
	row := make([]int, len(b)+1)
	for i := range a {
		prevDiag := 0
		for j := 1; j <= len(b); j++ {
			up := row[j]
			if a[i] == b[j-1] {
				row[j] = prevDiag + 1
			} else if row[j-1] > row[j] {
				row[j] = row[j-1]
			}
			prevDiag = up
		}
	}
	return row[len(b)]
}
