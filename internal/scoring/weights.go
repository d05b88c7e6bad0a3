package scoring

import "github.com/manvip28/Eval-Me-Maybe/internal/model"

// Availability marks which signals produced a usable value for a question.
type Availability struct {
	Semantic bool
	Lexical  bool
	Sequence bool
	Image    bool
}

// Any reports whether at least one signal is available.
func (a Availability) Any() bool {
	return a.Semantic || a.Lexical || a.Sequence || a.Image
}

// EffectiveWeights turns base weights into the weights actually applied for
// the given availability. The result sums to 1 unless no signal is available,
// in which case it is all zero and ok is false.
//
// The image channel, when available, keeps its base share and the text
// signals split the rest in proportion to their base weights. Unavailable
// text signals drop out of that split. Without the semantic signal the
// lexical and sequence signals share the text part equally.
func EffectiveWeights(base model.Weights, avail Availability) (w model.Weights, ok bool) {
	textAvail := avail.Semantic || avail.Lexical || avail.Sequence
	if !avail.Any() {
		return model.Weights{}, false
	}

	textShare := 1.0
	if avail.Image {
		if !textAvail {
			return model.Weights{Image: 1}, true
		}
		w.Image = base.Image
		textShare = 1 - base.Image
	}

	var sem, lex, seq float64
	switch {
	case !avail.Semantic && avail.Lexical && avail.Sequence:
		lex, seq = 0.5, 0.5
	default:
		if avail.Semantic {
			sem = base.Semantic
		}
		if avail.Lexical {
			lex = base.Lexical
		}
		if avail.Sequence {
			seq = base.Sequence
		}
		sum := sem + lex + seq
		if sum <= 0 {
			// Available signals all carry zero base weight; split evenly.
			n := 0.0
			for _, a := range []bool{avail.Semantic, avail.Lexical, avail.Sequence} {
				if a {
					n++
				}
			}
			sem, lex, seq = boolWeight(avail.Semantic, n), boolWeight(avail.Lexical, n), boolWeight(avail.Sequence, n)
		} else {
			sem, lex, seq = sem/sum, lex/sum, seq/sum
		}
	}

	w.Semantic = sem * textShare
	w.Lexical = lex * textShare
	w.Sequence = seq * textShare
	return w, true
}

func boolWeight(on bool, n float64) float64 {
	if !on {
		return 0
	}
	return 1 / n
}

// Sum returns the total of w.
func Sum(w model.Weights) float64 {
	return w.Semantic + w.Lexical + w.Sequence + w.Image
}
