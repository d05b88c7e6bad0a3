// Package semantic scores answers by cosine similarity of text embeddings.
// The embedding backend is injected; when it is missing or failing the score
// is reported as unavailable instead of failing the evaluation.
package semantic

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/manvip28/Eval-Me-Maybe/internal/textnorm"
)

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a function to Embedder.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed implements Embedder.
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// Scorer computes semantic similarity through an Embedder.
type Scorer struct {
	embedder Embedder
	timeout  time.Duration
}

// New returns a Scorer. A nil embedder makes every score unavailable.
// A zero timeout means calls are bounded only by the caller context.
func New(e Embedder, timeout time.Duration) *Scorer {
	return &Scorer{embedder: e, timeout: timeout}
}

// Available reports whether an embedder is configured.
func (s *Scorer) Available() bool {
	return s != nil && s.embedder != nil
}

// WithEmbedder returns a copy of s using e.
func (s *Scorer) WithEmbedder(e Embedder) *Scorer {
	if s == nil {
		return New(e, 0)
	}
	return &Scorer{embedder: e, timeout: s.timeout}
}

// Embedder returns the configured embedder, possibly nil.
func (s *Scorer) Embedder() Embedder {
	if s == nil {
		return nil
	}
	return s.embedder
}

// Score returns the clamped cosine similarity of candidate and reference.
// ok is false when the signal is unavailable. Blank text on either side
// scores 0 and counts as available.
func (s *Scorer) Score(ctx context.Context, candidate, reference string) (score float64, ok bool) {
	if !s.Available() {
		return 0, false
	}
	if textnorm.IsBlank(candidate) || textnorm.IsBlank(reference) {
		return 0, true
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	a, err := s.embedder.Embed(ctx, candidate)
	if err != nil {
		logUnavailable("embed candidate", err)
		return 0, false
	}
	b, err := s.embedder.Embed(ctx, reference)
	if err != nil {
		logUnavailable("embed reference", err)
		return 0, false
	}

	sim, ok := Cosine(a, b)
	if !ok {
		slog.Warn("semantic score unavailable", "reason", "degenerate embedding", "len_a", len(a), "len_b", len(b))
		return 0, false
	}
	return sim, true
}

func logUnavailable(step string, err error) {
	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	slog.Warn("semantic score unavailable", "step", step, "reason", reason, "error", err)
}

// Cosine returns the cosine similarity of a and b clamped to [0, 1]. ok is
// false for empty vectors, mismatched dimensions or a zero norm.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	c := dot / (math.Sqrt(na) * math.Sqrt(nb))
	switch {
	case math.IsNaN(c), c < 0:
		return 0, true
	case c > 1:
		return 1, true
	}
	return c, true
}
