// Package imagesim compares diagrams with the structural similarity index
// (SSIM) computed on downscaled grayscale images.
package imagesim

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/manvip28/Eval-Me-Maybe/internal/assign"
	"github.com/manvip28/Eval-Me-Maybe/internal/storage"
)

const (
	// DefaultSize is the side both images are resized to before comparison.
	DefaultSize = 256

	window = 8
	stride = 4
	c1     = (0.01 * 255) * (0.01 * 255)
	c2     = (0.03 * 255) * (0.03 * 255)
)

// Scorer resolves image references through a storage.Reader and scores
// them with SSIM.
type Scorer struct {
	reader storage.Reader
	size   int
}

// New returns a Scorer. A nil reader makes every score unavailable.
func New(r storage.Reader, size int) *Scorer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Scorer{reader: r, size: size}
}

// Score compares candidate images against reference images. With several
// images per side, pairs are matched one-to-one by descending similarity and
// the matched scores are averaged over the decodable reference images. ok is
// false when either side has no decodable image.
func (s *Scorer) Score(ctx context.Context, candidates, references []string) (score float64, ok bool) {
	if s == nil || s.reader == nil || len(candidates) == 0 || len(references) == 0 {
		return 0, false
	}
	cand := s.load(ctx, candidates)
	ref := s.load(ctx, references)
	if len(cand) == 0 || len(ref) == 0 {
		slog.Warn("image similarity unavailable", "reason", "no decodable image",
			"candidates", len(cand), "references", len(ref))
		return 0, false
	}

	matrix := make([][]float64, len(ref))
	for i, r := range ref {
		matrix[i] = make([]float64, len(cand))
		for j, c := range cand {
			matrix[i][j] = ssim(r, c, s.size)
		}
	}
	pairs := assign.Greedy(matrix, -1)
	return clamp01(assign.Total(pairs) / float64(len(ref))), true
}

func (s *Scorer) load(ctx context.Context, refs []string) [][]float64 {
	var out [][]float64
	for _, ref := range refs {
		data, err := s.reader.ReadFile(ctx, ref)
		if err != nil {
			slog.Warn("read image", "ref", ref, "error", err)
			continue
		}
		g, err := decodeGray(data, s.size)
		if err != nil {
			slog.Warn("decode image", "ref", ref, "error", err)
			continue
		}
		out = append(out, g)
	}
	return out
}

// SSIM decodes two encoded images and returns their mean SSIM in [0, 1]
// after resizing both to size×size grayscale.
func SSIM(a, b []byte, size int) (float64, error) {
	if size <= 0 {
		size = DefaultSize
	}
	ga, err := decodeGray(a, size)
	if err != nil {
		return 0, fmt.Errorf("decode first image: %w", err)
	}
	gb, err := decodeGray(b, size)
	if err != nil {
		return 0, fmt.Errorf("decode second image: %w", err)
	}
	return ssim(ga, gb, size), nil
}

func decodeGray(data []byte, size int) ([]float64, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return grayPixels(img, size), nil
}

// grayPixels returns size*size luminance values in row-major order.
func grayPixels(img image.Image, size int) []float64 {
	g := imaging.Grayscale(imaging.Resize(img, size, size, imaging.Lanczos))
	out := make([]float64, size*size)
	for y := range size {
		row := g.Pix[y*g.Stride:]
		for x := range size {
			out[y*size+x] = float64(row[x*4])
		}
	}
	return out
}

// ssim averages the SSIM index over window×window blocks taken every
// stride pixels. Images smaller than one window form a single block.
func ssim(a, b []float64, size int) float64 {
	w := min(window, size)
	var sum float64
	var n int
	for y := 0; y+w <= size; y += stride {
		for x := 0; x+w <= size; x += stride {
			sum += blockSSIM(a, b, size, x, y, w)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return clamp01(sum / float64(n))
}

func blockSSIM(a, b []float64, size, x0, y0, w int) float64 {
	var ma, mb float64
	for y := y0; y < y0+w; y++ {
		for x := x0; x < x0+w; x++ {
			ma += a[y*size+x]
			mb += b[y*size+x]
		}
	}
	cnt := float64(w * w)
	ma /= cnt
	mb /= cnt

	var va, vb, cov float64
	for y := y0; y < y0+w; y++ {
		for x := x0; x < x0+w; x++ {
			da := a[y*size+x] - ma
			db := b[y*size+x] - mb
			va += da * da
			vb += db * db
			cov += da * db
		}
	}
	va /= cnt
	vb /= cnt
	cov /= cnt

	return ((2*ma*mb + c1) * (2*cov + c2)) / ((ma*ma + mb*mb + c1) * (va + vb + c2))
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
