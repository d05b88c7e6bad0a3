package generate

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/manvip28/Eval-Me-Maybe/internal/model"
)

// LevelConfig bounds the questions generated at one Bloom level.
type LevelConfig struct {
	Marks      []int // allowed mark values, ascending
	ChunkWords int   // words of source content at the highest mark; 0 means all
}

// Levels is the per-level configuration.
var Levels = map[model.BloomLevel]LevelConfig{
	model.BloomRemember:   {Marks: []int{1, 2}, ChunkWords: 300},
	model.BloomUnderstand: {Marks: []int{2, 3, 5, 10}, ChunkWords: 600},
	model.BloomApply:      {Marks: []int{3, 4, 5, 10}, ChunkWords: 800},
	model.BloomAnalyze:    {Marks: []int{5, 6, 8}, ChunkWords: 1000},
	model.BloomEvaluate:   {Marks: []int{8, 10}, ChunkWords: 1200},
	model.BloomCreate:     {Marks: []int{10, 15}},
}

// levelWeights skews long content toward the middle of the taxonomy.
var levelWeights = []int{1, 2, 3, 4, 2, 1}

// SelectLevel picks a Bloom level for content of the given length in
// characters. Short content only supports recall questions.
func SelectLevel(rng *rand.Rand, contentLen int) model.BloomLevel {
	switch {
	case contentLen < 500:
		return model.BloomRemember
	case contentLen < 1500:
		return model.BloomLevels[rng.IntN(3)]
	}
	total := 0
	for _, w := range levelWeights {
		total += w
	}
	n := rng.IntN(total)
	for i, w := range levelWeights {
		if n < w {
			return model.BloomLevels[i]
		}
		n -= w
	}
	return model.BloomLevels[len(model.BloomLevels)-1]
}

// PickMarks chooses one of the allowed mark values for level.
func PickMarks(rng *rand.Rand, level model.BloomLevel) int {
	marks := Levels[level].Marks
	return marks[rng.IntN(len(marks))]
}

// Chunk returns the leading part of content sized for level and marks:
// ChunkWords scaled by marks over the level's highest mark.
func Chunk(content string, level model.BloomLevel, marks int) (string, error) {
	cfg, ok := Levels[level]
	if !ok {
		return "", fmt.Errorf("unknown bloom level %q", level)
	}
	if !slices.Contains(cfg.Marks, marks) {
		return "", fmt.Errorf("marks %d not allowed for level %s", marks, level)
	}
	if cfg.ChunkWords == 0 {
		return content, nil
	}
	size := cfg.ChunkWords * marks / slices.Max(cfg.Marks)
	words := strings.Fields(content)
	if len(words) <= size {
		return strings.Join(words, " "), nil
	}
	return strings.Join(words[:size], " "), nil
}
