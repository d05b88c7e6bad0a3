// Package assign pairs rows with columns of a score matrix one-to-one.
package assign

import "sort"

// Pair is one accepted (row, column) match.
type Pair struct {
	Row   int
	Col   int
	Score float64
}

// Greedy walks all cells in descending score order and accepts a cell when
// neither its row nor its column has been taken yet. Cells scoring at or below
// threshold are never accepted. Ties break on lower row, then lower column, so
// the result is deterministic. Pairs are returned in acceptance order.
func Greedy(scores [][]float64, threshold float64) []Pair {
	var cells []Pair
	for i, row := range scores {
		for j, s := range row {
			if s > threshold {
				cells = append(cells, Pair{Row: i, Col: j, Score: s})
			}
		}
	}
	sort.SliceStable(cells, func(a, b int) bool {
		if cells[a].Score != cells[b].Score {
			return cells[a].Score > cells[b].Score
		}
		if cells[a].Row != cells[b].Row {
			return cells[a].Row < cells[b].Row
		}
		return cells[a].Col < cells[b].Col
	})

	usedRow := make(map[int]bool)
	usedCol := make(map[int]bool)
	var out []Pair
	for _, c := range cells {
		if usedRow[c.Row] || usedCol[c.Col] {
			continue
		}
		usedRow[c.Row] = true
		usedCol[c.Col] = true
		out = append(out, c)
	}
	return out
}

// Total sums the scores of pairs.
func Total(pairs []Pair) float64 {
	var sum float64
	for _, p := range pairs {
		sum += p.Score
	}
	return sum
}
