package filter

import (
	"cmp"
	"slices"

	"github.com/jamesainslie/imgbench/pkg/imgbench/limits"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// Compare orders candidates by ascending file size, then by path.
func Compare(a, b types.ImageCandidate) int {
	if c := cmp.Compare(a.FileSizeBytes, b.FileSizeBytes); c != 0 {
		return c
	}
	return cmp.Compare(a.Path, b.Path)
}

// Select returns the smallest l.MaxCandidateCount candidates in ascending
// size order. The input is not modified. Fewer candidates than the limit,
// including none, is a valid result.
func Select(candidates []types.ImageCandidate, l limits.BenchmarkLimits) []types.ImageCandidate {
	selected := slices.Clone(candidates)
	slices.SortFunc(selected, Compare)

	if n := max(l.MaxCandidateCount, 0); len(selected) > n {
		selected = selected[:n]
	}
	if selected == nil {
		selected = []types.ImageCandidate{}
	}
	return selected
}
