package costreport

import (
	"slices"
	"strings"
)

// RankedEntry pairs a 1-based rank with its accumulator.
type RankedEntry struct {
	Rank int
	Acc  *Accumulator
}

// Rank returns the n accumulators with the greatest total cost in
// descending order. Cost ties order by (table, prefix) ascending so
// repeated runs over the same data rank identically. n <= 0 returns
// an empty list; n larger than the input returns everything. The
// input slice is not reordered.
func Rank(accs []*Accumulator, n int) []RankedEntry {
	if n <= 0 || len(accs) == 0 {
		return nil
	}

	sorted := slices.Clone(accs)
	slices.SortFunc(sorted, func(x, y *Accumulator) int {
		switch {
		case x.TotalCost > y.TotalCost:
			return -1
		case x.TotalCost < y.TotalCost:
			return 1
		}
		if c := strings.Compare(x.Table, y.Table); c != 0 {
			return c
		}
		return strings.Compare(x.Prefix, y.Prefix)
	})

	if n > len(sorted) {
		n = len(sorted)
	}

	entries := make([]RankedEntry, n)
	for i, acc := range sorted[:n] {
		entries[i] = RankedEntry{Rank: i + 1, Acc: acc}
	}
	return entries
}
