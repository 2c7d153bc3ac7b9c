package saucenao

import "sort"

// rank drops results below minSimilarity, orders the rest by similarity
// (best first), then promotes the first result whose index appears earliest
// in priority, as long as it is within tolerance of the best similarity.
func rank(results []Result, minSimilarity float64, priority []int, tolerance float64) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Similarity() >= minSimilarity {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity() > out[j].Similarity() })

	floor := out[0].Similarity() - tolerance
	for _, idx := range priority {
		for i, r := range out {
			if r.Header.IndexID != idx || r.Similarity() < floor {
				continue
			}
			if i > 0 {
				promoted := out[i]
				copy(out[1:i+1], out[:i])
				out[0] = promoted
			}
			return out
		}
	}
	return out
}
