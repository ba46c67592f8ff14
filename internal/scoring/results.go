package scoring

import "sort"

// SortByScore returns a copy of results ordered by descending score. Equal
// scores keep their input order.
func SortByScore(results []ScoredPassage) []ScoredPassage {
	out := make([]ScoredPassage, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Above returns the results whose score is at least threshold, in input order.
func Above(results []ScoredPassage, threshold float64) []ScoredPassage {
	out := make([]ScoredPassage, 0, len(results))
	for _, r := range results {
		if r.Score >= threshold {
			out = append(out, r)
		}
	}
	return out
}
