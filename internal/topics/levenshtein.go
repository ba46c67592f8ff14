package topics

import "strings"

// LevenshteinDistance calculates the minimum number of single-character edits
// (insertions, deletions, or substitutions) required to change one string into another.
func LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	runesA := []rune(a)
	runesB := []rune(b)
	if len(runesA) == 0 {
		return len(runesB)
	}
	if len(runesB) == 0 {
		return len(runesA)
	}

	// Two rows of the edit matrix are enough.
	prev := make([]int, len(runesB)+1)
	curr := make([]int, len(runesB)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(runesA); i++ {
		curr[0] = i
		for j := 1; j <= len(runesB); j++ {
			cost := 0
			if runesA[i-1] != runesB[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(runesB)]
}

// MatchDistance scores how well query matches name on a 0 (exact) to 1
// (nothing in common) scale. The query may match anywhere in the name: the
// best window of the name around the query's length is compared, so "intel"
// matches "Artificial Intelligence" closely. Comparison ignores case.
func MatchDistance(query, name string) float64 {
	q := []rune(strings.ToLower(strings.TrimSpace(query)))
	n := []rune(strings.ToLower(name))
	if len(q) == 0 {
		return 1
	}
	if len(n) == 0 {
		return 1
	}

	best := float64(LevenshteinDistance(string(q), string(n))) / float64(max(len(q), len(n)))
	for size := len(q) - 1; size <= len(q)+1; size++ {
		if size <= 0 || size > len(n) {
			continue
		}
		for start := 0; start+size <= len(n); start++ {
			d := float64(LevenshteinDistance(string(q), string(n[start:start+size]))) / float64(len(q))
			if d < best {
				best = d
			}
			if best == 0 {
				return 0
			}
		}
	}
	return min(best, 1)
}
