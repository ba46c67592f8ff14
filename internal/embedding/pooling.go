package embedding

import "github.com/hyperjump/semlight/pkg/utils"

// MeanPool averages the token vectors of hidden ([tokens*dim], row-major)
// whose attention mask is set. Returns a zero vector when the mask is empty.
func MeanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var count float64
	sums := make([]float64, dim)
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for j, v := range row {
			sums[j] += float64(v)
		}
		count++
	}
	if count == 0 {
		return out
	}
	for j := range sums {
		out[j] = float32(sums[j] / count)
	}
	return out
}

// CLSPool returns a copy of the first token vector.
func CLSPool(hidden []float32, dim int) []float32 {
	out := make([]float32, dim)
	copy(out, hidden[:dim])
	return out
}

// NormalizeL2Slice normalizes the slice in place to unit L2 norm.
func NormalizeL2Slice(x []float32) {
	utils.NormalizeL2(x)
}
