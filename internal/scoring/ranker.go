package scoring

import (
	"math"

	"github.com/hyperjump/semlight/pkg/utils"
)

// NormTolerance is how far a vector norm may stray from 1 before it is not
// treated as unit length.
const NormTolerance = 1e-3

// ScoredPassage is one passage with its similarity to the topic.
type ScoredPassage struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Ranker scores passage vectors against a topic vector by cosine similarity.
// Because inputs are unit vectors the cosine is the dot product.
type Ranker struct{}

// Rank returns one ScoredPassage per text, in input order. Mismatched
// lengths, mismatched dimensions or non-unit vectors are programming errors
// and panic with an *Error of KindInternalInvariantViolation.
func (Ranker) Rank(topic []float32, passages [][]float32, texts []string) []ScoredPassage {
	if len(passages) != len(texts) {
		panic(newError(KindInternalInvariantViolation, nil,
			"ranker: %d vectors for %d passages", len(passages), len(texts)))
	}
	assertUnit("topic", -1, topic)

	out := make([]ScoredPassage, len(passages))
	for i, p := range passages {
		if len(p) != len(topic) {
			panic(newError(KindInternalInvariantViolation, nil,
				"ranker: passage %d has dimension %d, topic has %d", i, len(p), len(topic)))
		}
		assertUnit("passage", i, p)
		out[i] = ScoredPassage{Text: texts[i], Score: Cosine(topic, p)}
	}
	return out
}

// Cosine returns the dot product of two unit vectors, clamped to [-1, 1].
func Cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return utils.Clamp(dot, -1, 1)
}

func assertUnit(what string, i int, v []float32) {
	norm := utils.L2Norm(v)
	if math.IsNaN(norm) || math.Abs(norm-1) > NormTolerance {
		panic(newError(KindInternalInvariantViolation, nil,
			"ranker: %s %d is not unit length (norm %.6f)", what, i, norm))
	}
}
