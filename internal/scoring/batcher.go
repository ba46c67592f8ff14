package scoring

import (
	"context"
	"math"

	"github.com/hyperjump/semlight/internal/embedding"
	"github.com/hyperjump/semlight/pkg/utils"
)

// Batcher embeds a topic together with its passages in one model call.
type Batcher struct {
	Options embedding.EmbedOptions
}

// NewBatcher returns a Batcher using mean pooling and normalization.
func NewBatcher() *Batcher {
	return &Batcher{Options: embedding.DefaultOptions}
}

// Embed runs model over [topic] ++ passages and splits the result. The
// returned vectors are unit length; passage vectors mirror passage order.
func (b *Batcher) Embed(ctx context.Context, model embedding.Model, topic string, passages []string) ([]float32, [][]float32, error) {
	inputs := make([]string, 0, len(passages)+1)
	inputs = append(inputs, topic)
	inputs = append(inputs, passages...)

	vecs, err := model.Embed(ctx, inputs, b.Options)
	if err != nil {
		if c := canceled(ctx); c != nil {
			return nil, nil, c
		}
		return nil, nil, newError(KindEmbeddingRuntimeFailure, err, "embedding %d inputs with %s failed", len(inputs), model.Name())
	}
	if len(vecs) != len(inputs) {
		return nil, nil, newError(KindInternalInvariantViolation, nil,
			"model %s returned %d vectors for %d inputs", model.Name(), len(vecs), len(inputs))
	}

	dim := model.Dimensions()
	if dim <= 0 {
		dim = len(vecs[0])
	}
	for i, v := range vecs {
		if len(v) != dim {
			return nil, nil, newError(KindInternalInvariantViolation, nil,
				"model %s returned vector %d with dimension %d, want %d", model.Name(), i, len(v), dim)
		}
		norm := utils.L2Norm(v)
		if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
			return nil, nil, newError(KindEmbeddingRuntimeFailure, nil,
				"model %s returned a degenerate vector for input %d", model.Name(), i)
		}
		if math.Abs(norm-1) > NormTolerance/10 {
			utils.NormalizeL2(v)
		}
	}
	return vecs[0], vecs[1:], nil
}
