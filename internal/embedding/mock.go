package embedding

import (
	"context"
	"math"
)

// MockModel is a deterministic model for tests and offline development. It
// returns a fixed-dimension vector derived from the text hash so that the same
// text always gets the same embedding.
type MockModel struct {
	dimensions int
}

// NewMockModel returns a model that produces deterministic embeddings of the given dimensions.
func NewMockModel(dimensions int) *MockModel {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockModel{dimensions: dimensions}
}

// Embed returns a deterministic embedding for each text based on its hash.
func (m *MockModel) Embed(ctx context.Context, texts []string, opts EmbedOptions) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := HashString(text)
		emb := make([]float32, m.dimensions)
		for j := range emb {
			emb[j] = float32(math.Sin(float64(h*(j+1)))*0.1 + 0.01)
		}
		if opts.Normalize {
			NormalizeL2Slice(emb)
		}
		out[i] = emb
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (m *MockModel) Dimensions() int {
	return m.dimensions
}

// Name returns "mock".
func (m *MockModel) Name() string {
	return "mock"
}

// Close is a no-op for MockModel.
func (m *MockModel) Close() error {
	return nil
}
