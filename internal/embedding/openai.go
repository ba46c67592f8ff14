package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openAIMaxBatch is the most inputs sent in one embeddings request.
const openAIMaxBatch = 100

// OpenAIModel calls an OpenAI-compatible embeddings endpoint. The service
// returns pooled vectors, so only PoolingMean (its native pooling) and
// PoolingNone are accepted.
type OpenAIModel struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewOpenAIModel creates a remote model. baseURL may be empty for the public API.
func NewOpenAIModel(cfg OpenAIConfig) (*OpenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is empty")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	return &OpenAIModel{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed sends texts in batches of at most 100 and places each result by its index.
func (m *OpenAIModel) Embed(ctx context.Context, texts []string, opts EmbedOptions) ([][]float32, error) {
	if opts.Pooling == PoolingCLS {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPooling, opts.Pooling)
	}
	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += openAIMaxBatch {
		end := min(start+openAIMaxBatch, len(texts))
		if err := m.embedBatch(ctx, texts[start:end], out[start:end]); err != nil {
			return nil, err
		}
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("openai: no embedding returned for input %d", i)
		}
		if opts.Normalize {
			NormalizeL2Slice(v)
		}
	}
	return out, nil
}

func (m *OpenAIModel) embedBatch(ctx context.Context, texts []string, out [][]float32) error {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(m.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}
	if m.dimensions > 0 {
		params.Dimensions = openai.Int(int64(m.dimensions))
	}

	resp, err := m.client.Embeddings.New(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(out) {
			return fmt.Errorf("openai: embedding index %d out of range", idx)
		}
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		out[idx] = vector
	}
	return nil
}

// Dimensions returns the requested embedding dimension.
func (m *OpenAIModel) Dimensions() int {
	return m.dimensions
}

// Name returns the remote model name.
func (m *OpenAIModel) Name() string {
	return m.model
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (m *OpenAIModel) Close() error {
	return nil
}
