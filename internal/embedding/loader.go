package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/semlight/internal/config"
	"go.uber.org/zap"
)

// ONNXConfig configures NewONNXModel.
type ONNXConfig struct {
	Name          string
	ModelPath     string
	TokenizerPath string
	LibraryPath   string
	OutputName    string
	Dimensions    int
	MaxTokens     int
}

// OpenAIConfig configures NewOpenAIModel. MaxRetries < 0 keeps the client default.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	MaxRetries int
}

// LoaderFunc builds a ready-to-use Model. It may block for a long time
// (model files are large) and is expected to be called at most once per
// successful load.
type LoaderFunc func(ctx context.Context) (Model, error)

// NewLoader returns a LoaderFunc for the backend named in cfg, wrapping the
// result in a CachedModel when cfg.CacheSize is positive.
func NewLoader(cfg config.EmbeddingConfig, logger *zap.Logger) LoaderFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context) (Model, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Info("loading embedding model",
			zap.String("backend", cfg.Backend),
			zap.String("model", cfg.ModelName))

		var m Model
		switch cfg.Backend {
		case config.BackendONNX:
			onnx, err := NewONNXModel(ONNXConfig{
				Name:          cfg.ModelName,
				ModelPath:     cfg.ModelPath,
				TokenizerPath: cfg.TokenizerPath,
				LibraryPath:   cfg.ONNXRuntimePath,
				OutputName:    cfg.OutputName,
				Dimensions:    cfg.Dimensions,
				MaxTokens:     cfg.MaxTokens,
			})
			if err != nil {
				return nil, err
			}
			m = onnx
		case config.BackendOpenAI:
			remote, err := NewOpenAIModel(OpenAIConfig{
				APIKey:     cfg.APIKey(),
				BaseURL:    cfg.OpenAIBaseURL,
				Model:      cfg.ModelName,
				Dimensions: cfg.Dimensions,
				MaxRetries: 2,
			})
			if err != nil {
				return nil, err
			}
			m = remote
		case config.BackendMock:
			m = NewMockModel(cfg.Dimensions)
		default:
			return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
		}

		if cfg.CacheSize > 0 {
			m = NewCachedModel(m, cfg.CacheSize)
		}
		logger.Info("embedding model ready",
			zap.String("model", m.Name()),
			zap.Int("dimensions", m.Dimensions()))
		return m, nil
	}
}
