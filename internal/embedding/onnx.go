//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// onnxBatchSize caps how many sequences go into one session run.
const onnxBatchSize = 32

// ONNXModel uses ONNX Runtime to run a sentence-transformers model exported
// with dynamic batch and sequence axes. It requires CGO and the onnxruntime shared library.
type ONNXModel struct {
	name       string
	session    *ort.DynamicAdvancedSession
	tokenizer  Tokenizer
	dimensions int
	maxTokens  int
	mu         sync.Mutex
}

// NewONNXModel creates an ONNX model. InitializeEnvironment is called if not already done.
func NewONNXModel(cfg ONNXConfig) (*ONNXModel, error) {
	if !ort.IsInitialized() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	var tok Tokenizer = &SimpleTokenizer{}
	if cfg.TokenizerPath != "" {
		wp, err := NewWordPieceTokenizer(cfg.TokenizerPath)
		if err != nil {
			return nil, err
		}
		tok = wp
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{cfg.OutputName},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXModel{
		name:       cfg.Name,
		session:    session,
		tokenizer:  tok,
		dimensions: cfg.Dimensions,
		maxTokens:  cfg.MaxTokens,
	}, nil
}

// Embed tokenizes texts, runs them through the session in padded batches
// and pools the token states into one vector per text.
func (m *ONNXModel) Embed(ctx context.Context, texts []string, opts EmbedOptions) ([][]float32, error) {
	if opts.Pooling != PoolingMean && opts.Pooling != PoolingCLS {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPooling, opts.Pooling)
	}
	encs := make([]Encoding, len(texts))
	for i, text := range texts {
		enc, err := m.tokenizer.Tokenize(text, m.maxTokens)
		if err != nil {
			return nil, err
		}
		encs[i] = enc
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, fmt.Errorf("model %s is closed", m.name)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(encs); start += onnxBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+onnxBatchSize, len(encs))
		vecs, err := m.run(encs[start:end], opts)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (m *ONNXModel) run(encs []Encoding, opts EmbedOptions) ([][]float32, error) {
	batch := len(encs)
	seqLen := 0
	for _, e := range encs {
		seqLen = max(seqLen, e.Len())
	}

	ids := make([]int64, batch*seqLen)
	mask := make([]int64, batch*seqLen)
	types := make([]int64, batch*seqLen)
	for i, e := range encs {
		copy(ids[i*seqLen:], e.IDs)
		copy(mask[i*seqLen:], e.AttentionMask)
		copy(types[i*seqLen:], e.TypeIDs)
	}

	shape := ort.NewShape(int64(batch), int64(seqLen))
	idsTensor, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typesTensor, err := ort.NewTensor(shape, types)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typesTensor.Destroy()
	outTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(batch), int64(seqLen), int64(m.dimensions)))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outTensor.Destroy()

	err = m.session.Run(
		[]ort.ArbitraryTensor{idsTensor, maskTensor, typesTensor},
		[]ort.ArbitraryTensor{outTensor},
	)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	hidden := outTensor.GetData()
	rowSize := seqLen * m.dimensions
	vecs := make([][]float32, batch)
	for i := range encs {
		row := hidden[i*rowSize : (i+1)*rowSize]
		var v []float32
		if opts.Pooling == PoolingCLS {
			v = CLSPool(row, m.dimensions)
		} else {
			v = MeanPool(row, mask[i*seqLen:(i+1)*seqLen], m.dimensions)
		}
		if opts.Normalize {
			NormalizeL2Slice(v)
		}
		vecs[i] = v
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (m *ONNXModel) Dimensions() int {
	return m.dimensions
}

// Name returns the configured model name.
func (m *ONNXModel) Name() string {
	return m.name
}

// Close destroys the session.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}
