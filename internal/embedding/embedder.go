// Package embedding provides sentence-embedding models (ONNX, OpenAI, mock),
// pooling and normalization helpers, and an LRU-cached model decorator.
package embedding

import (
	"context"
	"errors"
)

// Pooling selects how token vectors are reduced to one sentence vector.
type Pooling string

const (
	PoolingMean Pooling = "mean"
	PoolingCLS  Pooling = "cls"
	// PoolingNone leaves pooling to the backend (remote models return pooled vectors).
	PoolingNone Pooling = "none"
)

// EmbedOptions are passed with every Embed call.
type EmbedOptions struct {
	Pooling   Pooling
	Normalize bool
}

// DefaultOptions is mean pooling with L2 normalization.
var DefaultOptions = EmbedOptions{Pooling: PoolingMean, Normalize: true}

// ErrUnsupportedPooling is returned by backends that cannot apply the requested pooling.
var ErrUnsupportedPooling = errors.New("unsupported pooling")

// Model maps texts to fixed-dimension vectors. Embed returns exactly one
// vector per input text, in input order.
type Model interface {
	Embed(ctx context.Context, texts []string, opts EmbedOptions) ([][]float32, error)
	Dimensions() int
	Name() string
	Close() error
}
