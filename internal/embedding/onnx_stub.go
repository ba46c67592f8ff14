//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errNoCGO = errors.New("ONNX model requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXModel stub type when built without CGO (see onnx.go for real implementation).
type ONNXModel struct{}

// NewONNXModel returns an error when built without CGO (ONNX not available).
func NewONNXModel(_ ONNXConfig) (*ONNXModel, error) {
	return nil, errNoCGO
}

func (m *ONNXModel) Embed(_ context.Context, _ []string, _ EmbedOptions) ([][]float32, error) {
	return nil, errNoCGO
}

func (m *ONNXModel) Dimensions() int { return 0 }
func (m *ONNXModel) Name() string    { return "" }
func (m *ONNXModel) Close() error    { return nil }
