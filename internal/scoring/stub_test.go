package scoring

import (
	"context"
	"strings"
	"sync"

	"github.com/hyperjump/semlight/internal/embedding"
)

const stubDims = 64

// concepts groups related words onto a shared dimension so the stub model
// behaves like a (very small) semantic model.
var concepts = map[string]int{
	"artificial": 0, "intelligence": 0, "ai": 0, "deep": 0, "learning": 0,
	"models": 0, "model": 0, "train": 0, "datasets": 0, "neural": 0,
	"cereal": 1, "breakfast": 1, "food": 1, "cooking": 1,
	"football": 2, "goal": 2, "match": 2,
}

// bowModel is a bag-of-words embedding model used in tests.
type bowModel struct {
	mu     sync.Mutex
	calls  [][]string
	err    error
	mutate func([][]float32) [][]float32
}

func (m *bowModel) Embed(ctx context.Context, texts []string, opts embedding.EmbedOptions) ([][]float32, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), texts...))
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, stubDims)
		for _, w := range strings.Fields(strings.ToLower(text)) {
			w = strings.Trim(w, ".,!?")
			if c, ok := concepts[w]; ok {
				v[c]++
				continue
			}
			v[4+embedding.HashString(w)%(stubDims-4)]++
		}
		if opts.Normalize {
			embedding.NormalizeL2Slice(v)
		}
		out[i] = v
	}
	if m.mutate != nil {
		out = m.mutate(out)
	}
	return out, nil
}

func (m *bowModel) Dimensions() int { return stubDims }
func (m *bowModel) Name() string    { return "bow" }
func (m *bowModel) Close() error    { return nil }

func (m *bowModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// stubSource is a ModelSource that returns a fixed model or error.
type stubSource struct {
	model embedding.Model
	err   error
	gets  int
}

func (s *stubSource) Get(ctx context.Context) (embedding.Model, error) {
	s.gets++
	if s.err != nil {
		return nil, s.err
	}
	return s.model, nil
}
