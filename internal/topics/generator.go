package topics

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/semlight/internal/embedding"
	"github.com/hyperjump/semlight/internal/vector"
	"github.com/hyperjump/semlight/pkg/utils"
	"go.uber.org/zap"
)

// DefaultKeywordsPerTopic is how many nearest candidates become keywords.
const DefaultKeywordsPerTopic = 50

// Candidate keywords must be longer than minCandidateLen and shorter than
// maxCandidateLen runes.
const (
	minCandidateLen = 2
	maxCandidateLen = 30
)

// ModelSource hands out the loaded embedding model.
type ModelSource interface {
	Get(ctx context.Context) (embedding.Model, error)
}

// Generator builds keyword lists for topics by nearest-neighbour search of
// topic embeddings over a candidate vocabulary.
type Generator struct {
	models    ModelSource
	store     Store
	cachePath string
	logger    *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithIndexCache persists candidate embeddings at path so later runs only
// embed new candidates.
func WithIndexCache(path string) GeneratorOption {
	return func(g *Generator) { g.cachePath = path }
}

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = utils.OrNop(l) }
}

// NewGenerator returns a Generator writing to store. A nil store skips persistence.
func NewGenerator(models ModelSource, store Store, opts ...GeneratorOption) *Generator {
	g := &Generator{models: models, store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate embeds the candidates and the topic names, picks the topK nearest
// candidates for every topic, appends the lower-cased topic name and stores
// the result.
func (g *Generator) Generate(ctx context.Context, names, candidates []string, topK int) ([]*Topic, error) {
	names = CleanKeywords(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("no topics to generate")
	}
	candidates = NormalizeCandidates(candidates)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no usable candidate keywords")
	}
	if topK <= 0 {
		topK = DefaultKeywordsPerTopic
	}

	model, err := g.models.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	idx, err := g.candidateIndex(ctx, model, candidates)
	if err != nil {
		return nil, err
	}

	topicVecs, err := model.Embed(ctx, names, embedding.DefaultOptions)
	if err != nil {
		return nil, fmt.Errorf("embed topics: %w", err)
	}
	if len(topicVecs) != len(names) {
		return nil, fmt.Errorf("model returned %d vectors for %d topics", len(topicVecs), len(names))
	}

	out := make([]*Topic, 0, len(names))
	for i, name := range names {
		hits, err := idx.Search(ctx, topicVecs[i], topK)
		if err != nil {
			return nil, fmt.Errorf("search keywords for %q: %w", name, err)
		}
		keywords := make([]string, 0, len(hits)+1)
		for _, h := range hits {
			keywords = append(keywords, h.ID)
		}
		keywords = append(keywords, strings.ToLower(name))
		t := &Topic{Name: name, Keywords: CleanKeywords(keywords)}
		if len(hits) > 0 {
			g.logger.Debug("generated topic", zap.String("topic", name), zap.String("top_match", hits[0].ID))
		}
		out = append(out, t)
	}

	if g.store != nil {
		for _, t := range out {
			if err := g.store.Upsert(ctx, t); err != nil {
				return nil, fmt.Errorf("store topic %q: %w", t.Name, err)
			}
		}
	}
	g.logger.Info("generated topics", zap.Int("topics", len(out)), zap.Int("candidates", len(candidates)))
	return out, nil
}

// candidateIndex returns an index holding exactly the given candidates,
// reusing cached vectors and embedding the rest in one call.
func (g *Generator) candidateIndex(ctx context.Context, model embedding.Model, candidates []string) (*vector.MemoryIndex, error) {
	dims := model.Dimensions()
	idx, err := vector.NewMemoryIndex(dims)
	if err != nil {
		return nil, err
	}
	cache, err := vector.NewMemoryIndex(dims)
	if err != nil {
		return nil, err
	}
	if g.cachePath != "" {
		if err := cache.Load(g.cachePath); err != nil {
			g.logger.Warn("ignoring keyword index cache", zap.String("path", g.cachePath), zap.Error(err))
		}
	}

	var missing []string
	for _, c := range candidates {
		vec, ok := cache.Vector(c)
		if !ok {
			missing = append(missing, c)
			continue
		}
		if err := idx.Add(ctx, []string{c}, [][]float32{vec}); err != nil {
			return nil, err
		}
	}
	if len(missing) > 0 {
		g.logger.Info("embedding candidate keywords", zap.Int("new", len(missing)), zap.Int("cached", len(candidates)-len(missing)))
		vecs, err := model.Embed(ctx, missing, embedding.DefaultOptions)
		if err != nil {
			return nil, fmt.Errorf("embed candidates: %w", err)
		}
		if err := idx.Add(ctx, missing, vecs); err != nil {
			return nil, fmt.Errorf("index candidates: %w", err)
		}
		if err := cache.Add(ctx, missing, vecs); err != nil {
			return nil, fmt.Errorf("index candidates: %w", err)
		}
		if g.cachePath != "" {
			if err := cache.Save(g.cachePath); err != nil {
				g.logger.Warn("failed to save keyword index cache", zap.String("path", g.cachePath), zap.Error(err))
			}
		}
	}
	return idx, nil
}

// NormalizeCandidates lower-cases candidates, turns underscores into spaces
// and drops duplicates and entries outside the accepted length range.
func NormalizeCandidates(candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = utils.CollapseSpace(strings.ToLower(strings.ReplaceAll(c, "_", " ")))
		n := utf8.RuneCountInString(c)
		if n <= minCandidateLen || n >= maxCandidateLen || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// ReadLines reads one entry per line, skipping blank lines and # comments.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return out, nil
}

// ReadLinesFile is ReadLines for the file at path.
func ReadLinesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadLines(f)
}
