package topics

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// Default search settings: a match may be 40% edits away from the query, and
// at most ten names are returned.
const (
	DefaultFuzzyThreshold = 0.4
	DefaultSearchLimit    = 10
)

// Match is one topic name returned by NameIndex.Search.
type Match struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

type nameDoc struct {
	Name string `json:"name"`
}

// NameIndex is an in-memory, typo-tolerant index of topic names. Bleve
// finds candidates (fuzzy, prefix and plain term matches); candidates are
// then ranked by MatchDistance and cut at the threshold.
type NameIndex struct {
	mu        sync.RWMutex
	index     bleve.Index
	names     []string
	threshold float64
}

// NewNameIndex returns an empty index. threshold <= 0 uses DefaultFuzzyThreshold.
func NewNameIndex(threshold float64) (*NameIndex, error) {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	idx, err := newMemIndex()
	if err != nil {
		return nil, err
	}
	return &NameIndex{index: idx, threshold: threshold}, nil
}

func newMemIndex() (bleve.Index, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", nameField)
	im.DefaultMapping = docMapping

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create name index: %w", err)
	}
	return idx, nil
}

// Rebuild replaces the indexed names.
func (n *NameIndex) Rebuild(names []string) error {
	idx, err := newMemIndex()
	if err != nil {
		return err
	}
	batch := idx.NewBatch()
	for _, name := range names {
		if err := batch.Index(name, nameDoc{Name: name}); err != nil {
			_ = idx.Close()
			return fmt.Errorf("index %q: %w", name, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("index names: %w", err)
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	n.mu.Lock()
	old := n.index
	n.index = idx
	n.names = sorted
	n.mu.Unlock()
	return old.Close()
}

// Len returns the number of indexed names.
func (n *NameIndex) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.names)
}

// Search returns up to limit names matching query, best first. An empty
// query returns no matches.
func (n *NameIndex) Search(query string, limit int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Match{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	req := bleve.NewSearchRequest(buildNameQuery(query))
	req.Size = max(limit*5, 50)
	res, err := n.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("name search failed: %w", err)
	}
	candidates := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		candidates = append(candidates, hit.ID)
	}
	// Substring matches inside a word are invisible to term queries.
	if len(candidates) < limit {
		candidates = n.names
	}

	matches := make([]Match, 0, limit)
	for _, name := range candidates {
		d := MatchDistance(query, name)
		if d <= n.threshold {
			matches = append(matches, Match{Name: name, Distance: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return len(matches[i].Name) < len(matches[j].Name)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Close releases the index.
func (n *NameIndex) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index.Close()
}

// buildNameQuery ORs, per query term, a fuzzy query and a prefix query, plus
// an analyzed match over the whole query.
func buildNameQuery(query string) blevequery.Query {
	var queries []blevequery.Query
	for _, term := range strings.Fields(strings.ToLower(query)) {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(min(2, max(1, len([]rune(term))/4)))
		fq.SetField("name")
		pq := bleve.NewPrefixQuery(term)
		pq.SetField("name")
		queries = append(queries, fq, pq)
	}
	mq := bleve.NewMatchQuery(query)
	mq.SetField("name")
	queries = append(queries, mq)
	return bleve.NewDisjunctionQuery(queries...)
}
