package topics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// ParseJSON reads a catalog in the topics.json format: an object mapping
// each topic name to its keyword list. Topics come back sorted by name.
func ParseJSON(r io.Reader) ([]*Topic, error) {
	var raw map[string][]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Topic, 0, len(names))
	for _, name := range names {
		out = append(out, &Topic{Name: name, Keywords: CleanKeywords(raw[name])})
	}
	return out, nil
}

// WriteJSON writes topics in the topics.json format.
func WriteJSON(w io.Writer, topics []*Topic) error {
	raw := make(map[string][]string, len(topics))
	for _, t := range topics {
		kws := t.Keywords
		if kws == nil {
			kws = []string{}
		}
		raw[t.Name] = kws
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(raw)
}

// Import replaces the catalog in store with the topics read from r and
// returns how many were imported.
func Import(ctx context.Context, store Store, r io.Reader) (int, error) {
	topics, err := ParseJSON(r)
	if err != nil {
		return 0, err
	}
	if err := store.ReplaceAll(ctx, topics); err != nil {
		return 0, fmt.Errorf("store topics: %w", err)
	}
	return len(topics), nil
}

// ImportFile is Import for the file at path.
func ImportFile(ctx context.Context, store Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open topics file: %w", err)
	}
	defer f.Close()
	return Import(ctx, store, f)
}

// Export writes the whole catalog in store to w.
func Export(ctx context.Context, store Store, w io.Writer) error {
	topics, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	return WriteJSON(w, topics)
}
