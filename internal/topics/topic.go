// Package topics stores the topic catalog (topic name -> related keywords),
// searches topic names with typo tolerance and generates keyword lists with
// the embedding model.
package topics

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrTopicNotFound is returned when a topic name is not in the catalog.
var ErrTopicNotFound = errors.New("topic not found")

// Topic is a named subject with keywords that describe it.
type Topic struct {
	Name      string    `json:"name"`
	Keywords  []string  `json:"keywords"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Store persists topics. Names are matched case-insensitively.
type Store interface {
	Upsert(ctx context.Context, t *Topic) error
	ReplaceAll(ctx context.Context, topics []*Topic) error
	Get(ctx context.Context, name string) (*Topic, error)
	List(ctx context.Context) ([]*Topic, error)
	Names(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

// CleanKeywords trims keywords, drops empty ones and removes
// case-insensitive duplicates, keeping first-seen order.
func CleanKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, k)
	}
	return out
}
