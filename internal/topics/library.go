package topics

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/semlight/pkg/utils"
	"go.uber.org/zap"
)

// Catalog ties the topic store to the in-memory name index.
type Catalog struct {
	store  Store
	index  *NameIndex
	logger *zap.Logger
	mu     sync.Mutex // serializes reloads
}

// NewCatalog returns a catalog over store. Call Refresh to fill the name index.
func NewCatalog(store Store, index *NameIndex, logger *zap.Logger) *Catalog {
	return &Catalog{store: store, index: index, logger: utils.OrNop(logger)}
}

// Store returns the underlying store.
func (c *Catalog) Store() Store { return c.store }

// LoadFile replaces the stored catalog with the topics.json file at path and
// refreshes the name index.
func (c *Catalog) LoadFile(ctx context.Context, path string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := ImportFile(ctx, c.store, path)
	if err != nil {
		return 0, err
	}
	if err := c.refreshLocked(ctx); err != nil {
		return n, err
	}
	c.logger.Info("loaded topics", zap.String("path", path), zap.Int("topics", n))
	return n, nil
}

// Refresh rebuilds the name index from the store.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Catalog) refreshLocked(ctx context.Context) error {
	names, err := c.store.Names(ctx)
	if err != nil {
		return fmt.Errorf("list topic names: %w", err)
	}
	if err := c.index.Rebuild(names); err != nil {
		return err
	}
	c.logger.Debug("rebuilt topic name index", zap.Int("names", len(names)))
	return nil
}

// Search finds topic names close to query.
func (c *Catalog) Search(query string, limit int) ([]Match, error) {
	return c.index.Search(query, limit)
}

// Get returns one topic with its keywords.
func (c *Catalog) Get(ctx context.Context, name string) (*Topic, error) {
	return c.store.Get(ctx, name)
}

// Names returns every topic name.
func (c *Catalog) Names(ctx context.Context) ([]string, error) {
	return c.store.Names(ctx)
}

// Count returns the number of topics.
func (c *Catalog) Count(ctx context.Context) (int64, error) {
	return c.store.Count(ctx)
}

// Close closes the name index and the store.
func (c *Catalog) Close() error {
	ierr := c.index.Close()
	if err := c.store.Close(); err != nil {
		return err
	}
	return ierr
}
