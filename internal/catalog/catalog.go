package catalog

import (
	"context"
	"fmt"
	"sync"
)

// Source loads the full set of catalog items, keyed by item id.
type Source interface {
	Load(ctx context.Context) (map[string]*Item, error)
}

// Catalog is an explicit, process-local snapshot of the curriculum.
// It is constructed once, injected into the evaluator and progression
// engine, and refreshed on demand. Reads are served from the snapshot;
// a few seconds of staleness is acceptable for catalog data.
type Catalog struct {
	source Source

	mu    sync.RWMutex
	items map[string]*Item
}

// New builds a Catalog over the given source and performs the initial
// load.
func New(ctx context.Context, source Source) (*Catalog, error) {
	c := &Catalog{source: source, items: map[string]*Item{}}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh reloads the snapshot from the source. On failure the previous
// snapshot stays in place.
func (c *Catalog) Refresh(ctx context.Context) error {
	items, err := c.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

// GetItem returns the item with the given id, or false if absent.
func (c *Catalog) GetItem(id string) (*Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	return it, ok
}

// AllItems returns a copy of the snapshot keyed by item id.
func (c *Catalog) AllItems() map[string]*Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*Item, len(c.items))
	for id, it := range c.items {
		out[id] = it
	}
	return out
}

// Len returns the number of items in the snapshot.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// StaticSource is a Source over a fixed item set, used by tests and by
// the catalog subcommands.
type StaticSource map[string]*Item

// Load returns the fixed item set.
func (s StaticSource) Load(context.Context) (map[string]*Item, error) {
	out := make(map[string]*Item, len(s))
	for id, it := range s {
		out[id] = it
	}
	return out, nil
}
