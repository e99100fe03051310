package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Cache holds the catalog built from each configured source. A catalog is
// built once per source selection and replaced wholesale on reload, so
// concurrent readers see either the prior complete catalog or the next one,
// never a partially-built one.
type Cache struct {
	catalogs map[string]*Catalog
	sources  map[string]CatalogSource
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewCache creates an empty catalog cache.
func NewCache(logger *zap.Logger) *Cache {
	return &Cache{
		catalogs: make(map[string]*Catalog),
		sources:  make(map[string]CatalogSource),
		logger:   logger,
	}
}

// Get returns the cached catalog for a source descriptor, loading it on
// first use. A failed load caches nothing, so the next Get retries.
func (c *Cache) Get(ctx context.Context, source CatalogSource) (*Catalog, error) {
	key := source.Describe()

	c.mu.RLock()
	catalog, ok := c.catalogs[key]
	c.mu.RUnlock()
	if ok {
		return catalog, nil
	}

	return c.Reload(ctx, source)
}

// Reload rebuilds the catalog for a source and swaps it in whole. The prior
// catalog stays visible until the new one is complete; on failure the prior
// catalog (if any) is kept.
func (c *Cache) Reload(ctx context.Context, source CatalogSource) (*Catalog, error) {
	records, err := source.Load(ctx)
	if err != nil {
		c.logger.Warn("catalog load failed", zap.String("source", source.Describe()), zap.Error(err))
		return nil, err
	}
	catalog := NewCatalog(source.Kind(), records)

	c.mu.Lock()
	c.catalogs[source.Describe()] = catalog
	c.sources[source.Describe()] = source
	c.mu.Unlock()

	c.logger.Info("catalog cached",
		zap.String("source", source.Describe()),
		zap.Int("records", catalog.Len()))
	return catalog, nil
}

// Invalidate drops the cached catalog for a source descriptor, forcing the
// next Get to rebuild it. Used when the source file or connection changes.
func (c *Cache) Invalidate(describe string) {
	c.mu.Lock()
	delete(c.catalogs, describe)
	delete(c.sources, describe)
	c.mu.Unlock()
}

// Sources returns the sources with a currently cached catalog.
func (c *Cache) Sources() []CatalogSource {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sources := make([]CatalogSource, 0, len(c.sources))
	for _, source := range c.sources {
		sources = append(sources, source)
	}
	return sources
}
