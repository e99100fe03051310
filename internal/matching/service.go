package matching

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"building-lca/analyzer-backend/internal/catalog"
)

// Service ties the matcher to the catalog cache. The token index is built
// once per loaded catalog and rebuilt only when the cache swaps in a new
// catalog for the active source.
type Service struct {
	cache  *catalog.Cache
	source catalog.CatalogSource
	config Config
	logger *zap.Logger

	mu      sync.Mutex
	matcher *Matcher
	built   *catalog.Catalog
}

// NewService creates a matching service over the active catalog source.
func NewService(cache *catalog.Cache, source catalog.CatalogSource, config Config, logger *zap.Logger) *Service {
	return &Service{
		cache:  cache,
		source: source,
		config: config,
		logger: logger,
	}
}

// Catalog returns the active catalog, loading it on first use.
func (s *Service) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	return s.cache.Get(ctx, s.source)
}

// Matcher returns a matcher indexed over the active catalog, rebuilding the
// index when the cached catalog instance has been replaced.
func (s *Service) Matcher(ctx context.Context) (*Matcher, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.matcher == nil || s.built != cat {
		s.matcher = NewMatcher(cat, s.config, s.logger)
		s.built = cat
		s.logger.Debug("rebuilt matching index", zap.Int("records", cat.Len()))
	}
	return s.matcher, nil
}
