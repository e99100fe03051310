package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubSource is a scriptable catalog source for cache tests.
type stubSource struct {
	name    string
	kind    Source
	records []MaterialRecord
	err     error
	loads   int
}

func (s *stubSource) Load(ctx context.Context) ([]MaterialRecord, error) {
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func (s *stubSource) Kind() Source {
	if s.kind == "" {
		return SourceCustom
	}
	return s.kind
}
func (s *stubSource) Describe() string { return fmt.Sprintf("stub source %s", s.name) }

func TestCacheLoadsOncePerSource(t *testing.T) {
	source := &stubSource{name: "a", records: []MaterialRecord{{ID: "1", Name: "Concrete"}}}
	cache := NewCache(zap.NewNop())

	first, err := cache.Get(context.Background(), source)
	require.NoError(t, err)
	second, err := cache.Get(context.Background(), source)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, source.loads)
}

func TestCacheReloadSwapsWholeCatalog(t *testing.T) {
	source := &stubSource{name: "a", records: []MaterialRecord{{ID: "1", Name: "Concrete"}}}
	cache := NewCache(zap.NewNop())

	first, err := cache.Get(context.Background(), source)
	require.NoError(t, err)

	source.records = []MaterialRecord{{ID: "1", Name: "Concrete"}, {ID: "2", Name: "Steel"}}
	reloaded, err := cache.Reload(context.Background(), source)
	require.NoError(t, err)

	assert.NotSame(t, first, reloaded)
	assert.Equal(t, 2, reloaded.Len())

	cached, err := cache.Get(context.Background(), source)
	require.NoError(t, err)
	assert.Same(t, reloaded, cached)
}

func TestCacheKeepsPriorCatalogOnFailedReload(t *testing.T) {
	source := &stubSource{name: "a", records: []MaterialRecord{{ID: "1", Name: "Concrete"}}}
	cache := NewCache(zap.NewNop())

	good, err := cache.Get(context.Background(), source)
	require.NoError(t, err)

	source.err = errors.New("upstream down")
	_, err = cache.Reload(context.Background(), source)
	require.Error(t, err)

	cached, err := cache.Get(context.Background(), source)
	require.NoError(t, err)
	assert.Same(t, good, cached)
}

func TestCacheFailedFirstLoadCachesNothing(t *testing.T) {
	source := &stubSource{name: "a", err: errors.New("no file")}
	cache := NewCache(zap.NewNop())

	_, err := cache.Get(context.Background(), source)
	require.Error(t, err)

	source.err = nil
	source.records = []MaterialRecord{{ID: "1", Name: "Concrete"}}
	catalog, err := cache.Get(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())
	assert.Equal(t, 2, source.loads, "a failed load must be retried on the next Get")
}

func TestCacheInvalidateForcesRebuild(t *testing.T) {
	source := &stubSource{name: "a", records: []MaterialRecord{{ID: "1", Name: "Concrete"}}}
	cache := NewCache(zap.NewNop())

	_, err := cache.Get(context.Background(), source)
	require.NoError(t, err)

	cache.Invalidate(source.Describe())
	assert.Empty(t, cache.Sources())

	_, err = cache.Get(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, 2, source.loads)
}
