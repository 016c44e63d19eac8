package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyworks/siteworks/internal/objectstore"
	"github.com/agencyworks/siteworks/internal/testutil"
)

// countingStore records how often reads reach the underlying store.
type countingStore struct {
	objectstore.Store
	gets atomic.Int32
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.gets.Add(1)
	return s.Store.Get(ctx, key)
}

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (brokenCache) Delete(context.Context, string) error { return nil }
func (brokenCache) Close() error                         { return nil }

func newCachedStore(t *testing.T, c Cache) (*CachedStore, *countingStore) {
	t.Helper()
	backing := &countingStore{Store: objectstore.NewMemoryStore("https://cdn.example-agency.com/files")}
	return NewCachedStore(backing, c, time.Minute, testutil.TestLoggerSilent()), backing
}

func TestCachedStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	s, backing := newCachedStore(t, NewMemoryCache(MemoryOptions{}))

	require.NoError(t, s.Put(ctx, "sitemap.xml", []byte("v1"), objectstore.PutOptions{}))

	for range 3 {
		got, err := s.Get(ctx, "sitemap.xml")
		require.NoError(t, err)
		assert.Equal(t, "v1", string(got))
	}
	assert.Equal(t, int32(1), backing.gets.Load())

	stats, ok := s.Stats()
	require.True(t, ok)
	assert.Equal(t, int64(2), stats.Hits)
}

func TestCachedStoreUpsertRefreshes(t *testing.T) {
	ctx := context.Background()
	s, backing := newCachedStore(t, NewMemoryCache(MemoryOptions{}))

	require.NoError(t, s.Put(ctx, "sitemap.xml", []byte("v1"), objectstore.PutOptions{Upsert: true}))
	_, err := s.Get(ctx, "sitemap.xml")
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "sitemap.xml", []byte("v2"), objectstore.PutOptions{Upsert: true}))
	got, err := s.Get(ctx, "sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
	assert.Equal(t, int32(0), backing.gets.Load())
}

func TestCachedStoreMissingObject(t *testing.T) {
	s, _ := newCachedStore(t, NewMemoryCache(MemoryOptions{}))

	_, err := s.Get(context.Background(), "sitemap-index.xml")
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
}

func TestCachedStoreFailedPutLeavesCache(t *testing.T) {
	ctx := context.Background()
	s, _ := newCachedStore(t, NewMemoryCache(MemoryOptions{}))

	require.NoError(t, s.Put(ctx, "sitemaps/site_1.xml", []byte("old"), objectstore.PutOptions{}))
	err := s.Put(ctx, "sitemaps/site_1.xml", []byte("new"), objectstore.PutOptions{})
	require.ErrorIs(t, err, objectstore.ErrExists)

	got, err := s.Get(ctx, "sitemaps/site_1.xml")
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestCachedStoreSurvivesBrokenCache(t *testing.T) {
	ctx := context.Background()
	s, backing := newCachedStore(t, brokenCache{})

	require.NoError(t, s.Put(ctx, "sitemap.xml", []byte("v1"), objectstore.PutOptions{Upsert: true}))
	got, err := s.Get(ctx, "sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
	assert.Equal(t, int32(1), backing.gets.Load())

	_, ok := s.Stats()
	assert.False(t, ok)
}

func TestCachedStoreDelegates(t *testing.T) {
	ctx := context.Background()
	s, _ := newCachedStore(t, NewMemoryCache(MemoryOptions{}))

	require.NoError(t, s.Put(ctx, "sitemaps/site_1.xml", []byte("a"), objectstore.PutOptions{}))
	objects, err := s.List(ctx, "sitemaps")
	require.NoError(t, err)
	assert.Len(t, objects, 1)
	assert.Equal(t, "https://cdn.example-agency.com/files/sitemap.xml", s.PublicURL("sitemap.xml"))
}
