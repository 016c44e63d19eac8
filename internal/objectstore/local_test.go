package objectstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), "", "https://example.com/")
	require.NoError(t, err)
	return s
}

func TestLocalStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, "sitemap.xml", []byte("v1"), PutOptions{Upsert: true}))
	got, err := s.Get(ctx, "sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	require.NoError(t, s.Put(ctx, "sitemap.xml", []byte("v2"), PutOptions{Upsert: true}))
	got, err = s.Get(ctx, "sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestLocalStoreCreateOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, "sitemaps/sitemap_1.xml", []byte("first"), PutOptions{}))
	err := s.Put(ctx, "sitemaps/sitemap_1.xml", []byte("second"), PutOptions{})
	assert.True(t, errors.Is(err, ErrExists), "expected ErrExists, got %v", err)

	got, err := s.Get(ctx, "sitemaps/sitemap_1.xml")
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
}

func TestLocalStoreGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing.xml")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, key := range []string{"", "../etc/passwd", "a/../../b", "a//b", "."} {
		err := s.Put(ctx, key, []byte("x"), PutOptions{Upsert: true})
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestLocalStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, "sitemaps/a.xml", []byte("a"), PutOptions{}))
	require.NoError(t, s.Put(ctx, "sitemaps/b.xml", []byte("bb"), PutOptions{}))
	require.NoError(t, s.Put(ctx, "sitemap.xml", []byte("root"), PutOptions{Upsert: true}))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(s.dir, "sitemaps", "a.xml"), old, old))

	objects, err := s.List(ctx, "sitemaps")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "sitemaps/b.xml", objects[0].Key)
	assert.Equal(t, int64(2), objects[0].Size)
	assert.Equal(t, "sitemaps/a.xml", objects[1].Key)

	empty, err := s.List(ctx, "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLocalStorePublicURL(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, "https://example.com/sitemap.xml", s.PublicURL("sitemap.xml"))
	assert.Equal(t, "https://example.com/sitemaps/x.xml", s.PublicURL("/sitemaps/x.xml"))
}
