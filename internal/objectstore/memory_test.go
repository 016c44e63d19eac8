package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("https://cdn.example.com/files/")

	require.NoError(t, s.Put(ctx, "sitemaps/a.xml", []byte("a"), PutOptions{ContentType: "application/xml"}))
	assert.ErrorIs(t, s.Put(ctx, "sitemaps/a.xml", []byte("b"), PutOptions{}), ErrExists)
	require.NoError(t, s.Put(ctx, "sitemap.xml", []byte("x"), PutOptions{Upsert: true}))
	require.NoError(t, s.Put(ctx, "sitemap.xml", []byte("y"), PutOptions{Upsert: true}))

	data, err := s.Get(ctx, "sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, "y", string(data))

	_, err = s.Get(ctx, "nope.xml")
	assert.ErrorIs(t, err, ErrNotFound)

	root, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, "sitemap.xml", root[0].Key)

	history, err := s.List(ctx, "sitemaps")
	require.NoError(t, err)
	require.Len(t, history, 1)

	opts, ok := s.Options("sitemaps/a.xml")
	require.True(t, ok)
	assert.Equal(t, "application/xml", opts.ContentType)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "https://cdn.example.com/files/sitemap.xml", s.PublicURL("sitemap.xml"))
}
