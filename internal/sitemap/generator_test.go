package sitemap

import (
	"context"
	"encoding/xml"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyworks/siteworks/internal/model"
	"github.com/agencyworks/siteworks/internal/objectstore"
	"github.com/agencyworks/siteworks/internal/seo"
	"github.com/agencyworks/siteworks/internal/testutil"
)

type fakeContent struct {
	posts    []model.BlogPost
	projects []model.Project
	err      error
}

func (f *fakeContent) ListPublishedPosts(context.Context) ([]model.BlogPost, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.posts, nil
}

func (f *fakeContent) ListProjects(context.Context) ([]model.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.projects, nil
}

// failingStore fails Put for keys with the given prefix.
type failingStore struct {
	*objectstore.MemoryStore
	failPrefix string
}

func (s *failingStore) Put(ctx context.Context, key string, data []byte, opts objectstore.PutOptions) error {
	if strings.HasPrefix(key, s.failPrefix) {
		return errors.New("storage unavailable")
	}
	return s.MemoryStore.Put(ctx, key, data, opts)
}

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func newGenerator(content ContentSource, store objectstore.Store) *Generator {
	return NewGenerator(content, store, testutil.TestLoggerSilent(), Config{
		DefaultBaseURL: "https://www.example-agency.com",
		StaticPages: []StaticPage{
			{Path: "/", Priority: 1.0, ChangeFreq: seo.ChangeFreqWeekly},
			{Path: "/contact", Priority: 0.7, ChangeFreq: seo.ChangeFreqYearly},
		},
		Now: func() time.Time { return fixedNow },
	})
}

func parseURLSet(t *testing.T, doc []byte) seo.Sitemap {
	t.Helper()
	var s seo.Sitemap
	require.NoError(t, xml.Unmarshal(doc, &s))
	return s
}

func samplePosts() []model.BlogPost {
	updated := time.Date(2025, 2, 20, 8, 0, 0, 0, time.UTC)
	return []model.BlogPost{
		{Slug: "newest", Published: true, CreatedAt: time.Date(2025, 2, 1, 23, 59, 0, 0, time.UTC)},
		{Slug: "middle", Published: true, CreatedAt: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), UpdatedAt: &updated},
		{Slug: "oldest", Published: true, CreatedAt: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func TestGenerateBlogOneURLPerPost(t *testing.T) {
	store := objectstore.NewMemoryStore("https://cdn.example.com")
	g := newGenerator(&fakeContent{posts: samplePosts()}, store)

	res, err := g.GenerateBlog(context.Background(), "https://staging.example.com/")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Entries)

	s := parseURLSet(t, res.Document)
	require.Len(t, s.URLs, 3)
	assert.Equal(t, "https://staging.example.com/blog/newest", s.URLs[0].Loc)
	assert.Equal(t, "https://staging.example.com/blog/middle", s.URLs[1].Loc)
	assert.Equal(t, "https://staging.example.com/blog/oldest", s.URLs[2].Loc)

	// updated_at falls back to created_at
	assert.Equal(t, "2025-02-01", s.URLs[0].LastMod)
	assert.Equal(t, "2025-02-20", s.URLs[1].LastMod)
	for _, u := range s.URLs {
		assert.Equal(t, seo.ChangeFreqWeekly, u.ChangeFreq)
		assert.Equal(t, "0.7", u.Priority)
	}

	stored, err := store.Get(context.Background(), KeyBlog)
	require.NoError(t, err)
	assert.Equal(t, res.Document, stored)
	assert.Equal(t, HistoryKey("blog-sitemap", fixedNow.UnixMilli()), res.HistoryKey)
}

func TestGenerateBlogSkipsDrafts(t *testing.T) {
	posts := append(samplePosts(), model.BlogPost{Slug: "draft", CreatedAt: fixedNow})
	g := newGenerator(&fakeContent{posts: posts}, objectstore.NewMemoryStore(""))

	doc, n, err := g.BuildBlog(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NotContains(t, string(doc), "/blog/draft")
}

func TestGenerateSiteOrderingAndCaseStudies(t *testing.T) {
	content := &fakeContent{
		posts: samplePosts()[:1],
		projects: []model.Project{
			{Slug: "acme-rebrand", CaseStudy: true, CreatedAt: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)},
			{Slug: "globex-site", CaseStudy: false, CreatedAt: time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC)},
		},
	}
	store := objectstore.NewMemoryStore("https://cdn.example.com")
	g := newGenerator(content, store)

	res, err := g.GenerateSite(context.Background(), "")
	require.NoError(t, err)

	s := parseURLSet(t, res.Document)
	var locs []string
	for _, u := range s.URLs {
		locs = append(locs, u.Loc)
	}
	assert.Equal(t, []string{
		"https://www.example-agency.com/",
		"https://www.example-agency.com/contact",
		"https://www.example-agency.com/blog/newest",
		"https://www.example-agency.com/portfolio/acme-rebrand",
		"https://www.example-agency.com/case-studies/acme-rebrand",
		"https://www.example-agency.com/portfolio/globex-site",
	}, locs)

	// Static entries carry no lastmod.
	assert.Empty(t, s.URLs[0].LastMod)
	assert.Equal(t, "1.0", s.URLs[0].Priority)
	assert.Equal(t, "2025-01-03", s.URLs[3].LastMod)
	assert.Equal(t, KeySite, res.Key)
	assert.True(t, strings.HasPrefix(res.HistoryKey, "sitemaps/sitemap_"))
}

func TestRegenerateAddsOneHistoryKeyPerRun(t *testing.T) {
	ctx := context.Background()
	content := &fakeContent{posts: samplePosts()[:1]}
	store := objectstore.NewMemoryStore("https://cdn.example.com")
	g := newGenerator(content, store)

	first, err := g.GenerateBlog(ctx, "")
	require.NoError(t, err)

	content.posts = samplePosts()
	second, err := g.GenerateBlog(ctx, "")
	require.NoError(t, err)

	// Same clock reading, so the second run bumps the timestamp.
	assert.NotEqual(t, first.HistoryKey, second.HistoryKey)

	history, err := g.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	firstCopy, err := store.Get(ctx, first.HistoryKey)
	require.NoError(t, err)
	assert.Equal(t, first.Document, firstCopy, "historical copy must not be overwritten")

	canonical, err := g.Canonical(ctx, KindBlog)
	require.NoError(t, err)
	assert.Equal(t, second.Document, canonical)
}

func TestGenerateQueryFailureWritesNothing(t *testing.T) {
	store := objectstore.NewMemoryStore("")
	g := newGenerator(&fakeContent{err: errors.New("connection refused")}, store)

	_, err := g.GenerateSite(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying posts")
	assert.Equal(t, 0, store.Len())
}

func TestHistoryUploadFailureKeepsCanonical(t *testing.T) {
	ctx := context.Background()
	mem := objectstore.NewMemoryStore("")
	require.NoError(t, mem.Put(ctx, KeyBlog, []byte("previous"), objectstore.PutOptions{Upsert: true}))

	g := newGenerator(&fakeContent{posts: samplePosts()}, &failingStore{MemoryStore: mem, failPrefix: HistoryPrefix})
	_, err := g.GenerateBlog(ctx, "")
	require.Error(t, err)

	canonical, err := mem.Get(ctx, KeyBlog)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(canonical))
}

func TestCanonicalUploadFailureLeavesHistory(t *testing.T) {
	ctx := context.Background()
	mem := objectstore.NewMemoryStore("")
	g := newGenerator(&fakeContent{posts: samplePosts()}, &failingStore{MemoryStore: mem, failPrefix: KeyBlog})

	_, err := g.GenerateBlog(ctx, "")
	require.Error(t, err)

	history, err := mem.List(ctx, HistoryPrefix)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestGenerateIndexHasExactlyTwoEntries(t *testing.T) {
	for _, n := range []int{0, 1, 50} {
		posts := make([]model.BlogPost, n)
		for i := range posts {
			posts[i] = model.BlogPost{Slug: "p", Published: true, CreatedAt: fixedNow}
		}
		store := objectstore.NewMemoryStore("https://cdn.example.com/storage/v1/object/public/files")
		g := newGenerator(&fakeContent{posts: posts}, store)

		res, err := g.GenerateIndex(context.Background())
		require.NoError(t, err)

		var idx seo.Index
		require.NoError(t, xml.Unmarshal(res.Document, &idx))
		require.Len(t, idx.Sitemaps, 2)
		assert.Equal(t, "https://cdn.example.com/storage/v1/object/public/files/sitemap.xml", idx.Sitemaps[0].Loc)
		assert.Equal(t, "https://cdn.example.com/storage/v1/object/public/files/sitemap-posts.xml", idx.Sitemaps[1].Loc)
		assert.Equal(t, "2025-03-14", idx.Sitemaps[0].LastMod)

		opts, ok := store.Options(KeyIndex)
		require.True(t, ok)
		assert.True(t, opts.Upsert)
	}
}

func TestRegenerateAll(t *testing.T) {
	store := objectstore.NewMemoryStore("")
	g := newGenerator(&fakeContent{posts: samplePosts()}, store)

	require.NoError(t, g.RegenerateAll(context.Background(), ""))
	for _, key := range []string{KeySite, KeyBlog, KeyIndex} {
		_, err := store.Get(context.Background(), key)
		assert.NoError(t, err, key)
	}
}

func TestConcurrentGenerationKeepsEveryHistoryCopy(t *testing.T) {
	store := objectstore.NewMemoryStore("")
	g := newGenerator(&fakeContent{posts: samplePosts()}, store)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.GenerateSite(context.Background(), "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := g.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 4)
	assert.Equal(t, 0, g.locks.size())
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"site", "BLOG", "index"} {
		_, err := ParseKind(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseKind("rss")
	assert.Error(t, err)
	assert.Equal(t, KeyIndex, KeyFor(KindIndex))
	assert.Equal(t, KeySite, KeyFor(""))
}

func TestGeneratorPublicURL(t *testing.T) {
	g := newGenerator(&fakeContent{}, objectstore.NewMemoryStore("https://cdn.example-agency.com/files"))
	assert.Equal(t, "https://cdn.example-agency.com/files/sitemap-index.xml", g.PublicURL(KindIndex))
	assert.Equal(t, "https://cdn.example-agency.com/files/sitemap-posts.xml", g.PublicURL(KindBlog))
}
