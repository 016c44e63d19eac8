// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sitemap generates the site, blog and index sitemap documents and
// persists them to the object store under canonical and historical keys.
package sitemap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/agencyworks/siteworks/internal/model"
	"github.com/agencyworks/siteworks/internal/objectstore"
	"github.com/agencyworks/siteworks/internal/seo"
)

// Canonical document keys.
const (
	KeySite  = "sitemap.xml"
	KeyBlog  = "sitemap-posts.xml"
	KeyIndex = "sitemap-index.xml"

	// HistoryPrefix holds timestamped copies. Keys under it are never overwritten.
	HistoryPrefix = "sitemaps"
)

// ContentType is stored with every generated document.
const ContentType = "application/xml"

const (
	cacheControl = "3600"
	// maxHistoryAttempts bounds timestamp bumps on historical key collisions.
	maxHistoryAttempts = 5
)

// Kind identifies one of the generated documents.
type Kind string

// Document kinds.
const (
	KindSite  Kind = "site"
	KindBlog  Kind = "blog"
	KindIndex Kind = "index"
)

// ParseKind converts a request parameter into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindSite, KindBlog, KindIndex:
		return k, nil
	}
	return "", fmt.Errorf("unknown sitemap kind %q", s)
}

// ContentSource supplies the records sitemaps are built from. Both lists are
// expected newest first.
type ContentSource interface {
	ListPublishedPosts(ctx context.Context) ([]model.BlogPost, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
}

// Config configures a Generator.
type Config struct {
	// DefaultBaseURL is used when a request carries no base URL.
	DefaultBaseURL string
	// StaticPages are emitted first, in order. Nil means DefaultStaticPages.
	StaticPages []StaticPage
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Result describes a persisted document.
type Result struct {
	Kind        Kind      `json:"kind"`
	Key         string    `json:"key"`
	HistoryKey  string    `json:"history_key,omitempty"`
	URL         string    `json:"url"`
	Entries     int       `json:"entries"`
	Size        int       `json:"size"`
	GeneratedAt time.Time `json:"generated_at"`
	Document    []byte    `json:"-"`
}

// Generator builds and persists sitemap documents.
type Generator struct {
	content ContentSource
	store   objectstore.Store
	logger  *slog.Logger
	cfg     Config
	locks   *keyLock
}

// NewGenerator creates a Generator.
func NewGenerator(content ContentSource, store objectstore.Store, logger *slog.Logger, cfg Config) *Generator {
	if cfg.StaticPages == nil {
		cfg.StaticPages = DefaultStaticPages
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		content: content,
		store:   store,
		logger:  logger,
		cfg:     cfg,
		locks:   newKeyLock(),
	}
}

// BaseURL returns baseURL, or the configured default when it is empty.
func (g *Generator) BaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = g.cfg.DefaultBaseURL
	}
	return strings.TrimSuffix(baseURL, "/")
}

// Generate dispatches to the generator for kind.
func (g *Generator) Generate(ctx context.Context, kind Kind, baseURL string) (*Result, error) {
	switch kind {
	case KindSite:
		return g.GenerateSite(ctx, baseURL)
	case KindBlog:
		return g.GenerateBlog(ctx, baseURL)
	case KindIndex:
		return g.GenerateIndex(ctx)
	}
	return nil, fmt.Errorf("unknown sitemap kind %q", kind)
}

// BuildSite renders the full-site sitemap without persisting it.
func (g *Generator) BuildSite(ctx context.Context, baseURL string) ([]byte, int, error) {
	posts, err := g.content.ListPublishedPosts(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("querying posts: %w", err)
	}
	projects, err := g.content.ListProjects(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("querying projects: %w", err)
	}

	b := seo.NewSitemapBuilder(g.BaseURL(baseURL))
	for _, p := range g.cfg.StaticPages {
		if err := b.AddPath(p.Path, nil, p.ChangeFreq, seo.Priority(p.Priority)); err != nil {
			return nil, 0, fmt.Errorf("adding static page %q: %w", p.Path, err)
		}
	}
	if err := addPosts(b, posts); err != nil {
		return nil, 0, err
	}
	for _, p := range projects {
		lastMod := p.LastModified()
		if err := b.AddPath("/portfolio/"+p.Slug, &lastMod, seo.ChangeFreqMonthly, seo.Priority(0.6)); err != nil {
			return nil, 0, fmt.Errorf("adding project %q: %w", p.Slug, err)
		}
		if p.CaseStudy {
			if err := b.AddPath("/case-studies/"+p.Slug, &lastMod, seo.ChangeFreqMonthly, seo.Priority(0.7)); err != nil {
				return nil, 0, fmt.Errorf("adding case study %q: %w", p.Slug, err)
			}
		}
	}

	doc, err := b.Build()
	if err != nil {
		return nil, 0, fmt.Errorf("rendering sitemap: %w", err)
	}
	return doc, b.Len(), nil
}

// BuildBlog renders the blog-only sitemap without persisting it.
func (g *Generator) BuildBlog(ctx context.Context, baseURL string) ([]byte, int, error) {
	posts, err := g.content.ListPublishedPosts(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("querying posts: %w", err)
	}

	b := seo.NewSitemapBuilder(g.BaseURL(baseURL))
	if err := addPosts(b, posts); err != nil {
		return nil, 0, err
	}
	doc, err := b.Build()
	if err != nil {
		return nil, 0, fmt.Errorf("rendering blog sitemap: %w", err)
	}
	return doc, b.Len(), nil
}

func addPosts(b *seo.SitemapBuilder, posts []model.BlogPost) error {
	for _, p := range posts {
		if !p.Published {
			continue
		}
		lastMod := p.LastModified()
		if err := b.AddPath("/blog/"+p.Slug, &lastMod, seo.ChangeFreqWeekly, seo.Priority(0.7)); err != nil {
			return fmt.Errorf("adding post %q: %w", p.Slug, err)
		}
	}
	return nil
}

// GenerateSite builds the full-site sitemap and persists it.
func (g *Generator) GenerateSite(ctx context.Context, baseURL string) (*Result, error) {
	unlock := g.locks.Lock(KeySite)
	defer unlock()

	doc, n, err := g.BuildSite(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	return g.persist(ctx, KindSite, KeySite, "sitemap", doc, n)
}

// GenerateBlog builds the blog sitemap and persists it.
func (g *Generator) GenerateBlog(ctx context.Context, baseURL string) (*Result, error) {
	unlock := g.locks.Lock(KeyBlog)
	defer unlock()

	doc, n, err := g.BuildBlog(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	return g.persist(ctx, KindBlog, KeyBlog, "blog-sitemap", doc, n)
}

// GenerateIndex writes a sitemap index referencing the canonical site and
// blog sitemaps, each stamped with the current date. It does not check that
// the referenced documents exist.
func (g *Generator) GenerateIndex(ctx context.Context) (*Result, error) {
	unlock := g.locks.Lock(KeyIndex)
	defer unlock()

	now := g.cfg.Now()
	b := seo.NewIndexBuilder()
	for _, key := range []string{KeySite, KeyBlog} {
		if err := b.Add(g.store.PublicURL(key), now); err != nil {
			return nil, fmt.Errorf("adding %s to index: %w", key, err)
		}
	}
	doc, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("rendering sitemap index: %w", err)
	}

	if err := g.store.Put(ctx, KeyIndex, doc, canonicalOptions()); err != nil {
		return nil, fmt.Errorf("uploading %s: %w", KeyIndex, err)
	}

	g.logger.Info("sitemap index generated", "key", KeyIndex, "sitemaps", b.Len())
	return &Result{
		Kind:        KindIndex,
		Key:         KeyIndex,
		URL:         g.store.PublicURL(KeyIndex),
		Entries:     b.Len(),
		Size:        len(doc),
		GeneratedAt: now,
		Document:    doc,
	}, nil
}

// persist writes the historical copy first and only then the canonical key,
// so a failed historical write never moves the canonical pointer. A failed
// canonical write leaves the historical copy in place.
func (g *Generator) persist(ctx context.Context, kind Kind, key, historyName string, doc []byte, entries int) (*Result, error) {
	now := g.cfg.Now()

	historyKey, err := g.putHistory(ctx, historyName, now, doc)
	if err != nil {
		return nil, err
	}
	if err := g.store.Put(ctx, key, doc, canonicalOptions()); err != nil {
		g.logger.Error("canonical sitemap upload failed", "key", key, "history_key", historyKey, "error", err)
		return nil, fmt.Errorf("uploading %s: %w", key, err)
	}

	g.logger.Info("sitemap generated", "key", key, "history_key", historyKey, "entries", entries, "bytes", len(doc))
	return &Result{
		Kind:        kind,
		Key:         key,
		HistoryKey:  historyKey,
		URL:         g.store.PublicURL(key),
		Entries:     entries,
		Size:        len(doc),
		GeneratedAt: now,
		Document:    doc,
	}, nil
}

func (g *Generator) putHistory(ctx context.Context, name string, now time.Time, doc []byte) (string, error) {
	ts := now.UnixMilli()
	opts := objectstore.PutOptions{ContentType: ContentType, CacheControl: cacheControl}

	for i := 0; i < maxHistoryAttempts; i++ {
		key := HistoryKey(name, ts)
		err := g.store.Put(ctx, key, doc, opts)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, objectstore.ErrExists) {
			return "", fmt.Errorf("uploading %s: %w", key, err)
		}
		ts++
	}
	return "", fmt.Errorf("uploading %s history: %w", name, objectstore.ErrExists)
}

// HistoryKey returns the historical object key for name at ts (unix millis).
func HistoryKey(name string, ts int64) string {
	return path.Join(HistoryPrefix, name+"_"+strconv.FormatInt(ts, 10)+".xml")
}

func canonicalOptions() objectstore.PutOptions {
	return objectstore.PutOptions{
		ContentType:  ContentType,
		CacheControl: cacheControl,
		Upsert:       true,
	}
}

// History lists historical copies, newest first.
func (g *Generator) History(ctx context.Context) ([]objectstore.Object, error) {
	objects, err := g.store.List(ctx, HistoryPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing sitemap history: %w", err)
	}
	return objects, nil
}

// Canonical returns the stored canonical document for kind.
func (g *Generator) Canonical(ctx context.Context, kind Kind) ([]byte, error) {
	return g.store.Get(ctx, KeyFor(kind))
}

// PublicURL returns the public URL of the canonical document for kind.
func (g *Generator) PublicURL(kind Kind) string {
	return g.store.PublicURL(KeyFor(kind))
}

// ObjectURL returns the public URL of a stored object.
func (g *Generator) ObjectURL(key string) string {
	return g.store.PublicURL(key)
}

// KeyFor returns the canonical key of kind.
func KeyFor(kind Kind) string {
	switch kind {
	case KindBlog:
		return KeyBlog
	case KindIndex:
		return KeyIndex
	default:
		return KeySite
	}
}

// RegenerateAll rebuilds the site and blog sitemaps, then the index.
func (g *Generator) RegenerateAll(ctx context.Context, baseURL string) error {
	if _, err := g.GenerateSite(ctx, baseURL); err != nil {
		return err
	}
	if _, err := g.GenerateBlog(ctx, baseURL); err != nil {
		return err
	}
	_, err := g.GenerateIndex(ctx)
	return err
}
