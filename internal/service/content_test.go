// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyworks/siteworks/internal/model"
	"github.com/agencyworks/siteworks/internal/testutil"
)

func newContentService(t *testing.T) *ContentService {
	t.Helper()
	return NewContentService(testutil.TestQueries(t), testutil.TestLoggerSilent())
}

func TestCreatePostDerivesSlug(t *testing.T) {
	svc := newContentService(t)
	post, err := svc.CreatePost(context.Background(), PostInput{
		Title:   "  Rebranding a Café Chain  ",
		Content: "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "rebranding-a-cafe-chain", post.Slug)
	assert.Equal(t, "Rebranding a Café Chain", post.Title)
	assert.NotEmpty(t, post.ID)
	assert.False(t, post.CreatedAt.IsZero())
	assert.Nil(t, post.UpdatedAt)
}

func TestCreatePostValidation(t *testing.T) {
	svc := newContentService(t)
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, PostInput{Title: ""})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "title")

	_, err = svc.CreatePost(ctx, PostInput{Title: "Ok", Slug: "Not Valid"})
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "slug")

	_, err = svc.CreatePost(ctx, PostInput{Title: strings.Repeat("x", MaxTitleLength+1)})
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "title")
}

func TestCreatePostDuplicateSlug(t *testing.T) {
	svc := newContentService(t)
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, PostInput{Title: "Launch"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, PostInput{Title: "Launch"})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "Slug already exists", ve.Fields["slug"])
}

func TestUpdatePostSetsUpdatedAt(t *testing.T) {
	svc := newContentService(t)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, PostInput{Title: "Draft"})
	require.NoError(t, err)

	updated, err := svc.UpdatePost(ctx, post.ID, PostInput{Title: "Final", Slug: "final", Published: true})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Slug)
	assert.True(t, updated.Published)
	require.NotNil(t, updated.UpdatedAt)

	_, err = svc.UpdatePost(ctx, "missing", PostInput{Title: "x"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetPublishedPostHidesDrafts(t *testing.T) {
	svc := newContentService(t)
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, PostInput{Title: "Secret", Content: "draft"})
	require.NoError(t, err)
	_, err = svc.GetPublishedPost(ctx, "secret")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.CreatePost(ctx, PostInput{
		Title:     "Public",
		Content:   "# Heading\n\n<script>alert(1)</script>\n\n[link](https://example.com)",
		Published: true,
	})
	require.NoError(t, err)

	rendered, err := svc.GetPublishedPost(ctx, "public")
	require.NoError(t, err)
	html := string(rendered.HTML)
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, `href="https://example.com"`)
	assert.NotContains(t, html, "<script>")
}

func TestProjectLifecycle(t *testing.T) {
	svc := newContentService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, ProjectInput{Title: "Harbor Coffee", Client: "Harbor", CaseStudy: true})
	require.NoError(t, err)
	assert.Equal(t, "harbor-coffee", p.Slug)

	got, err := svc.GetProjectBySlug(ctx, "harbor-coffee")
	require.NoError(t, err)
	assert.True(t, got.CaseStudy)

	p, err = svc.UpdateProject(ctx, p.ID, ProjectInput{Title: "Harbor Coffee Co", Slug: "harbor-coffee"})
	require.NoError(t, err)
	assert.False(t, p.CaseStudy)

	list, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteProject(ctx, p.ID))
	assert.ErrorIs(t, svc.DeleteProject(ctx, p.ID), model.ErrNotFound)
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	html, err := RenderMarkdown(`<img src=x onerror="alert(1)">**bold**`)
	require.NoError(t, err)
	assert.NotContains(t, string(html), "onerror")
	assert.Contains(t, string(html), "<strong>bold</strong>")
}
