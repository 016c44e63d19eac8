// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package hosted

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/agencyworks/siteworks/internal/model"
)

// Table names in the public schema.
const (
	postsTable    = "blog_posts"
	projectsTable = "projects"
)

// Content reads and writes posts and projects through the REST API.
type Content struct {
	client *Client
}

// NewContent returns a Content backed by c.
func NewContent(c *Client) *Content {
	return &Content{client: c}
}

var newestFirst = &postgrest.OrderOpts{Ascending: false}

func (c *Content) from(table string) *postgrest.QueryBuilder {
	return c.client.sdk.From(table)
}

// ListPublishedPosts returns published posts, newest first.
func (c *Content) ListPublishedPosts(ctx context.Context) ([]model.BlogPost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var posts []model.BlogPost
	_, err := c.from(postsTable).Select("*", "", false).
		Eq("published", "true").
		Order("created_at", newestFirst).
		Order("id", newestFirst).
		ExecuteTo(&posts)
	if err != nil {
		return nil, fmt.Errorf("listing published posts: %w", mapRESTError(err))
	}
	return nonNil(posts), nil
}

// ListPosts returns all posts, newest first.
func (c *Content) ListPosts(ctx context.Context, params model.ListParams) ([]model.BlogPost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := c.from(postsTable).Select("*", "", false).
		Order("created_at", newestFirst).
		Order("id", newestFirst)
	if params.Limit > 0 {
		q = q.Range(params.Offset, params.Offset+params.Limit-1, "")
	}
	var posts []model.BlogPost
	if _, err := q.ExecuteTo(&posts); err != nil {
		return nil, fmt.Errorf("listing posts: %w", mapRESTError(err))
	}
	return nonNil(posts), nil
}

// GetPost returns the post with id.
func (c *Content) GetPost(ctx context.Context, id string) (model.BlogPost, error) {
	return c.getPost(ctx, "id", id)
}

// GetPostBySlug returns the post with slug.
func (c *Content) GetPostBySlug(ctx context.Context, slug string) (model.BlogPost, error) {
	return c.getPost(ctx, "slug", slug)
}

func (c *Content) getPost(ctx context.Context, column, value string) (model.BlogPost, error) {
	if err := ctx.Err(); err != nil {
		return model.BlogPost{}, err
	}
	var posts []model.BlogPost
	_, err := c.from(postsTable).Select("*", "", false).Eq(column, value).Limit(1, "").ExecuteTo(&posts)
	if err != nil {
		return model.BlogPost{}, fmt.Errorf("getting post: %w", mapRESTError(err))
	}
	return first(posts)
}

// CreatePost inserts p and returns the stored row.
func (c *Content) CreatePost(ctx context.Context, p model.BlogPost) (model.BlogPost, error) {
	if err := ctx.Err(); err != nil {
		return model.BlogPost{}, err
	}
	var rows []model.BlogPost
	if _, err := c.from(postsTable).Insert(p, false, "", "representation", "").ExecuteTo(&rows); err != nil {
		return model.BlogPost{}, fmt.Errorf("creating post: %w", mapRESTError(err))
	}
	return first(rows)
}

// UpdatePost replaces the editable fields of the post with p.ID.
func (c *Content) UpdatePost(ctx context.Context, p model.BlogPost) (model.BlogPost, error) {
	if err := ctx.Err(); err != nil {
		return model.BlogPost{}, err
	}
	patch := map[string]interface{}{
		"slug":       p.Slug,
		"title":      p.Title,
		"excerpt":    p.Excerpt,
		"content":    p.Content,
		"published":  p.Published,
		"updated_at": timestamp(p.UpdatedAt),
	}
	var rows []model.BlogPost
	if _, err := c.from(postsTable).Update(patch, "representation", "").Eq("id", p.ID).ExecuteTo(&rows); err != nil {
		return model.BlogPost{}, fmt.Errorf("updating post: %w", mapRESTError(err))
	}
	return first(rows)
}

// DeletePost removes the post with id.
func (c *Content) DeletePost(ctx context.Context, id string) error {
	return c.delete(ctx, postsTable, id)
}

// ListProjects returns all projects, newest first.
func (c *Content) ListProjects(ctx context.Context) ([]model.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var projects []model.Project
	_, err := c.from(projectsTable).Select("*", "", false).
		Order("created_at", newestFirst).
		Order("id", newestFirst).
		ExecuteTo(&projects)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", mapRESTError(err))
	}
	return nonNil(projects), nil
}

// GetProject returns the project with id.
func (c *Content) GetProject(ctx context.Context, id string) (model.Project, error) {
	return c.getProject(ctx, "id", id)
}

// GetProjectBySlug returns the project with slug.
func (c *Content) GetProjectBySlug(ctx context.Context, slug string) (model.Project, error) {
	return c.getProject(ctx, "slug", slug)
}

func (c *Content) getProject(ctx context.Context, column, value string) (model.Project, error) {
	if err := ctx.Err(); err != nil {
		return model.Project{}, err
	}
	var projects []model.Project
	_, err := c.from(projectsTable).Select("*", "", false).Eq(column, value).Limit(1, "").ExecuteTo(&projects)
	if err != nil {
		return model.Project{}, fmt.Errorf("getting project: %w", mapRESTError(err))
	}
	return first(projects)
}

// CreateProject inserts p and returns the stored row.
func (c *Content) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	if err := ctx.Err(); err != nil {
		return model.Project{}, err
	}
	var rows []model.Project
	if _, err := c.from(projectsTable).Insert(p, false, "", "representation", "").ExecuteTo(&rows); err != nil {
		return model.Project{}, fmt.Errorf("creating project: %w", mapRESTError(err))
	}
	return first(rows)
}

// UpdateProject replaces the editable fields of the project with p.ID.
func (c *Content) UpdateProject(ctx context.Context, p model.Project) (model.Project, error) {
	if err := ctx.Err(); err != nil {
		return model.Project{}, err
	}
	patch := map[string]interface{}{
		"slug":       p.Slug,
		"title":      p.Title,
		"client":     p.Client,
		"summary":    p.Summary,
		"case_study": p.CaseStudy,
		"updated_at": timestamp(p.UpdatedAt),
	}
	var rows []model.Project
	if _, err := c.from(projectsTable).Update(patch, "representation", "").Eq("id", p.ID).ExecuteTo(&rows); err != nil {
		return model.Project{}, fmt.Errorf("updating project: %w", mapRESTError(err))
	}
	return first(rows)
}

// DeleteProject removes the project with id.
func (c *Content) DeleteProject(ctx context.Context, id string) error {
	return c.delete(ctx, projectsTable, id)
}

func (c *Content) delete(ctx context.Context, table, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var rows []map[string]interface{}
	if _, err := c.from(table).Delete("representation", "").Eq("id", id).ExecuteTo(&rows); err != nil {
		return fmt.Errorf("deleting from %s: %w", table, mapRESTError(err))
	}
	if len(rows) == 0 {
		return model.ErrNotFound
	}
	return nil
}

// mapRESTError translates PostgREST error codes. The client reports them as
// "(code) message".
func mapRESTError(err error) error {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "(23505)"):
		return model.ErrSlugTaken
	case strings.HasPrefix(msg, "(PGRST116)"):
		return model.ErrNotFound
	}
	return err
}

func first[T any](rows []T) (T, error) {
	if len(rows) == 0 {
		var zero T
		return zero, model.ErrNotFound
	}
	return rows[0], nil
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

func timestamp(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
