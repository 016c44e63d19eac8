// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agencyworks/siteworks/internal/model"
)

const postColumns = `id, slug, title, excerpt, content, published, created_at, updated_at`

func scanPost(row scanner) (model.BlogPost, error) {
	var p model.BlogPost
	var updated sql.NullTime
	if err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Excerpt, &p.Content, &p.Published, &p.CreatedAt, &updated); err != nil {
		return model.BlogPost{}, err
	}
	if updated.Valid {
		t := updated.Time
		p.UpdatedAt = &t
	}
	return p, nil
}

func collectPosts(rows *sql.Rows) ([]model.BlogPost, error) {
	defer func() { _ = rows.Close() }()
	posts := make([]model.BlogPost, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListPublishedPosts returns published posts, newest first.
func (q *Queries) ListPublishedPosts(ctx context.Context) ([]model.BlogPost, error) {
	rows, err := q.query(ctx, `SELECT `+postColumns+` FROM blog_posts
		WHERE published = ? ORDER BY created_at DESC, id DESC`, true)
	if err != nil {
		return nil, fmt.Errorf("listing published posts: %w", err)
	}
	return collectPosts(rows)
}

// ListPosts returns all posts, newest first.
func (q *Queries) ListPosts(ctx context.Context, params model.ListParams) ([]model.BlogPost, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = -1
		if q.dialect == DialectPostgres {
			limit = 1 << 30
		}
	}
	rows, err := q.query(ctx, `SELECT `+postColumns+` FROM blog_posts
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return collectPosts(rows)
}

// GetPost returns the post with the given id.
func (q *Queries) GetPost(ctx context.Context, id string) (model.BlogPost, error) {
	p, err := scanPost(q.queryRow(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE id = ?`, id))
	return p, notFound(err)
}

// GetPostBySlug returns the post with the given slug.
func (q *Queries) GetPostBySlug(ctx context.Context, slug string) (model.BlogPost, error) {
	p, err := scanPost(q.queryRow(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE slug = ?`, slug))
	return p, notFound(err)
}

// CreatePost inserts p. ID and CreatedAt must be set by the caller.
func (q *Queries) CreatePost(ctx context.Context, p model.BlogPost) (model.BlogPost, error) {
	_, err := q.exec(ctx, `INSERT INTO blog_posts (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.Title, p.Excerpt, p.Content, p.Published, p.CreatedAt.UTC(), nullTime(p.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return model.BlogPost{}, model.ErrSlugTaken
		}
		return model.BlogPost{}, fmt.Errorf("creating post: %w", err)
	}
	return q.GetPost(ctx, p.ID)
}

// UpdatePost overwrites the editable fields of p.
func (q *Queries) UpdatePost(ctx context.Context, p model.BlogPost) (model.BlogPost, error) {
	res, err := q.exec(ctx, `UPDATE blog_posts
		SET slug = ?, title = ?, excerpt = ?, content = ?, published = ?, updated_at = ?
		WHERE id = ?`,
		p.Slug, p.Title, p.Excerpt, p.Content, p.Published, nullTime(p.UpdatedAt), p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.BlogPost{}, model.ErrSlugTaken
		}
		return model.BlogPost{}, fmt.Errorf("updating post: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return model.BlogPost{}, err
	}
	return q.GetPost(ctx, p.ID)
}

// DeletePost removes the post with the given id.
func (q *Queries) DeletePost(ctx context.Context, id string) error {
	res, err := q.exec(ctx, `DELETE FROM blog_posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	return requireAffected(res)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
