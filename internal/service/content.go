// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the business logic between HTTP handlers and
// storage: content editing, contact intake, mail delivery and the event log.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/agencyworks/siteworks/internal/model"
	"github.com/agencyworks/siteworks/internal/util"
)

// htmlSanitizer strips scripts, event handlers and similar from rendered
// post bodies.
var htmlSanitizer = bluemonday.UGCPolicy()

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Field length limits.
const (
	MaxTitleLength   = 200
	MaxExcerptLength = 500
)

// ContentStore persists blog posts and portfolio projects.
type ContentStore interface {
	ListPublishedPosts(ctx context.Context) ([]model.BlogPost, error)
	ListPosts(ctx context.Context, params model.ListParams) ([]model.BlogPost, error)
	GetPost(ctx context.Context, id string) (model.BlogPost, error)
	GetPostBySlug(ctx context.Context, slug string) (model.BlogPost, error)
	CreatePost(ctx context.Context, p model.BlogPost) (model.BlogPost, error)
	UpdatePost(ctx context.Context, p model.BlogPost) (model.BlogPost, error)
	DeletePost(ctx context.Context, id string) error

	ListProjects(ctx context.Context) ([]model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	GetProjectBySlug(ctx context.Context, slug string) (model.Project, error)
	CreateProject(ctx context.Context, p model.Project) (model.Project, error)
	UpdateProject(ctx context.Context, p model.Project) (model.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// ValidationError lists field problems in user input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PostInput is the editable part of a blog post.
type PostInput struct {
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Excerpt   string `json:"excerpt"`
	Content   string `json:"content"`
	Published bool   `json:"published"`
}

// ProjectInput is the editable part of a portfolio project.
type ProjectInput struct {
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Client    string `json:"client"`
	Summary   string `json:"summary"`
	CaseStudy bool   `json:"case_study"`
}

// RenderedPost is a published post with its body rendered to safe HTML.
type RenderedPost struct {
	model.BlogPost
	HTML template.HTML `json:"html"`
}

// ContentService validates and stores blog posts and projects.
type ContentService struct {
	store  ContentStore
	logger *slog.Logger
	now    func() time.Time
}

// NewContentService creates a ContentService.
func NewContentService(store ContentStore, logger *slog.Logger) *ContentService {
	return &ContentService{store: store, logger: logger, now: time.Now}
}

// ListPosts returns every post, newest first.
func (s *ContentService) ListPosts(ctx context.Context, params model.ListParams) ([]model.BlogPost, error) {
	return s.store.ListPosts(ctx, params)
}

// ListPublishedPosts returns published posts, newest first.
func (s *ContentService) ListPublishedPosts(ctx context.Context) ([]model.BlogPost, error) {
	return s.store.ListPublishedPosts(ctx)
}

// GetPost returns a post by id.
func (s *ContentService) GetPost(ctx context.Context, id string) (model.BlogPost, error) {
	return s.store.GetPost(ctx, id)
}

// GetPublishedPost returns a published post by slug with rendered HTML.
// Drafts are reported as model.ErrNotFound.
func (s *ContentService) GetPublishedPost(ctx context.Context, slug string) (RenderedPost, error) {
	post, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return RenderedPost{}, err
	}
	if !post.Published {
		return RenderedPost{}, model.ErrNotFound
	}
	html, err := RenderMarkdown(post.Content)
	if err != nil {
		return RenderedPost{}, err
	}
	return RenderedPost{BlogPost: post, HTML: html}, nil
}

// CreatePost validates in and stores a new post.
func (s *ContentService) CreatePost(ctx context.Context, in PostInput) (model.BlogPost, error) {
	in, err := normalizePost(in)
	if err != nil {
		return model.BlogPost{}, err
	}
	post, err := s.store.CreatePost(ctx, model.BlogPost{
		ID:        uuid.NewString(),
		Slug:      in.Slug,
		Title:     in.Title,
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		Published: in.Published,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return model.BlogPost{}, slugConflict(err)
	}
	s.logger.Info("post created", "post_id", post.ID, "slug", post.Slug, "published", post.Published)
	return post, nil
}

// UpdatePost validates in and overwrites the post with the given id.
func (s *ContentService) UpdatePost(ctx context.Context, id string, in PostInput) (model.BlogPost, error) {
	in, err := normalizePost(in)
	if err != nil {
		return model.BlogPost{}, err
	}
	now := s.now().UTC()
	post, err := s.store.UpdatePost(ctx, model.BlogPost{
		ID:        id,
		Slug:      in.Slug,
		Title:     in.Title,
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		Published: in.Published,
		UpdatedAt: &now,
	})
	if err != nil {
		return model.BlogPost{}, slugConflict(err)
	}
	s.logger.Info("post updated", "post_id", post.ID, "slug", post.Slug)
	return post, nil
}

// DeletePost removes a post.
func (s *ContentService) DeletePost(ctx context.Context, id string) error {
	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}
	s.logger.Info("post deleted", "post_id", id)
	return nil
}

// ListProjects returns every project, newest first.
func (s *ContentService) ListProjects(ctx context.Context) ([]model.Project, error) {
	return s.store.ListProjects(ctx)
}

// GetProject returns a project by id.
func (s *ContentService) GetProject(ctx context.Context, id string) (model.Project, error) {
	return s.store.GetProject(ctx, id)
}

// GetProjectBySlug returns a project by slug.
func (s *ContentService) GetProjectBySlug(ctx context.Context, slug string) (model.Project, error) {
	return s.store.GetProjectBySlug(ctx, slug)
}

// CreateProject validates in and stores a new project.
func (s *ContentService) CreateProject(ctx context.Context, in ProjectInput) (model.Project, error) {
	in, err := normalizeProject(in)
	if err != nil {
		return model.Project{}, err
	}
	p, err := s.store.CreateProject(ctx, model.Project{
		ID:        uuid.NewString(),
		Slug:      in.Slug,
		Title:     in.Title,
		Client:    in.Client,
		Summary:   in.Summary,
		CaseStudy: in.CaseStudy,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return model.Project{}, slugConflict(err)
	}
	s.logger.Info("project created", "project_id", p.ID, "slug", p.Slug)
	return p, nil
}

// UpdateProject validates in and overwrites the project with the given id.
func (s *ContentService) UpdateProject(ctx context.Context, id string, in ProjectInput) (model.Project, error) {
	in, err := normalizeProject(in)
	if err != nil {
		return model.Project{}, err
	}
	now := s.now().UTC()
	p, err := s.store.UpdateProject(ctx, model.Project{
		ID:        id,
		Slug:      in.Slug,
		Title:     in.Title,
		Client:    in.Client,
		Summary:   in.Summary,
		CaseStudy: in.CaseStudy,
		UpdatedAt: &now,
	})
	if err != nil {
		return model.Project{}, slugConflict(err)
	}
	s.logger.Info("project updated", "project_id", p.ID, "slug", p.Slug)
	return p, nil
}

// DeleteProject removes a project.
func (s *ContentService) DeleteProject(ctx context.Context, id string) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", "project_id", id)
	return nil
}

// RenderMarkdown converts markdown to sanitized HTML.
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(htmlSanitizer.SanitizeBytes(buf.Bytes())), nil
}

func normalizePost(in PostInput) (PostInput, error) {
	fields := map[string]string{}
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Slug = resolveSlug(in.Slug, in.Title, fields)

	switch {
	case in.Title == "":
		fields["title"] = "Title is required"
	case len(in.Title) > MaxTitleLength:
		fields["title"] = fmt.Sprintf("Title must be at most %d characters", MaxTitleLength)
	}
	if len(in.Excerpt) > MaxExcerptLength {
		fields["excerpt"] = fmt.Sprintf("Excerpt must be at most %d characters", MaxExcerptLength)
	}
	if len(fields) > 0 {
		return in, &ValidationError{Fields: fields}
	}
	return in, nil
}

func normalizeProject(in ProjectInput) (ProjectInput, error) {
	fields := map[string]string{}
	in.Title = strings.TrimSpace(in.Title)
	in.Client = strings.TrimSpace(in.Client)
	in.Summary = strings.TrimSpace(in.Summary)
	in.Slug = resolveSlug(in.Slug, in.Title, fields)

	switch {
	case in.Title == "":
		fields["title"] = "Title is required"
	case len(in.Title) > MaxTitleLength:
		fields["title"] = fmt.Sprintf("Title must be at most %d characters", MaxTitleLength)
	}
	if len(fields) > 0 {
		return in, &ValidationError{Fields: fields}
	}
	return in, nil
}

// resolveSlug derives a slug from the title when none is given.
func resolveSlug(slug, title string, fields map[string]string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = util.Slugify(title)
		if slug == "" && title != "" {
			fields["slug"] = "Slug could not be derived from the title"
		}
		return slug
	}
	if !util.IsValidSlug(slug) {
		fields["slug"] = "Invalid slug format (use lowercase letters, numbers, and hyphens)"
	}
	return slug
}

func slugConflict(err error) error {
	if errors.Is(err, model.ErrSlugTaken) {
		return &ValidationError{Fields: map[string]string{"slug": "Slug already exists"}}
	}
	return err
}
