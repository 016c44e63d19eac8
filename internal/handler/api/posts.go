// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agencyworks/siteworks/internal/model"
	"github.com/agencyworks/siteworks/internal/service"
)

// PostsPerPage is the default page size for post listings.
const PostsPerPage = 20

// ListPosts handles GET /api/v1/posts
// Public: returns only published posts, newest first.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.content.ListPublishedPosts(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Post", "list posts")
		return
	}

	page, meta := paginate(posts, parsePage(r), parsePerPage(r, PostsPerPage, 100))
	WriteSuccess(w, page, meta)
}

// GetPostBySlug handles GET /api/v1/posts/{slug}
// Public: drafts are reported as not found.
func (h *Handler) GetPostBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		WriteBadRequest(w, "Slug is required", nil)
		return
	}

	post, err := h.content.GetPublishedPost(r.Context(), slug)
	if err != nil {
		h.writeServiceError(w, err, "Post", "retrieve post")
		return
	}
	WriteSuccess(w, post, nil)
}

// AdminListPosts handles GET /admin/api/posts, drafts included.
func (h *Handler) AdminListPosts(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)
	perPage := parsePerPage(r, PostsPerPage, 100)

	posts, err := h.content.ListPosts(r.Context(), model.ListParams{
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		h.writeServiceError(w, err, "Post", "list posts")
		return
	}
	WriteSuccess(w, posts, &Meta{Page: page, PerPage: perPage})
}

// AdminGetPost handles GET /admin/api/posts/{id}.
func (h *Handler) AdminGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.content.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "Post", "retrieve post")
		return
	}
	WriteSuccess(w, post, nil)
}

// CreatePost handles POST /admin/api/posts.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in service.PostInput
	if !decodeBody(w, r, &in) {
		return
	}

	post, err := h.content.CreatePost(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err, "Post", "create post")
		return
	}
	h.logContentEvent(r, "Post created", map[string]any{"post_id": post.ID, "slug": post.Slug})
	WriteCreated(w, post)
}

// UpdatePost handles PUT /admin/api/posts/{id}.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var in service.PostInput
	if !decodeBody(w, r, &in) {
		return
	}

	post, err := h.content.UpdatePost(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, err, "Post", "update post")
		return
	}
	h.logContentEvent(r, "Post updated", map[string]any{"post_id": post.ID, "slug": post.Slug})
	WriteSuccess(w, post, nil)
}

// DeletePost handles DELETE /admin/api/posts/{id}.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.content.DeletePost(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Post", "delete post")
		return
	}
	h.logContentEvent(r, "Post deleted", map[string]any{"post_id": id})
	w.WriteHeader(http.StatusNoContent)
}
