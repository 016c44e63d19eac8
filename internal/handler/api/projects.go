// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agencyworks/siteworks/internal/model"
	"github.com/agencyworks/siteworks/internal/service"
)

// ListProjects handles GET /api/v1/projects
// Query: case_study=true limits the listing to case studies.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.content.ListProjects(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Project", "list projects")
		return
	}

	if r.URL.Query().Get("case_study") == "true" {
		filtered := make([]model.Project, 0, len(projects))
		for _, p := range projects {
			if p.CaseStudy {
				filtered = append(filtered, p)
			}
		}
		projects = filtered
	}

	page, meta := paginate(projects, parsePage(r), parsePerPage(r, PostsPerPage, 100))
	WriteSuccess(w, page, meta)
}

// GetProjectBySlug handles GET /api/v1/projects/{slug}
func (h *Handler) GetProjectBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.content.GetProjectBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeServiceError(w, err, "Project", "retrieve project")
		return
	}
	WriteSuccess(w, p, nil)
}

// CreateProject handles POST /admin/api/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var in service.ProjectInput
	if !decodeBody(w, r, &in) {
		return
	}

	p, err := h.content.CreateProject(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err, "Project", "create project")
		return
	}
	h.logContentEvent(r, "Project created", map[string]any{"project_id": p.ID, "slug": p.Slug})
	WriteCreated(w, p)
}

// UpdateProject handles PUT /admin/api/projects/{id}
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var in service.ProjectInput
	if !decodeBody(w, r, &in) {
		return
	}

	p, err := h.content.UpdateProject(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, err, "Project", "update project")
		return
	}
	h.logContentEvent(r, "Project updated", map[string]any{"project_id": p.ID, "slug": p.Slug})
	WriteSuccess(w, p, nil)
}

// DeleteProject handles DELETE /admin/api/projects/{id}
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.content.DeleteProject(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Project", "delete project")
		return
	}
	h.logContentEvent(r, "Project deleted", map[string]any{"project_id": id})
	w.WriteHeader(http.StatusNoContent)
}
