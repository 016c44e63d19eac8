// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agencyworks/siteworks/internal/middleware"
	"github.com/agencyworks/siteworks/internal/model"
	"github.com/agencyworks/siteworks/internal/notifier"
	"github.com/agencyworks/siteworks/internal/objectstore"
	"github.com/agencyworks/siteworks/internal/seo"
	"github.com/agencyworks/siteworks/internal/service"
	"github.com/agencyworks/siteworks/internal/sitemap"
)

// SitemapHandler serves the admin sitemap triggers and the stored documents.
type SitemapHandler struct {
	generator *sitemap.Generator
	notifier  *notifier.Notifier
	robots    *seo.RobotsBuilder
	events    *service.EventService
	logger    *slog.Logger
}

// NewSitemapHandler creates a new SitemapHandler. events may be nil.
func NewSitemapHandler(generator *sitemap.Generator, n *notifier.Notifier, robots seo.RobotsConfig, events *service.EventService, logger *slog.Logger) *SitemapHandler {
	return &SitemapHandler{
		generator: generator,
		notifier:  n,
		robots:    seo.NewRobotsBuilder(robots),
		events:    events,
		logger:    logger,
	}
}

type regenerateRequest struct {
	BaseURL string `json:"baseUrl"`
}

// Regenerate handles POST /admin/api/sitemaps/{kind}.
func (h *SitemapHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	kind, err := sitemap.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "Unknown sitemap")
		return
	}

	var req regenerateRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := adminEmail(r)
	res, err := h.generator.Generate(r.Context(), kind, req.BaseURL)
	if err != nil {
		h.logger.Error("sitemap regeneration failed", "kind", kind, "error", err)
		logEvent(h.events, h.logger, r, model.EventLevelError, model.EventCategorySitemap,
			"Sitemap regeneration failed", actor, map[string]any{"kind": string(kind), "error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to generate sitemap",
			"details": err.Error(),
		})
		return
	}

	logEvent(h.events, h.logger, r, model.EventLevelInfo, model.EventCategorySitemap,
		"Sitemap regenerated", actor, map[string]any{"kind": string(kind), "key": res.Key, "entries": res.Entries})
	writeJSONSuccess(w, map[string]any{"result": res})
}

// Ping handles POST /admin/api/sitemaps/ping. Without a sitemapUrl the
// public URL of the sitemap index is submitted.
func (h *SitemapHandler) Ping(w http.ResponseWriter, r *http.Request) {
	var req pingRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SitemapURL == "" {
		req.SitemapURL = h.generator.PublicURL(sitemap.KindIndex)
	}

	res, err := h.notifier.Ping(r.Context(), req.SitemapURL, req.Engines)
	if err != nil {
		h.logger.Error("search engine ping failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to ping search engines")
		return
	}

	level := model.EventLevelInfo
	if !res.Success {
		level = model.EventLevelWarning
	}
	logEvent(h.events, h.logger, r, level, model.EventCategoryPing, res.Message, adminEmail(r),
		map[string]any{"sitemap_url": req.SitemapURL})
	writeJSON(w, http.StatusOK, res)
}

// History handles GET /admin/api/sitemaps, listing historical copies with
// their public URLs.
func (h *SitemapHandler) History(w http.ResponseWriter, r *http.Request) {
	objects, err := h.generator.History(r.Context())
	if err != nil {
		h.logger.Error("failed to list sitemap history", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to list sitemaps")
		return
	}

	type historyEntry struct {
		objectstore.Object
		URL string `json:"url"`
	}
	entries := make([]historyEntry, 0, len(objects))
	for _, o := range objects {
		entries = append(entries, historyEntry{Object: o, URL: h.generator.ObjectURL(o.Key)})
	}

	writeJSONSuccess(w, map[string]any{
		"canonical": map[string]string{
			string(sitemap.KindSite):  h.generator.PublicURL(sitemap.KindSite),
			string(sitemap.KindBlog):  h.generator.PublicURL(sitemap.KindBlog),
			string(sitemap.KindIndex): h.generator.PublicURL(sitemap.KindIndex),
		},
		"history": entries,
	})
}

// Document returns a handler serving the stored canonical document for kind.
func (h *SitemapHandler) Document(kind sitemap.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.generator.Canonical(r.Context(), kind)
		if errors.Is(err, objectstore.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			h.logger.Error("failed to load sitemap", "kind", kind, "error", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrorBody{Error: "Failed to load sitemap"})
			return
		}
		writeXML(w, doc)
	}
}

// Robots handles GET /robots.txt.
func (h *SitemapHandler) Robots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(h.robots.Build()))
}

// adminEmail returns the signed-in admin's e-mail, if any.
func adminEmail(r *http.Request) string {
	if id, ok := middleware.GetAdmin(r); ok {
		return id.Email
	}
	return ""
}
