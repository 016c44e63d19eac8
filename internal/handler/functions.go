// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/agencyworks/siteworks/internal/middleware"
	"github.com/agencyworks/siteworks/internal/model"
	"github.com/agencyworks/siteworks/internal/notifier"
	"github.com/agencyworks/siteworks/internal/service"
	"github.com/agencyworks/siteworks/internal/sitemap"
)

// FunctionsHandler serves the /functions/v1 endpoints called by the public
// site and by external automation.
type FunctionsHandler struct {
	generator *sitemap.Generator
	notifier  *notifier.Notifier
	contacts  *service.ContactService
	events    *service.EventService
	logger    *slog.Logger
}

// NewFunctionsHandler creates a new FunctionsHandler. events may be nil.
func NewFunctionsHandler(generator *sitemap.Generator, n *notifier.Notifier, contacts *service.ContactService, events *service.EventService, logger *slog.Logger) *FunctionsHandler {
	return &FunctionsHandler{
		generator: generator,
		notifier:  n,
		contacts:  contacts,
		events:    events,
		logger:    logger,
	}
}

// GenerateSitemap handles GET /functions/v1/generate-sitemap.
func (h *FunctionsHandler) GenerateSitemap(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, sitemap.KindSite)
}

// GenerateBlogSitemap handles GET /functions/v1/generate-blog-sitemap.
func (h *FunctionsHandler) GenerateBlogSitemap(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, sitemap.KindBlog)
}

// GenerateSitemapIndex handles GET /functions/v1/generate-sitemap-index.
func (h *FunctionsHandler) GenerateSitemapIndex(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, sitemap.KindIndex)
}

// generate builds and persists one document and returns it as XML. The
// compress parameter is applied by middleware.CompressOnRequest.
func (h *FunctionsHandler) generate(w http.ResponseWriter, r *http.Request, kind sitemap.Kind) {
	res, err := h.generator.Generate(r.Context(), kind, r.URL.Query().Get("baseUrl"))
	if err != nil {
		h.logger.Error("sitemap generation failed", "kind", kind, "error", err)
		logEvent(h.events, h.logger, r, model.EventLevelError, model.EventCategorySitemap,
			"Sitemap generation failed", "", map[string]any{"kind": string(kind), "error": err.Error()})
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrorBody{
			Error:   "Failed to generate sitemap",
			Details: err.Error(),
		})
		return
	}

	logEvent(h.events, h.logger, r, model.EventLevelInfo, model.EventCategorySitemap,
		"Sitemap generated", "", map[string]any{"kind": string(kind), "key": res.Key, "entries": res.Entries})
	writeXML(w, res.Document)
}

// pingRequest is the body of POST /functions/v1/ping-search-engines.
type pingRequest struct {
	SitemapURL string   `json:"sitemapUrl"`
	Engines    []string `json:"engines"`
}

// PingSearchEngines handles POST /functions/v1/ping-search-engines.
func (h *FunctionsHandler) PingSearchEngines(w http.ResponseWriter, r *http.Request) {
	var req pingRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorBody{Error: "Invalid request body", Details: err.Error()})
		return
	}

	res, err := h.notifier.Ping(r.Context(), req.SitemapURL, req.Engines)
	if errors.Is(err, notifier.ErrMissingSitemapURL) {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorBody{Error: "sitemapUrl is required"})
		return
	}
	if err != nil {
		h.logger.Error("search engine ping failed", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrorBody{
			Error:   "Failed to ping search engines",
			Details: err.Error(),
		})
		return
	}

	level := model.EventLevelInfo
	if !res.Success {
		level = model.EventLevelWarning
	}
	logEvent(h.events, h.logger, r, level, model.EventCategoryPing, res.Message, "",
		map[string]any{"sitemap_url": req.SitemapURL, "engines": len(res.Results)})
	writeJSON(w, http.StatusOK, res)
}

// SendContactEmail handles POST /functions/v1/send-contact-email.
func (h *FunctionsHandler) SendContactEmail(w http.ResponseWriter, r *http.Request) {
	var req service.ContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorBody{Error: "Invalid request body"})
		return
	}

	sub, err := h.contacts.Submit(r.Context(), req)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Missing required fields",
				"fields":  ve.Fields,
			})
			return
		}
		h.logger.Error("contact submission failed", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrorBody{
			Error:   "Failed to send message",
			Details: err.Error(),
		})
		return
	}

	logEvent(h.events, h.logger, r, model.EventLevelInfo, model.EventCategoryContact,
		"Contact form submitted", sub.Email, map[string]any{"submission_id": sub.ID, "lead_magnet": sub.LeadMagnet})
	writeJSONSuccess(w, map[string]any{
		"message": "Thanks for reaching out. We will get back to you shortly.",
	})
}

func writeXML(w http.ResponseWriter, doc []byte) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
