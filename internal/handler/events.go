// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/agencyworks/siteworks/internal/model"
	"github.com/agencyworks/siteworks/internal/service"
)

// EventsPerPage is the default number of events returned.
const EventsPerPage = 100

// validEventCategories lists the categories accepted as a filter.
var validEventCategories = map[string]bool{
	model.EventCategoryAuth:    true,
	model.EventCategorySitemap: true,
	model.EventCategoryPing:    true,
	model.EventCategoryContent: true,
	model.EventCategoryContact: true,
	model.EventCategorySystem:  true,
}

// EventsHandler serves the admin event log and contact inbox.
type EventsHandler struct {
	events   *service.EventService
	contacts *service.ContactService
	logger   *slog.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(events *service.EventService, contacts *service.ContactService, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{events: events, contacts: contacts, logger: logger}
}

// List handles GET /admin/api/events?category=&limit=.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category != "" && !validEventCategories[category] {
		writeJSONError(w, http.StatusBadRequest, "Unknown event category")
		return
	}

	events, err := h.events.ListEvents(r.Context(), category, queryInt(r, "limit", EventsPerPage))
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to load events")
		return
	}
	writeJSONSuccess(w, map[string]any{"events": events})
}

// Contacts handles GET /admin/api/contacts.
func (h *EventsHandler) Contacts(w http.ResponseWriter, r *http.Request) {
	subs, err := h.contacts.Recent(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		h.logger.Error("failed to list contact submissions", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to load contact submissions")
		return
	}
	writeJSONSuccess(w, map[string]any{"submissions": subs})
}

// queryInt parses a positive integer query parameter.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// logEvent records an event, logging rather than failing when the event log
// is unavailable. events may be nil.
func logEvent(events *service.EventService, logger *slog.Logger, r *http.Request, level, category, message, actor string, metadata map[string]any) {
	if events == nil {
		return
	}
	var err error
	if category == model.EventCategoryAuth {
		err = events.LogAuthEvent(r, level, message, actor, metadata)
	} else {
		err = events.LogEvent(r.Context(), level, category, message, actor, service.ClientIP(r), metadata)
	}
	if err != nil {
		logger.Warn("failed to record event", "category", category, "error", err)
	}
}
