// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agencyworks/siteworks/internal/model"
	"github.com/agencyworks/siteworks/internal/scheduler"
	"github.com/agencyworks/siteworks/internal/service"
)

// JobsHandler exposes the scheduled jobs to admins.
type JobsHandler struct {
	registry *scheduler.Registry
	events   *service.EventService
	logger   *slog.Logger
}

// NewJobsHandler creates a new JobsHandler. events may be nil.
func NewJobsHandler(registry *scheduler.Registry, events *service.EventService, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{registry: registry, events: events, logger: logger}
}

// List handles GET /admin/api/jobs.
func (h *JobsHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSONSuccess(w, map[string]any{"jobs": h.registry.List()})
}

// Run handles POST /admin/api/jobs/{name}/run.
func (h *JobsHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := h.registry.TriggerNow(name)
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		writeJSONError(w, http.StatusNotFound, "Unknown job")
		return
	case errors.Is(err, scheduler.ErrTriggerThrottled):
		writeJSONError(w, http.StatusTooManyRequests, "Job was run moments ago, try again shortly")
		return
	case err != nil:
		h.logger.Error("manual job run failed", "job", name, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to run job")
		return
	}

	logEvent(h.events, h.logger, r, model.EventLevelInfo, model.EventCategorySystem,
		"Job triggered manually", adminEmail(r), map[string]any{"job": name})
	writeJSONSuccess(w, map[string]any{"job": name})
}

type scheduleRequest struct {
	Schedule string `json:"schedule"`
}

// UpdateSchedule handles PUT /admin/api/jobs/{name}. An empty schedule
// restores the default.
func (h *JobsHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var err error
	schedule := strings.TrimSpace(req.Schedule)
	if schedule == "" {
		err = h.registry.ResetSchedule(name)
	} else {
		err = h.registry.UpdateSchedule(name, schedule)
	}
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		writeJSONError(w, http.StatusNotFound, "Unknown job")
		return
	case err != nil:
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	logEvent(h.events, h.logger, r, model.EventLevelInfo, model.EventCategorySystem,
		"Job schedule changed", adminEmail(r), map[string]any{"job": name, "schedule": schedule})
	writeJSONSuccess(w, map[string]any{"jobs": h.registry.List()})
}
