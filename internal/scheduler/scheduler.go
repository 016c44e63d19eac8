// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic background jobs: sitemap
// regeneration, event log retention and login attempt pruning.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/agencyworks/siteworks/internal/model"
	"github.com/agencyworks/siteworks/internal/notifier"
	"github.com/agencyworks/siteworks/internal/sitemap"
)

// Job names.
const (
	JobSitemaps       = "sitemaps"
	JobEventCleanup   = "event-cleanup"
	JobAttemptCleanup = "attempt-cleanup"
)

const (
	// DefaultEventRetention is how long events are kept.
	DefaultEventRetention  = 90 * 24 * time.Hour
	eventCleanupSchedule   = "@daily"
	attemptCleanupSchedule = "@hourly"
	jobTimeout             = 2 * time.Minute
)

// Regenerator rebuilds the stored sitemaps.
type Regenerator interface {
	RegenerateAll(ctx context.Context, baseURL string) error
	PublicURL(kind sitemap.Kind) string
}

// Pinger submits a sitemap URL to search engines.
type Pinger interface {
	Ping(ctx context.Context, sitemapURL string, engines []string) (*notifier.Result, error)
}

// EventLog records job outcomes and prunes old events.
type EventLog interface {
	LogEvent(ctx context.Context, level, category, message, actor, ipAddress string, metadata map[string]any) error
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) error
}

// AttemptPruner drops login attempts that no longer count towards a lockout.
type AttemptPruner interface {
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// Config configures a Scheduler.
type Config struct {
	// SitemapSchedule is a cron expression. Empty disables regeneration.
	SitemapSchedule string
	// PingAfterRegenerate submits the index to search engines after each run.
	PingAfterRegenerate bool
	// EventRetention defaults to DefaultEventRetention.
	EventRetention time.Duration
	// Attempts enables hourly login attempt pruning when set.
	Attempts AttemptPruner
}

// Scheduler handles scheduled sitemap regeneration and event cleanup.
type Scheduler struct {
	cron      *cron.Cron
	registry  *Registry
	generator Regenerator
	pinger    Pinger
	events    EventLog
	cfg       Config
	logger    *slog.Logger
}

// New creates a new scheduler instance. pinger and events may be nil.
func New(generator Regenerator, pinger Pinger, events EventLog, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.EventRetention <= 0 {
		cfg.EventRetention = DefaultEventRetention
	}
	c := cron.New()
	return &Scheduler{
		cron:      c,
		registry:  NewRegistry(c, logger),
		generator: generator,
		pinger:    pinger,
		events:    events,
		cfg:       cfg,
		logger:    logger,
	}
}

// Registry exposes the job registry for the admin API.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.cfg.SitemapSchedule != "" {
		if err := s.registry.Register(JobSitemaps, "Regenerate site, blog and index sitemaps",
			s.cfg.SitemapSchedule, s.regenerateSitemaps); err != nil {
			return err
		}
	}
	if s.events != nil {
		if err := s.registry.Register(JobEventCleanup, "Delete events past the retention window",
			eventCleanupSchedule, s.cleanupEvents); err != nil {
			return err
		}
	}

	if s.cfg.Attempts != nil {
		if err := s.registry.Register(JobAttemptCleanup, "Delete login attempts past the lockout window",
			attemptCleanupSchedule, s.pruneAttempts); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// regenerateSitemaps rebuilds every sitemap and optionally pings search engines.
func (s *Scheduler) regenerateSitemaps() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := s.generator.RegenerateAll(ctx, ""); err != nil {
		s.logger.Error("scheduled sitemap regeneration failed", "error", err)
		s.logEvent(ctx, model.EventLevelError, model.EventCategorySitemap,
			"Scheduled sitemap regeneration failed", map[string]any{"error": err.Error()})
		return
	}
	s.logger.Info("scheduled sitemap regeneration finished", "duration", time.Since(start))
	s.logEvent(ctx, model.EventLevelInfo, model.EventCategorySitemap,
		"Sitemaps regenerated by scheduler", nil)

	if !s.cfg.PingAfterRegenerate || s.pinger == nil {
		return
	}
	indexURL := s.generator.PublicURL(sitemap.KindIndex)
	res, err := s.pinger.Ping(ctx, indexURL, nil)
	if err != nil {
		s.logger.Error("scheduled search engine ping failed", "error", err)
		return
	}
	level := model.EventLevelInfo
	if !res.Success {
		level = model.EventLevelWarning
	}
	s.logEvent(ctx, level, model.EventCategoryPing, res.Message, map[string]any{"sitemap_url": indexURL})
}

// cleanupEvents deletes events older than the retention window.
func (s *Scheduler) cleanupEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.events.DeleteOldEvents(ctx, s.cfg.EventRetention); err != nil {
		s.logger.Error("event cleanup failed", "error", err)
		return
	}
	s.logger.Info("old events deleted", "retention", s.cfg.EventRetention)
}

// pruneAttempts deletes login attempts outside the lockout window.
func (s *Scheduler) pruneAttempts() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	removed, err := s.cfg.Attempts.Prune(ctx, time.Now())
	if err != nil {
		s.logger.Error("login attempt cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("expired login attempts deleted", "count", removed)
	}
}

func (s *Scheduler) logEvent(ctx context.Context, level, category, message string, metadata map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.LogEvent(ctx, level, category, message, "", "", metadata); err != nil {
		s.logger.Warn("failed to log scheduler event", "error", err)
	}
}
