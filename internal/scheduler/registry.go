// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"
)

// Errors returned by the registry.
var (
	ErrJobNotFound      = errors.New("job not found")
	ErrTriggerThrottled = errors.New("job was triggered too recently")
)

// triggerInterval is the minimum spacing between manual runs of one job.
const triggerInterval = 30 * time.Second

// cronParser accepts standard five-field expressions and descriptors such as @daily.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// registeredJob holds metadata about a registered cron job.
type registeredJob struct {
	name            string
	description     string
	defaultSchedule string
	schedule        string // effective schedule
	entryID         cron.EntryID
	jobFunc         func()
	limiter         *rate.Limiter
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DefaultSchedule string    `json:"default_schedule"`
	Schedule        string    `json:"schedule"`
	IsOverridden    bool      `json:"is_overridden"`
	LastRun         time.Time `json:"last_run"`
	NextRun         time.Time `json:"next_run"`
}

// Registry tracks the jobs of one cron instance.
type Registry struct {
	cron   *cron.Cron
	logger *slog.Logger
	mu     sync.RWMutex
	jobs   map[string]*registeredJob
}

// NewRegistry creates a registry over c.
func NewRegistry(c *cron.Cron, logger *slog.Logger) *Registry {
	return &Registry{
		cron:   c,
		logger: logger,
		jobs:   make(map[string]*registeredJob),
	}
}

// Register schedules fn under name.
func (r *Registry) Register(name, description, schedule string, fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}
	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	id, err := r.cron.AddFunc(schedule, fn)
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}

	r.jobs[name] = &registeredJob{
		name:            name,
		description:     description,
		defaultSchedule: schedule,
		schedule:        schedule,
		entryID:         id,
		jobFunc:         fn,
		limiter:         rate.NewLimiter(rate.Every(triggerInterval), 1),
	}
	r.logger.Debug("registered scheduled job", "name", name, "schedule", schedule)
	return nil
}

// List returns all registered jobs sorted by name.
func (r *Registry) List() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]JobInfo, 0, len(r.jobs))
	for _, job := range r.jobs {
		entry := r.cron.Entry(job.entryID)
		result = append(result, JobInfo{
			Name:            job.name,
			Description:     job.description,
			DefaultSchedule: job.defaultSchedule,
			Schedule:        job.schedule,
			IsOverridden:    job.schedule != job.defaultSchedule,
			LastRun:         entry.Prev,
			NextRun:         entry.Next,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// TriggerNow runs a job immediately in the caller's goroutine. Manual runs
// of the same job are spaced by triggerInterval.
func (r *Registry) TriggerNow(name string) error {
	r.mu.RLock()
	job, ok := r.jobs[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !job.limiter.Allow() {
		return fmt.Errorf("%w: %s", ErrTriggerThrottled, name)
	}

	r.logger.Info("manually triggering job", "name", name)
	job.jobFunc()
	return nil
}

// UpdateSchedule changes the schedule for a job. The change lasts until
// the process exits.
func (r *Registry) UpdateSchedule(name, newSchedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if _, err := cronParser.Parse(newSchedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", newSchedule, err)
	}
	if err := r.reschedule(job, newSchedule); err != nil {
		return err
	}

	r.logger.Info("updated job schedule", "name", name, "schedule", newSchedule)
	return nil
}

// ResetSchedule restores the default schedule.
func (r *Registry) ResetSchedule(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if job.schedule == job.defaultSchedule {
		return nil
	}
	if err := r.reschedule(job, job.defaultSchedule); err != nil {
		return err
	}

	r.logger.Info("reset job schedule to default", "name", name, "schedule", job.defaultSchedule)
	return nil
}

// reschedule swaps the cron entry of job. Callers hold r.mu.
func (r *Registry) reschedule(job *registeredJob, schedule string) error {
	r.cron.Remove(job.entryID)
	id, err := r.cron.AddFunc(schedule, job.jobFunc)
	if err != nil {
		fallbackID, fallbackErr := r.cron.AddFunc(job.schedule, job.jobFunc)
		if fallbackErr != nil {
			return fmt.Errorf("critical: failed to restore schedule after update failure: %w (original: %w)", fallbackErr, err)
		}
		job.entryID = fallbackID
		return fmt.Errorf("failed to apply new schedule: %w", err)
	}
	job.entryID = id
	job.schedule = schedule
	return nil
}
