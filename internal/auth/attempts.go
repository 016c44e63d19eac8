// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Lockout defaults.
const (
	DefaultMaxAttempts   = 5
	DefaultAttemptWindow = 15 * time.Minute
)

// AttemptStore counts login attempts per key inside a trailing window.
// Reserve must check and record atomically with respect to other callers.
type AttemptStore interface {
	// Reserve records an attempt at now unless limit or more attempts were
	// recorded inside the window ending at now. It reports whether the
	// attempt was recorded.
	Reserve(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, error)
	// Clear forgets every attempt recorded for key.
	Clear(ctx context.Context, key string) error
}

// AttemptPruner is implemented by stores that keep expired attempts until
// they are pruned. Stores whose entries expire on their own skip it.
type AttemptPruner interface {
	// Prune deletes attempts outside the window ending at now and reports
	// how many entries were removed.
	Prune(ctx context.Context, now time.Time, window time.Duration) (int64, error)
}

// Throttle enforces the login lockout rule.
type Throttle struct {
	store  AttemptStore
	limit  int
	window time.Duration
}

// NewThrottle creates a Throttle. Non-positive values select the defaults.
func NewThrottle(store AttemptStore, limit int, window time.Duration) *Throttle {
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultAttemptWindow
	}
	return &Throttle{store: store, limit: limit, window: window}
}

// Allow records an attempt for account and reports whether it may proceed.
// Refused attempts are not recorded, so the lockout lifts once the window
// has passed the last recorded attempt.
func (t *Throttle) Allow(ctx context.Context, account string, now time.Time) (bool, error) {
	return t.store.Reserve(ctx, attemptKey(account), now, t.window, t.limit)
}

// Reset clears the attempts of account after a successful login.
func (t *Throttle) Reset(ctx context.Context, account string) error {
	return t.store.Clear(ctx, attemptKey(account))
}

// Prune removes attempts that can no longer count towards a lockout.
func (t *Throttle) Prune(ctx context.Context, now time.Time) (int64, error) {
	p, ok := t.store.(AttemptPruner)
	if !ok {
		return 0, nil
	}
	return p.Prune(ctx, now, t.window)
}

// Window returns the lockout window.
func (t *Throttle) Window() time.Duration {
	return t.window
}

func attemptKey(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}

// MemoryAttemptStore keeps attempts in process memory. It suits tests and
// single-instance deployments only.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewMemoryAttemptStore creates an empty MemoryAttemptStore.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{attempts: make(map[string][]time.Time)}
}

// Reserve implements AttemptStore.
func (s *MemoryAttemptStore) Reserve(_ context.Context, key string, now time.Time, window time.Duration, limit int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := now.Add(-window)
	kept := s.attempts[key][:0]
	for _, at := range s.attempts[key] {
		if at.After(since) {
			kept = append(kept, at)
		}
	}
	if len(kept) >= limit {
		s.attempts[key] = kept
		return false, nil
	}
	s.attempts[key] = append(kept, now)
	return true, nil
}

// Clear implements AttemptStore.
func (s *MemoryAttemptStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, key)
	return nil
}

// Prune implements AttemptPruner. It drops keys whose attempts all fell out
// of the window.
func (s *MemoryAttemptStore) Prune(_ context.Context, now time.Time, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	since := now.Add(-window)
	var removed int64
	for key, list := range s.attempts {
		if len(list) == 0 || !list[len(list)-1].After(since) {
			delete(s.attempts, key)
			removed++
		}
	}
	return removed, nil
}
