// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"time"

	"github.com/agencyworks/siteworks/internal/store"
)

// SQLAttemptStore keeps attempts in the application database.
type SQLAttemptStore struct {
	queries *store.Queries
}

// NewSQLAttemptStore creates an AttemptStore backed by the login_attempts table.
func NewSQLAttemptStore(queries *store.Queries) *SQLAttemptStore {
	return &SQLAttemptStore{queries: queries}
}

// Reserve implements AttemptStore.
func (s *SQLAttemptStore) Reserve(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, error) {
	return s.queries.ReserveLoginAttempt(ctx, key, now, now.Add(-window), limit)
}

// Clear implements AttemptStore.
func (s *SQLAttemptStore) Clear(ctx context.Context, key string) error {
	return s.queries.ClearLoginAttempts(ctx, key)
}

// Prune implements AttemptPruner.
func (s *SQLAttemptStore) Prune(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	return s.queries.DeleteLoginAttemptsBefore(ctx, now.Add(-window))
}
