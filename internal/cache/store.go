// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/agencyworks/siteworks/internal/objectstore"
)

// DefaultTTL bounds how stale a cached object may be.
const DefaultTTL = 5 * time.Minute

// CachedStore serves Get from a cache and falls back to the wrapped store.
// Upserts overwrite the cached copy. Cache failures are logged and never
// fail the call.
type CachedStore struct {
	store  objectstore.Store
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

var _ objectstore.Store = (*CachedStore)(nil)

// NewCachedStore wraps store with c. A zero ttl means DefaultTTL.
func NewCachedStore(store objectstore.Store, c Cache, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{store: store, cache: c, ttl: ttl, logger: logger}
}

// Put writes through to the store. An upserted key is refreshed in the
// cache; new keys are cached on first read.
func (s *CachedStore) Put(ctx context.Context, key string, data []byte, opts objectstore.PutOptions) error {
	if err := s.store.Put(ctx, key, data, opts); err != nil {
		return err
	}
	if opts.Upsert {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn("cache refresh failed, dropping entry", "key", key, "error", err)
			_ = s.cache.Delete(ctx, key)
		}
	}
	return nil
}

// Get returns the cached object or loads it from the store.
func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.cache.Get(ctx, key)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("cache read failed", "key", key, "error", err)
	}

	data, err = s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return data, nil
}

// List is never cached.
func (s *CachedStore) List(ctx context.Context, prefix string) ([]objectstore.Object, error) {
	return s.store.List(ctx, prefix)
}

// PublicURL returns the wrapped store's URL for key.
func (s *CachedStore) PublicURL(key string) string {
	return s.store.PublicURL(key)
}

// Stats reports the cache counters, if the cache keeps any.
func (s *CachedStore) Stats() (Stats, bool) {
	sp, ok := s.cache.(StatsProvider)
	if !ok {
		return Stats{}, false
	}
	return sp.Stats(), true
}
