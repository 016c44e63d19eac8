// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package objectstore

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store, used in tests and ephemeral setups.
type MemoryStore struct {
	mu            sync.RWMutex
	objects       map[string]memoryObject
	publicBaseURL string
	now           func() time.Time
}

type memoryObject struct {
	data      []byte
	opts      PutOptions
	updatedAt time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(publicBaseURL string) *MemoryStore {
	return &MemoryStore{
		objects:       make(map[string]memoryObject),
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		now:           time.Now,
	}
}

// Put stores a copy of data under key.
func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := CleanKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; ok && !opts.Upsert {
		return fmt.Errorf("%s: %w", key, ErrExists)
	}
	s.objects[key] = memoryObject{
		data:      append([]byte(nil), data...),
		opts:      opts,
		updatedAt: s.now(),
	}
	return nil
}

// Get returns a copy of the object stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), obj.data...), nil
}

// List returns objects directly under prefix, newest first.
func (s *MemoryStore) List(ctx context.Context, prefix string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix = strings.Trim(prefix, "/")

	s.mu.RLock()
	objects := make([]Object, 0)
	for key, obj := range s.objects {
		dir := path.Dir(key)
		if dir == "." {
			dir = ""
		}
		if dir != prefix {
			continue
		}
		objects = append(objects, Object{Key: key, Size: int64(len(obj.data)), UpdatedAt: obj.updatedAt})
	}
	s.mu.RUnlock()

	sort.Slice(objects, func(i, j int) bool {
		if objects[i].UpdatedAt.Equal(objects[j].UpdatedAt) {
			return objects[i].Key > objects[j].Key
		}
		return objects[i].UpdatedAt.After(objects[j].UpdatedAt)
	})
	return objects, nil
}

// PublicURL returns the URL the object would be served from.
func (s *MemoryStore) PublicURL(key string) string {
	return s.publicBaseURL + "/" + strings.TrimPrefix(key, "/")
}

// Options returns the PutOptions the object was last written with.
func (s *MemoryStore) Options(key string) (PutOptions, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.opts, ok
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
