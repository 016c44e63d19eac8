// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package objectstore defines the bucket abstraction used to persist generated
// documents, with a filesystem implementation for local deployments.
package objectstore

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

// DefaultBucket is the bucket generated documents are written to.
const DefaultBucket = "files"

// Sentinel errors returned by Store implementations.
var (
	ErrExists     = errors.New("object already exists")
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// PutOptions controls how an object is written.
type PutOptions struct {
	ContentType  string
	CacheControl string
	// Upsert overwrites an existing object. Without it Put fails with ErrExists.
	Upsert bool
}

// Object describes a stored object.
type Object struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a flat key/value bucket of immutable-or-upserted blobs.
type Store interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns objects directly under prefix, newest first.
	List(ctx context.Context, prefix string) ([]Object, error)
	PublicURL(key string) string
}

// CleanKey normalizes an object key and rejects keys that escape the bucket.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned != key || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
