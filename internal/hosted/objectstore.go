// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package hosted

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"

	"github.com/agencyworks/siteworks/internal/objectstore"
)

const listLimit = 1000

// ObjectStore is an objectstore.Store backed by a Supabase Storage bucket.
type ObjectStore struct {
	client *Client
	bucket string
}

var _ objectstore.Store = (*ObjectStore)(nil)

// NewObjectStore returns a store writing into bucket.
func NewObjectStore(c *Client, bucket string) *ObjectStore {
	if bucket == "" {
		bucket = objectstore.DefaultBucket
	}
	return &ObjectStore{client: c, bucket: bucket}
}

// uploader returns a storage client used for a single upload. The SDK keeps
// upload options as headers on its transport, so a shared client would leak
// them into later list and download calls.
func (s *ObjectStore) uploader() *storage_go.Client {
	key := s.client.cfg.Key
	return storage_go.NewClient(s.client.cfg.URL+storagePath, key, map[string]string{"apikey": key})
}

// Put uploads data. Without opts.Upsert an existing object yields
// objectstore.ErrExists.
func (s *ObjectStore) Put(ctx context.Context, key string, data []byte, opts objectstore.PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := objectstore.CleanKey(key)
	if err != nil {
		return err
	}

	upsert := opts.Upsert
	fo := storage_go.FileOptions{Upsert: &upsert}
	if opts.ContentType != "" {
		ct := opts.ContentType
		fo.ContentType = &ct
	}
	if opts.CacheControl != "" {
		cc := opts.CacheControl
		fo.CacheControl = &cc
	}

	if _, err := s.uploader().UploadFile(s.bucket, key, bytes.NewReader(data), fo); err != nil {
		return mapStorageError(key, err)
	}
	return nil
}

// Get downloads the object stored under key.
func (s *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := objectstore.CleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := s.client.sdk.Storage.DownloadFile(s.bucket, key)
	if err != nil {
		return nil, mapStorageError(key, err)
	}
	return data, nil
}

// List returns the objects directly under prefix, newest first. Folder
// placeholders are skipped.
func (s *ObjectStore) List(ctx context.Context, prefix string) ([]objectstore.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix = strings.Trim(prefix, "/")

	files, err := s.client.sdk.Storage.ListFiles(s.bucket, prefix, storage_go.FileSearchOptions{
		Limit:         listLimit,
		SortByOptions: storage_go.SortBy{Column: "updated_at", Order: "desc"},
	})
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", mapStorageError(prefix, err))
	}

	objects := make([]objectstore.Object, 0, len(files))
	for _, f := range files {
		if f.Id == "" || f.Name == "" || strings.HasPrefix(f.Name, ".") {
			continue
		}
		objects = append(objects, objectstore.Object{
			Key:       path.Join(prefix, f.Name),
			Size:      metadataSize(f.Metadata),
			UpdatedAt: parseStorageTime(f.UpdatedAt, f.CreatedAt),
		})
	}
	sort.SliceStable(objects, func(i, j int) bool {
		if objects[i].UpdatedAt.Equal(objects[j].UpdatedAt) {
			return objects[i].Key > objects[j].Key
		}
		return objects[i].UpdatedAt.After(objects[j].UpdatedAt)
	})
	return objects, nil
}

// PublicURL returns the public object URL. The bucket must be public for the
// URL to resolve.
func (s *ObjectStore) PublicURL(key string) string {
	return s.client.sdk.Storage.GetPublicUrl(s.bucket, strings.TrimPrefix(key, "/")).SignedURL
}

func mapStorageError(key string, err error) error {
	var se *storage_go.StorageError
	if !errors.As(err, &se) {
		return err
	}
	msg := strings.ToLower(se.Message)
	switch {
	case se.Status == http.StatusConflict || strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate"):
		return fmt.Errorf("%s: %w", key, objectstore.ErrExists)
	case se.Status == http.StatusNotFound || strings.Contains(msg, "not found"):
		return fmt.Errorf("%s: %w", key, objectstore.ErrNotFound)
	}
	if se.Message == "" {
		return fmt.Errorf("storage request failed for %s", key)
	}
	return fmt.Errorf("storage: %s", se.Message)
}

func metadataSize(meta interface{}) int64 {
	m, ok := meta.(map[string]interface{})
	if !ok {
		return 0
	}
	if n, ok := m["size"].(float64); ok {
		return int64(n)
	}
	return 0
}

func parseStorageTime(values ...string) time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
