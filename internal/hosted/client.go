// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package hosted adapts a Supabase project to the storage, content and admin
// identity interfaces used by the rest of the application.
package hosted

import (
	"errors"
	"fmt"
	"strings"

	"github.com/supabase-community/gotrue-go"
	supabase "github.com/supabase-community/supabase-go"
)

// API prefixes under the project URL.
const (
	storagePath = "/storage/v1"
)

// Config holds the project coordinates.
type Config struct {
	// URL is the project URL, e.g. https://<ref>.supabase.co.
	URL string
	// Key must be the service role key: admin user management and writes to
	// protected tables require it.
	Key string
}

// Client wraps the Supabase SDK client.
type Client struct {
	sdk *supabase.Client
	cfg Config
}

// New creates a Client. No request is made until the first call.
func New(cfg Config) (*Client, error) {
	cfg.URL = strings.TrimSuffix(strings.TrimSpace(cfg.URL), "/")
	if cfg.URL == "" || cfg.Key == "" {
		return nil, errors.New("supabase url and key are required")
	}
	sdk, err := supabase.NewClient(cfg.URL, cfg.Key, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize supabase SDK: %w", err)
	}
	return &Client{sdk: sdk, cfg: cfg}, nil
}

// admin returns an auth client carrying the service key as bearer token.
func (c *Client) admin() gotrue.Client {
	return c.sdk.Auth.WithToken(c.cfg.Key)
}
