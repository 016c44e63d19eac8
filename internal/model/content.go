// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types shared by the store, services and
// handlers: blog posts, portfolio projects, admin accounts and events.
package model

import (
	"errors"
	"time"
)

// Errors returned by content stores.
var (
	ErrNotFound  = errors.New("not found")
	ErrSlugTaken = errors.New("slug already in use")
)

// BlogPost is a blog article. Content is markdown.
type BlogPost struct {
	ID        string     `json:"id"`
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	Excerpt   string     `json:"excerpt"`
	Content   string     `json:"content"`
	Published bool       `json:"published"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// LastModified returns UpdatedAt, falling back to CreatedAt.
func (p BlogPost) LastModified() time.Time {
	if p.UpdatedAt != nil && !p.UpdatedAt.IsZero() {
		return *p.UpdatedAt
	}
	return p.CreatedAt
}

// Project is a portfolio entry. Projects flagged as case studies also get a
// dedicated case-study page.
type Project struct {
	ID        string     `json:"id"`
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	Client    string     `json:"client"`
	Summary   string     `json:"summary"`
	CaseStudy bool       `json:"case_study"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// LastModified returns UpdatedAt, falling back to CreatedAt.
func (p Project) LastModified() time.Time {
	if p.UpdatedAt != nil && !p.UpdatedAt.IsZero() {
		return *p.UpdatedAt
	}
	return p.CreatedAt
}

// ListParams pages through a listing.
type ListParams struct {
	Limit  int
	Offset int
}
