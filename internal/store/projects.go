// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agencyworks/siteworks/internal/model"
)

const projectColumns = `id, slug, title, client, summary, case_study, created_at, updated_at`

func scanProject(row scanner) (model.Project, error) {
	var p model.Project
	var updated sql.NullTime
	if err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Client, &p.Summary, &p.CaseStudy, &p.CreatedAt, &updated); err != nil {
		return model.Project{}, err
	}
	if updated.Valid {
		t := updated.Time
		p.UpdatedAt = &t
	}
	return p, nil
}

// ListProjects returns all projects, newest first.
func (q *Queries) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := q.query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := make([]model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GetProject returns the project with the given id.
func (q *Queries) GetProject(ctx context.Context, id string) (model.Project, error) {
	p, err := scanProject(q.queryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	return p, notFound(err)
}

// GetProjectBySlug returns the project with the given slug.
func (q *Queries) GetProjectBySlug(ctx context.Context, slug string) (model.Project, error) {
	p, err := scanProject(q.queryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE slug = ?`, slug))
	return p, notFound(err)
}

// CreateProject inserts p. ID and CreatedAt must be set by the caller.
func (q *Queries) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	_, err := q.exec(ctx, `INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.Title, p.Client, p.Summary, p.CaseStudy, p.CreatedAt.UTC(), nullTime(p.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return model.Project{}, model.ErrSlugTaken
		}
		return model.Project{}, fmt.Errorf("creating project: %w", err)
	}
	return q.GetProject(ctx, p.ID)
}

// UpdateProject overwrites the editable fields of p.
func (q *Queries) UpdateProject(ctx context.Context, p model.Project) (model.Project, error) {
	res, err := q.exec(ctx, `UPDATE projects
		SET slug = ?, title = ?, client = ?, summary = ?, case_study = ?, updated_at = ?
		WHERE id = ?`,
		p.Slug, p.Title, p.Client, p.Summary, p.CaseStudy, nullTime(p.UpdatedAt), p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Project{}, model.ErrSlugTaken
		}
		return model.Project{}, fmt.Errorf("updating project: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return model.Project{}, err
	}
	return q.GetProject(ctx, p.ID)
}

// DeleteProject removes the project with the given id.
func (q *Queries) DeleteProject(ctx context.Context, id string) error {
	res, err := q.exec(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return requireAffected(res)
}
