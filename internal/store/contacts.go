// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/agencyworks/siteworks/internal/model"
)

// CreateContactSubmission stores a contact form submission.
func (q *Queries) CreateContactSubmission(ctx context.Context, c model.ContactSubmission) error {
	_, err := q.exec(ctx, `INSERT INTO contact_submissions
		(id, name, email, company, phone, message, lead_magnet, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, c.Company, c.Phone, c.Message, c.LeadMagnet, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("creating contact submission: %w", err)
	}
	return nil
}

// ListContactSubmissions returns the most recent submissions.
func (q *Queries) ListContactSubmissions(ctx context.Context, limit int) ([]model.ContactSubmission, error) {
	rows, err := q.query(ctx, `SELECT id, name, email, company, phone, message, lead_magnet, created_at
		FROM contact_submissions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing contact submissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.ContactSubmission, 0)
	for rows.Next() {
		var c model.ContactSubmission
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Company, &c.Phone, &c.Message, &c.LeadMagnet, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
