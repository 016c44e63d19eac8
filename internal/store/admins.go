// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/agencyworks/siteworks/internal/model"
)

const adminColumns = `id, email, password_hash, created_at, updated_at, last_login_at`

func scanAdmin(row scanner) (model.AdminAccount, error) {
	var a model.AdminAccount
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt, &a.LastLoginAt)
	return a, err
}

// CountAdmins returns the number of admin accounts.
func (q *Queries) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	if err := q.queryRow(ctx, `SELECT COUNT(*) FROM admin_accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return n, nil
}

// CreateFirstAdmin inserts a only while the table is empty. It returns
// false when an account already exists.
func (q *Queries) CreateFirstAdmin(ctx context.Context, a model.AdminAccount) (bool, error) {
	res, err := q.exec(ctx, `INSERT INTO admin_accounts (`+adminColumns+`)
		SELECT ?, ?, ?, ?, ?, NULL
		WHERE NOT EXISTS (SELECT 1 FROM admin_accounts)`,
		a.ID, strings.ToLower(a.Email), a.PasswordHash, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("creating admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetAdminByEmail looks an account up by case-insensitive email.
func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (model.AdminAccount, error) {
	a, err := scanAdmin(q.queryRow(ctx, `SELECT `+adminColumns+` FROM admin_accounts WHERE email = ?`,
		strings.ToLower(email)))
	return a, notFound(err)
}

// GetAdmin looks an account up by id.
func (q *Queries) GetAdmin(ctx context.Context, id string) (model.AdminAccount, error) {
	a, err := scanAdmin(q.queryRow(ctx, `SELECT `+adminColumns+` FROM admin_accounts WHERE id = ?`, id))
	return a, notFound(err)
}

// UpdateAdminPassword replaces the stored password hash.
func (q *Queries) UpdateAdminPassword(ctx context.Context, id, hash string, now time.Time) error {
	res, err := q.exec(ctx, `UPDATE admin_accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, now.UTC(), id)
	if err != nil {
		return fmt.Errorf("updating admin password: %w", err)
	}
	return requireAffected(res)
}

// TouchAdminLogin records a successful login.
func (q *Queries) TouchAdminLogin(ctx context.Context, id string, now time.Time) error {
	_, err := q.exec(ctx, `UPDATE admin_accounts SET last_login_at = ? WHERE id = ?`,
		sql.NullTime{Time: now.UTC(), Valid: true}, id)
	return err
}
