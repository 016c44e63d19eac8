// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// AdminAccount is an administrator allowed into the admin area.
type AdminAccount struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Never expose in JSON
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	LastLoginAt  sql.NullTime `json:"last_login_at,omitempty"`
}

// PasswordReset is a pending single-use reset token. Only the token hash is stored.
type PasswordReset struct {
	TokenHash string
	AdminID   string
	ExpiresAt time.Time
	UsedAt    sql.NullTime
}

// Expired reports whether the reset can no longer be used at now.
func (r PasswordReset) Expired(now time.Time) bool {
	return r.UsedAt.Valid || !now.Before(r.ExpiresAt)
}
