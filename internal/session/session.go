// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures admin sessions.
package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/agencyworks/siteworks/internal/auth"
)

// Session timing.
const (
	IdleTimeout = 30 * time.Minute
	Lifetime    = 12 * time.Hour
)

const (
	keyAdminID    = "admin_id"
	keyAdminEmail = "admin_email"
)

// New creates a new session manager configured with SQLite store.
// Sessions expire after IdleTimeout without a request.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()

	sm.Store = sqlite3store.New(db)

	sm.Lifetime = Lifetime
	sm.IdleTimeout = IdleTimeout
	sm.Cookie.HttpOnly = true
	sm.Cookie.Path = "/"
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev
	if !isDev {
		sm.Cookie.Name = "__Host-session"
	}

	return sm
}

// Admin adapts a session manager to auth.Session. The context must come from
// a request wrapped by the manager's LoadAndSave middleware.
type Admin struct {
	sm *scs.SessionManager
}

// NewAdmin wraps sm.
func NewAdmin(sm *scs.SessionManager) *Admin {
	return &Admin{sm: sm}
}

// AdminID returns the admin bound to the session, or "".
func (a *Admin) AdminID(ctx context.Context) string {
	return a.sm.GetString(ctx, keyAdminID)
}

// Email returns the e-mail recorded at login.
func (a *Admin) Email(ctx context.Context) string {
	return a.sm.GetString(ctx, keyAdminEmail)
}

// Start binds id to a fresh session token.
func (a *Admin) Start(ctx context.Context, id auth.Identity) error {
	if err := a.sm.RenewToken(ctx); err != nil {
		return err
	}
	a.sm.Put(ctx, keyAdminID, id.ID)
	a.sm.Put(ctx, keyAdminEmail, id.Email)
	return nil
}

// End destroys the session.
func (a *Admin) End(ctx context.Context) error {
	return a.sm.Destroy(ctx)
}

var _ auth.Session = (*Admin)(nil)
