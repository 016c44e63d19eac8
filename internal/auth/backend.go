// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"errors"
)

// Authentication errors. ErrInvalidCredentials and ErrRateLimited share one
// public message; see PublicMessage.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many login attempts")
	ErrNoAdmin            = errors.New("no admin account exists")
	ErrBootstrapClosed    = errors.New("an admin account already exists")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidEmail       = errors.New("a valid email address is required")
	ErrInvalidResetToken  = errors.New("reset link is invalid or has expired")
	ErrResetUnsupported   = errors.New("password reset is handled by the identity provider")
)

// Identity is an authenticated admin.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Backend stores admin credentials and verifies them.
type Backend interface {
	// CountAdmins returns the number of admin accounts.
	CountAdmins(ctx context.Context) (int64, error)
	// CreateFirstAdmin creates the only admin account. It fails with
	// ErrBootstrapClosed once any account exists.
	CreateFirstAdmin(ctx context.Context, email, password string) (Identity, error)
	// Authenticate verifies credentials. It fails with ErrNoAdmin when no
	// account exists and ErrInvalidCredentials otherwise.
	Authenticate(ctx context.Context, email, password string) (Identity, error)
	// Lookup returns the account behind a session. Missing accounts yield
	// ErrInvalidCredentials.
	Lookup(ctx context.Context, id string) (Identity, error)
	// RequestPasswordReset sends a reset message out of band. It never
	// reveals whether the account exists.
	RequestPasswordReset(ctx context.Context, email string) error
}

// PasswordResetter completes a reset started by RequestPasswordReset.
type PasswordResetter interface {
	ResetPassword(ctx context.Context, token, password string) error
}

// ResetMailer delivers password reset links.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}
