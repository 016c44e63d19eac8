// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package hosted

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"

	"github.com/agencyworks/siteworks/internal/auth"
)

// Authenticator is an auth.Backend over Supabase Auth. Every user in the
// project counts as an admin. Password resets are completed on the
// provider's own page, so it does not implement auth.PasswordResetter.
type Authenticator struct {
	client *Client
	logger *slog.Logger
}

var _ auth.Backend = (*Authenticator)(nil)

// NewAuthenticator returns an Authenticator backed by c.
func NewAuthenticator(c *Client, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{client: c, logger: logger}
}

// CountAdmins returns the number of users in the project.
func (a *Authenticator) CountAdmins(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	resp, err := a.client.admin().AdminListUsers()
	if err != nil {
		return 0, fmt.Errorf("listing users: %w", err)
	}
	return int64(len(resp.Users)), nil
}

// CreateFirstAdmin creates a confirmed user when the project has none.
func (a *Authenticator) CreateFirstAdmin(ctx context.Context, email, password string) (auth.Identity, error) {
	n, err := a.CountAdmins(ctx)
	if err != nil {
		return auth.Identity{}, err
	}
	if n > 0 {
		return auth.Identity{}, auth.ErrBootstrapClosed
	}

	resp, err := a.client.admin().AdminCreateUser(types.AdminCreateUserRequest{
		Email:        email,
		Password:     &password,
		EmailConfirm: true,
	})
	if err != nil {
		if statusIs(err, 422) {
			return auth.Identity{}, auth.ErrBootstrapClosed
		}
		return auth.Identity{}, fmt.Errorf("creating user: %w", err)
	}
	return identity(resp.User), nil
}

// Authenticate signs in with a password grant.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (auth.Identity, error) {
	n, err := a.CountAdmins(ctx)
	if err != nil {
		return auth.Identity{}, err
	}
	if n == 0 {
		return auth.Identity{}, auth.ErrNoAdmin
	}

	token, err := a.client.sdk.Auth.SignInWithEmailPassword(email, password)
	if err != nil {
		if statusIs(err, 400) || statusIs(err, 401) || statusIs(err, 422) {
			return auth.Identity{}, auth.ErrInvalidCredentials
		}
		return auth.Identity{}, fmt.Errorf("signing in: %w", err)
	}
	return identity(token.User), nil
}

// Lookup fetches the user behind a session.
func (a *Authenticator) Lookup(ctx context.Context, id string) (auth.Identity, error) {
	if err := ctx.Err(); err != nil {
		return auth.Identity{}, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return auth.Identity{}, auth.ErrInvalidCredentials
	}
	resp, err := a.client.admin().AdminGetUser(types.AdminGetUserRequest{UserID: uid})
	if err != nil {
		if statusIs(err, 404) {
			return auth.Identity{}, auth.ErrInvalidCredentials
		}
		return auth.Identity{}, fmt.Errorf("getting user: %w", err)
	}
	return identity(resp.User), nil
}

// RequestPasswordReset asks the provider to mail a recovery link. Provider
// errors are logged and not returned so callers cannot probe for accounts.
func (a *Authenticator) RequestPasswordReset(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.client.sdk.Auth.Recover(types.RecoverRequest{Email: email}); err != nil {
		if statusIs(err, 429) || strings.Contains(err.Error(), "status code 5") {
			return fmt.Errorf("requesting recovery: %w", err)
		}
		a.logger.Warn("password recovery request rejected", "error", err)
	}
	return nil
}

func identity(u types.User) auth.Identity {
	return auth.Identity{ID: u.ID.String(), Email: u.Email}
}

// statusIs reports whether err is a provider error with the given status.
// The client formats them as "response status code <n>: <body>".
func statusIs(err error, code int) bool {
	return strings.HasPrefix(err.Error(), fmt.Sprintf("response status code %d", code))
}
