// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// State is the guard state of the admin area for one caller.
type State string

// Guard states.
const (
	StateChecking       State = "checking"
	StateNeedsBootstrap State = "needs_bootstrap"
	StateNeedsLogin     State = "needs_login"
	StateAuthenticated  State = "authenticated"
)

// Status is what the admin UI renders.
type Status struct {
	State State  `json:"state"`
	Email string `json:"email,omitempty"`
}

// Session holds the admin identity of one caller. Idle expiry is enforced
// by the implementation.
type Session interface {
	AdminID(ctx context.Context) string
	Start(ctx context.Context, id Identity) error
	End(ctx context.Context) error
}

// GuardConfig configures a Guard.
type GuardConfig struct {
	Policy PasswordPolicy
	Now    func() time.Time
}

// Guard drives the admin session state machine.
type Guard struct {
	backend  Backend
	throttle *Throttle
	policy   PasswordPolicy
	logger   *slog.Logger
	now      func() time.Time
}

// NewGuard creates a Guard.
func NewGuard(backend Backend, throttle *Throttle, logger *slog.Logger, cfg GuardConfig) *Guard {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Policy == (PasswordPolicy{}) {
		cfg.Policy = DefaultPasswordPolicy()
	}
	return &Guard{
		backend:  backend,
		throttle: throttle,
		policy:   cfg.Policy,
		logger:   logger,
		now:      cfg.Now,
	}
}

// Policy returns the password policy in force.
func (g *Guard) Policy() PasswordPolicy {
	return g.policy
}

// Check resolves the caller's state from scratch: account count first, then
// the session, then the account behind the session. A session whose account
// is gone is ended.
func (g *Guard) Check(ctx context.Context, sess Session) (Status, error) {
	n, err := g.backend.CountAdmins(ctx)
	if err != nil {
		return Status{State: StateChecking}, err
	}
	if n == 0 {
		if sess.AdminID(ctx) != "" {
			_ = sess.End(ctx)
		}
		return Status{State: StateNeedsBootstrap}, nil
	}

	id := sess.AdminID(ctx)
	if id == "" {
		return Status{State: StateNeedsLogin}, nil
	}
	ident, err := g.backend.Lookup(ctx, id)
	if errors.Is(err, ErrInvalidCredentials) {
		g.logger.Info("session refers to a removed admin", "admin_id", id)
		_ = sess.End(ctx)
		return Status{State: StateNeedsLogin}, nil
	}
	if err != nil {
		return Status{State: StateChecking}, err
	}
	return Status{State: StateAuthenticated, Email: ident.Email}, nil
}

// Bootstrap creates the first admin account and logs it in. Failures before
// the account exists leave the caller in needs_bootstrap. Once any account
// exists it fails with ErrBootstrapClosed and the caller must log in.
func (g *Guard) Bootstrap(ctx context.Context, sess Session, email, password, confirm string) (Status, error) {
	bootstrap := Status{State: StateNeedsBootstrap}

	email, err := normalizeEmail(email)
	if err != nil {
		return bootstrap, err
	}
	if password != confirm {
		return bootstrap, ErrPasswordMismatch
	}
	if v := g.policy.Validate(password); !v.IsValid {
		return bootstrap, &PolicyError{Errors: v.Errors}
	}

	n, err := g.backend.CountAdmins(ctx)
	if err != nil {
		return bootstrap, err
	}
	if n > 0 {
		g.logger.Warn("bootstrap attempted with existing admin")
		return Status{State: StateNeedsLogin}, ErrBootstrapClosed
	}

	if _, err := g.backend.CreateFirstAdmin(ctx, email, password); err != nil {
		if errors.Is(err, ErrBootstrapClosed) {
			return Status{State: StateNeedsLogin}, err
		}
		return bootstrap, err
	}
	g.logger.Info("initial admin account created", "email", email)

	return g.Login(ctx, sess, email, password)
}

// Login authenticates the caller. Locked-out accounts are refused before
// their credentials are looked at. A missing admin sends the caller to
// bootstrap.
func (g *Guard) Login(ctx context.Context, sess Session, email, password string) (Status, error) {
	needsLogin := Status{State: StateNeedsLogin}
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" || password == "" {
		return needsLogin, ErrInvalidCredentials
	}

	allowed, err := g.throttle.Allow(ctx, key, g.now())
	if err != nil {
		return needsLogin, err
	}
	if !allowed {
		g.logger.Warn("login refused: account locked", "email", key, "window", g.throttle.Window().String())
		return needsLogin, ErrRateLimited
	}

	ident, err := g.backend.Authenticate(ctx, key, password)
	switch {
	case errors.Is(err, ErrNoAdmin):
		_ = g.throttle.Reset(ctx, key)
		return Status{State: StateNeedsBootstrap}, ErrNoAdmin
	case err != nil:
		return needsLogin, err
	}

	if err := g.throttle.Reset(ctx, key); err != nil {
		g.logger.Warn("failed to clear login attempts", "email", key, "error", err)
	}
	if err := sess.Start(ctx, ident); err != nil {
		return needsLogin, err
	}
	return Status{State: StateAuthenticated, Email: ident.Email}, nil
}

// Logout ends the caller's session.
func (g *Guard) Logout(ctx context.Context, sess Session) error {
	return sess.End(ctx)
}

// RequestPasswordReset triggers an out-of-band reset message. The result does
// not depend on whether the account exists.
func (g *Guard) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	return g.backend.RequestPasswordReset(ctx, email)
}

// ResetPassword completes a password reset with a token from the reset message.
func (g *Guard) ResetPassword(ctx context.Context, token, password string) error {
	resetter, ok := g.backend.(PasswordResetter)
	if !ok {
		return ErrResetUnsupported
	}
	if v := g.policy.Validate(password); !v.IsValid {
		return &PolicyError{Errors: v.Errors}
	}
	return resetter.ResetPassword(ctx, token, password)
}

// PublicMessage maps an authentication error to the text shown to the
// caller. Wrong credentials and lockouts read the same.
func PublicMessage(err error) string {
	var policyErr *PolicyError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrRateLimited):
		return "Invalid email or password."
	case errors.Is(err, ErrNoAdmin):
		return "No admin account exists yet. Create one to continue."
	case errors.Is(err, ErrBootstrapClosed):
		return "An admin account already exists. Please log in."
	case errors.Is(err, ErrPasswordMismatch):
		return "Passwords do not match."
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, ErrInvalidResetToken):
		return "This reset link is invalid or has expired."
	case errors.Is(err, ErrResetUnsupported):
		return "Use the link in the reset email to choose a new password."
	case errors.As(err, &policyErr):
		return strings.Join(policyErr.Errors, ". ") + "."
	default:
		return "Something went wrong. Please try again."
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
