// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agencyworks/siteworks/internal/model"
)

// DefaultResetTTL is how long a password reset link stays valid.
const DefaultResetTTL = time.Hour

// AccountStore persists admin accounts and reset tokens.
type AccountStore interface {
	CountAdmins(ctx context.Context) (int64, error)
	CreateFirstAdmin(ctx context.Context, a model.AdminAccount) (bool, error)
	GetAdminByEmail(ctx context.Context, email string) (model.AdminAccount, error)
	GetAdmin(ctx context.Context, id string) (model.AdminAccount, error)
	UpdateAdminPassword(ctx context.Context, id, hash string, now time.Time) error
	TouchAdminLogin(ctx context.Context, id string, now time.Time) error
	CreatePasswordReset(ctx context.Context, r model.PasswordReset) error
	GetPasswordReset(ctx context.Context, tokenHash string) (model.PasswordReset, error)
	ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) error
}

// LocalConfig configures a LocalBackend.
type LocalConfig struct {
	// ResetURL is the admin page that accepts a ?token= parameter.
	ResetURL string
	ResetTTL time.Duration
	Now      func() time.Time
}

// LocalBackend keeps admin accounts in the application database with
// Argon2id password hashes.
type LocalBackend struct {
	accounts AccountStore
	mailer   ResetMailer
	logger   *slog.Logger
	cfg      LocalConfig
}

// NewLocalBackend creates a LocalBackend.
func NewLocalBackend(accounts AccountStore, mailer ResetMailer, logger *slog.Logger, cfg LocalConfig) *LocalBackend {
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &LocalBackend{accounts: accounts, mailer: mailer, logger: logger, cfg: cfg}
}

// CountAdmins implements Backend.
func (b *LocalBackend) CountAdmins(ctx context.Context) (int64, error) {
	return b.accounts.CountAdmins(ctx)
}

// CreateFirstAdmin implements Backend.
func (b *LocalBackend) CreateFirstAdmin(ctx context.Context, email, password string) (Identity, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return Identity{}, err
	}
	now := b.cfg.Now()
	account := model.AdminAccount{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := b.accounts.CreateFirstAdmin(ctx, account)
	if err != nil {
		return Identity{}, err
	}
	if !created {
		return Identity{}, ErrBootstrapClosed
	}
	return Identity{ID: account.ID, Email: account.Email}, nil
}

// Authenticate implements Backend.
func (b *LocalBackend) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	n, err := b.accounts.CountAdmins(ctx)
	if err != nil {
		return Identity{}, err
	}
	if n == 0 {
		return Identity{}, ErrNoAdmin
	}

	account, err := b.accounts.GetAdminByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, model.ErrNotFound) {
		_, _ = CheckPassword(password, dummyHash)
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, err
	}

	ok, err := CheckPassword(password, account.PasswordHash)
	if err != nil {
		b.logger.Error("stored password hash is unreadable", "admin_id", account.ID, "error", err)
		return Identity{}, ErrInvalidCredentials
	}
	if !ok {
		return Identity{}, ErrInvalidCredentials
	}

	now := b.cfg.Now()
	if err := b.accounts.TouchAdminLogin(ctx, account.ID, now); err != nil {
		b.logger.Warn("failed to record login time", "admin_id", account.ID, "error", err)
	}
	if NeedsRehash(account.PasswordHash) {
		if hash, err := HashPassword(password); err == nil {
			if err := b.accounts.UpdateAdminPassword(ctx, account.ID, hash, now); err != nil {
				b.logger.Warn("failed to upgrade password hash", "admin_id", account.ID, "error", err)
			}
		}
	}

	return Identity{ID: account.ID, Email: account.Email}, nil
}

// Lookup implements Backend.
func (b *LocalBackend) Lookup(ctx context.Context, id string) (Identity, error) {
	account, err := b.accounts.GetAdmin(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: account.ID, Email: account.Email}, nil
}

// RequestPasswordReset implements Backend. Unknown emails succeed silently.
func (b *LocalBackend) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := b.accounts.GetAdminByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, model.ErrNotFound) {
		b.logger.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	err = b.accounts.CreatePasswordReset(ctx, model.PasswordReset{
		TokenHash: hashResetToken(token),
		AdminID:   account.ID,
		ExpiresAt: b.cfg.Now().Add(b.cfg.ResetTTL),
	})
	if err != nil {
		return err
	}

	link := b.cfg.ResetURL + "?token=" + url.QueryEscape(token)
	if err := b.mailer.SendPasswordReset(ctx, account.Email, link); err != nil {
		return fmt.Errorf("sending reset email: %w", err)
	}
	return nil
}

// ResetPassword implements PasswordResetter. The caller validates the
// password against the policy.
func (b *LocalBackend) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return ErrInvalidResetToken
	}
	tokenHash := hashResetToken(token)
	now := b.cfg.Now()

	reset, err := b.accounts.GetPasswordReset(ctx, tokenHash)
	if errors.Is(err, model.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}
	if reset.Expired(now) {
		return ErrInvalidResetToken
	}
	if err := b.accounts.ConsumePasswordReset(ctx, tokenHash, now); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return b.accounts.UpdateAdminPassword(ctx, reset.AdminID, hash, now)
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
