package store

import (
	"context"
	"fmt"
	"time"

	"github.com/agencyworks/siteworks/internal/model"
)

// CreatePasswordReset stores a reset token hash.
func (q *Queries) CreatePasswordReset(ctx context.Context, r model.PasswordReset) error {
	_, err := q.exec(ctx, `INSERT INTO password_resets (token_hash, admin_id, expires_at) VALUES (?, ?, ?)`,
		r.TokenHash, r.AdminID, r.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("creating password reset: %w", err)
	}
	return nil
}

// GetPasswordReset returns the reset stored under tokenHash.
func (q *Queries) GetPasswordReset(ctx context.Context, tokenHash string) (model.PasswordReset, error) {
	var r model.PasswordReset
	err := q.queryRow(ctx, `SELECT token_hash, admin_id, expires_at, used_at FROM password_resets WHERE token_hash = ?`,
		tokenHash).Scan(&r.TokenHash, &r.AdminID, &r.ExpiresAt, &r.UsedAt)
	return r, notFound(err)
}

// ConsumePasswordReset marks the reset used. It fails with model.ErrNotFound
// when the token was already used.
func (q *Queries) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) error {
	res, err := q.exec(ctx, `UPDATE password_resets SET used_at = ? WHERE token_hash = ? AND used_at IS NULL`,
		now.UTC(), tokenHash)
	if err != nil {
		return fmt.Errorf("consuming password reset: %w", err)
	}
	return requireAffected(res)
}

// DeleteExpiredPasswordResets prunes resets that expired before cutoff.
func (q *Queries) DeleteExpiredPasswordResets(ctx context.Context, cutoff time.Time) error {
	_, err := q.exec(ctx, `DELETE FROM password_resets WHERE expires_at < ?`, cutoff.UTC())
	return err
}
