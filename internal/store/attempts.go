package store

import (
	"context"
	"fmt"
	"time"
)

// ReserveLoginAttempt records an attempt for key unless limit or more
// attempts were already recorded after since. The check and the insert run as
// one statement, so concurrent callers cannot both slip under the limit.
func (q *Queries) ReserveLoginAttempt(ctx context.Context, key string, now, since time.Time, limit int) (bool, error) {
	res, err := q.exec(ctx, `INSERT INTO login_attempts (attempt_key, attempted_at)
		SELECT ?, ?
		WHERE (SELECT COUNT(*) FROM login_attempts WHERE attempt_key = ? AND attempted_at > ?) < ?`,
		key, now.UnixMilli(), key, since.UnixMilli(), limit)
	if err != nil {
		return false, fmt.Errorf("recording login attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountLoginAttempts returns the attempts recorded for key after since.
func (q *Queries) CountLoginAttempts(ctx context.Context, key string, since time.Time) (int, error) {
	var n int
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM login_attempts WHERE attempt_key = ? AND attempted_at > ?`,
		key, since.UnixMilli()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting login attempts: %w", err)
	}
	return n, nil
}

// ClearLoginAttempts forgets all attempts for key.
func (q *Queries) ClearLoginAttempts(ctx context.Context, key string) error {
	_, err := q.exec(ctx, `DELETE FROM login_attempts WHERE attempt_key = ?`, key)
	return err
}

// DeleteLoginAttemptsBefore prunes attempts older than cutoff.
func (q *Queries) DeleteLoginAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.exec(ctx, `DELETE FROM login_attempts WHERE attempted_at <= ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
