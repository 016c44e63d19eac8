package store

import (
	"context"
	"fmt"
	"time"

	"github.com/agencyworks/siteworks/internal/model"
)

// CreateEventParams holds the fields of a new event.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	Actor     string
	Metadata  string
	IpAddress string
	CreatedAt time.Time
}

// CreateEvent appends an event to the log.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) error {
	_, err := q.exec(ctx, `INSERT INTO events (level, category, message, actor, metadata, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.Actor, arg.Metadata, arg.IpAddress, arg.CreatedAt.UTC())
	return err
}

// ListEvents returns the newest events, optionally filtered by category.
func (q *Queries) ListEvents(ctx context.Context, category string, limit int) ([]model.Event, error) {
	query := `SELECT id, level, category, message, actor, metadata, ip_address, created_at FROM events`
	args := []interface{}{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]model.Event, 0)
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.Actor, &e.Metadata, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteOldEvents removes events created before cutoff.
func (q *Queries) DeleteOldEvents(ctx context.Context, cutoff time.Time) error {
	_, err := q.exec(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff.UTC())
	return err
}
