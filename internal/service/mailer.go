// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"log/slog"
)

// Message is an outgoing e-mail.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// Mailer delivers e-mail.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them. It is the
// delivery used until an SMTP relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("outgoing email",
		"to", msg.To,
		"reply_to", msg.ReplyTo,
		"subject", msg.Subject,
		"body_len", len(msg.Body),
	)
	return nil
}

// ResetMailer adapts a Mailer to password reset delivery.
type ResetMailer struct {
	Mailer Mailer
}

// SendPasswordReset sends the reset link to the admin.
func (m ResetMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	return m.Mailer.Send(ctx, Message{
		To:      to,
		Subject: "Reset your admin password",
		Body: "A password reset was requested for your admin account.\n\n" +
			"Open this link within the hour to choose a new password:\n" + link + "\n\n" +
			"If you did not request this, you can ignore this message.",
	})
}
