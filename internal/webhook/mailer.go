// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"

	"github.com/agencyworks/siteworks/internal/service"
)

// Mailer hands outgoing e-mail to an external function as mail.send events.
// Send returns once the message is queued.
type Mailer struct {
	dispatcher *Dispatcher
}

var _ service.Mailer = (*Mailer)(nil)

// NewMailer creates a Mailer on top of d.
func NewMailer(d *Dispatcher) *Mailer {
	return &Mailer{dispatcher: d}
}

// Send implements service.Mailer.
func (m *Mailer) Send(ctx context.Context, msg service.Message) error {
	return m.dispatcher.DispatchEvent(ctx, EventMailSend, MailData{
		To:      msg.To,
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Body:    msg.Body,
	})
}
