// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agencyworks/siteworks/internal/model"
)

// Contact form limits.
const (
	MaxContactNameLength    = 120
	MaxContactMessageLength = 5000
)

// ContactStore persists contact submissions.
type ContactStore interface {
	CreateContactSubmission(ctx context.Context, c model.ContactSubmission) error
	ListContactSubmissions(ctx context.Context, limit int) ([]model.ContactSubmission, error)
}

// ContactRequest is the body of a contact form post.
type ContactRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Company    string `json:"company,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Message    string `json:"message"`
	LeadMagnet string `json:"lead_magnet,omitempty"`
}

// ContactService stores contact submissions and notifies the agency inbox.
type ContactService struct {
	store    ContactStore
	mailer   Mailer
	notifyTo string
	logger   *slog.Logger
	now      func() time.Time
}

// NewContactService creates a ContactService. Submissions are e-mailed to notifyTo.
func NewContactService(store ContactStore, mailer Mailer, notifyTo string, logger *slog.Logger) *ContactService {
	return &ContactService{
		store:    store,
		mailer:   mailer,
		notifyTo: notifyTo,
		logger:   logger,
		now:      time.Now,
	}
}

// Validate checks the required fields of req.
func (req ContactRequest) Validate() error {
	fields := map[string]string{}
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	message := strings.TrimSpace(req.Message)

	switch {
	case name == "":
		fields["name"] = "Name is required"
	case len(name) > MaxContactNameLength:
		fields["name"] = fmt.Sprintf("Name must be at most %d characters", MaxContactNameLength)
	}
	if email == "" {
		fields["email"] = "Email is required"
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		fields["email"] = "Email is invalid"
	}
	switch {
	case message == "":
		fields["message"] = "Message is required"
	case len(message) > MaxContactMessageLength:
		fields["message"] = fmt.Sprintf("Message must be at most %d characters", MaxContactMessageLength)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Submit validates, stores and forwards a contact request. Once the
// submission is stored it is reported as accepted: a failed notification is
// logged and the submission stays visible in the admin inbox, so a retry by
// the visitor would only create a duplicate.
func (s *ContactService) Submit(ctx context.Context, req ContactRequest) (model.ContactSubmission, error) {
	if err := req.Validate(); err != nil {
		return model.ContactSubmission{}, err
	}

	sub := model.ContactSubmission{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.TrimSpace(req.Email),
		Company:    strings.TrimSpace(req.Company),
		Phone:      strings.TrimSpace(req.Phone),
		Message:    strings.TrimSpace(req.Message),
		LeadMagnet: strings.TrimSpace(req.LeadMagnet),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.CreateContactSubmission(ctx, sub); err != nil {
		return model.ContactSubmission{}, fmt.Errorf("storing contact submission: %w", err)
	}

	if err := s.mailer.Send(ctx, s.notification(sub)); err != nil {
		s.logger.Warn("contact notification not sent", "submission_id", sub.ID, "error", err)
	}
	s.logger.Info("contact submission received", "submission_id", sub.ID, "lead_magnet", sub.LeadMagnet)
	return sub, nil
}

// Recent returns the newest submissions for the admin inbox.
func (s *ContactService) Recent(ctx context.Context, limit int) ([]model.ContactSubmission, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListContactSubmissions(ctx, limit)
}

func (s *ContactService) notification(sub model.ContactSubmission) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", sub.Name)
	fmt.Fprintf(&b, "Email: %s\n", sub.Email)
	if sub.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", sub.Company)
	}
	if sub.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", sub.Phone)
	}
	if sub.LeadMagnet != "" {
		fmt.Fprintf(&b, "Lead magnet: %s\n", sub.LeadMagnet)
	}
	b.WriteString("\n")
	b.WriteString(sub.Message)

	subject := "New contact form submission from " + sub.Name
	if sub.LeadMagnet != "" {
		subject = "New " + sub.LeadMagnet + " request from " + sub.Name
	}
	return Message{
		To:      s.notifyTo,
		ReplyTo: sub.Email,
		Subject: subject,
		Body:    b.String(),
	}
}
