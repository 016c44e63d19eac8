// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/agencyworks/siteworks/internal/auth"
	"github.com/agencyworks/siteworks/internal/model"
	"github.com/agencyworks/siteworks/internal/service"
)

// resetRequestedMessage is returned for every well-formed reset request.
const resetRequestedMessage = "If an account exists for that address, a reset link is on its way."

// AuthHandler serves the admin session endpoints under /admin/api.
type AuthHandler struct {
	guard   *auth.Guard
	session auth.Session
	events  *service.EventService
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. events may be nil.
func NewAuthHandler(guard *auth.Guard, sess auth.Session, events *service.EventService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		guard:   guard,
		session: sess,
		events:  events,
		logger:  logger,
	}
}

// sessionEmail is implemented by sessions that remember the login e-mail.
type sessionEmail interface {
	Email(ctx context.Context) string
}

type setupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type policyRequest struct {
	Password string `json:"password"`
}

// policyRules describes the password policy to the admin UI.
type policyRules struct {
	MinLength     int  `json:"minLength"`
	MaxLength     int  `json:"maxLength"`
	RequireUpper  bool `json:"requireUpper"`
	RequireLower  bool `json:"requireLower"`
	RequireDigit  bool `json:"requireDigit"`
	RequireSymbol bool `json:"requireSymbol"`
}

// Session handles GET /admin/api/session. The state is resolved from
// scratch on every call.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	status, err := h.guard.Check(r.Context(), h.session)
	if err != nil {
		h.logger.Error("session check failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Session check failed")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Setup handles POST /admin/api/setup, creating the first admin account.
func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := h.guard.Bootstrap(r.Context(), h.session, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		h.logger.Warn("admin setup failed", "error", err)
		logEvent(h.events, h.logger, r, model.EventLevelWarning, model.EventCategoryAuth,
			"Admin setup failed", req.Email, map[string]any{"reason": err.Error()})
		h.writeAuthError(w, status, err)
		return
	}

	logEvent(h.events, h.logger, r, model.EventLevelInfo, model.EventCategoryAuth,
		"Initial admin account created", status.Email, nil)
	writeJSON(w, http.StatusOK, status)
}

// Login handles POST /admin/api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := h.guard.Login(r.Context(), h.session, req.Email, req.Password)
	if err != nil {
		reason := "invalid_credentials"
		switch {
		case errors.Is(err, auth.ErrRateLimited):
			reason = "rate_limited"
		case errors.Is(err, auth.ErrNoAdmin):
			reason = "no_admin"
		case !errors.Is(err, auth.ErrInvalidCredentials):
			reason = "error"
		}
		logEvent(h.events, h.logger, r, model.EventLevelWarning, model.EventCategoryAuth,
			"Failed login attempt", req.Email, map[string]any{"reason": reason})
		h.writeAuthError(w, status, err)
		return
	}

	logEvent(h.events, h.logger, r, model.EventLevelInfo, model.EventCategoryAuth,
		"Admin logged in", status.Email, nil)
	writeJSON(w, http.StatusOK, status)
}

// Logout handles POST /admin/api/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	email := ""
	if s, ok := h.session.(sessionEmail); ok {
		email = s.Email(r.Context())
	}

	if err := h.guard.Logout(r.Context(), h.session); err != nil {
		h.logger.Error("failed to end session", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}

	logEvent(h.events, h.logger, r, model.EventLevelInfo, model.EventCategoryAuth, "Admin logged out", email, nil)
	writeJSON(w, http.StatusOK, auth.Status{State: auth.StateNeedsLogin})
}

// RequestPasswordReset handles POST /admin/api/password-reset. The response
// is the same whether or not the account exists.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.guard.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, auth.ErrInvalidEmail) {
			writeJSONError(w, http.StatusBadRequest, auth.PublicMessage(err))
			return
		}
		h.logger.Error("password reset request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, auth.PublicMessage(err))
		return
	}

	logEvent(h.events, h.logger, r, model.EventLevelInfo, model.EventCategoryAuth,
		"Password reset requested", req.Email, nil)
	writeJSONSuccess(w, map[string]any{"message": resetRequestedMessage})
}

// ConfirmPasswordReset handles POST /admin/api/password-reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.guard.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		var policyErr *auth.PolicyError
		switch {
		case errors.Is(err, auth.ErrInvalidResetToken), errors.Is(err, auth.ErrResetUnsupported), errors.As(err, &policyErr):
			writeJSONError(w, http.StatusBadRequest, auth.PublicMessage(err))
		default:
			h.logger.Error("password reset failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, auth.PublicMessage(err))
		}
		return
	}

	logEvent(h.events, h.logger, r, model.EventLevelInfo, model.EventCategoryAuth, "Password reset completed", "", nil)
	writeJSONSuccess(w, map[string]any{"message": "Your password has been updated. Please log in."})
}

// PasswordPolicy handles POST /admin/api/password-policy, validating a
// candidate password. A GET returns the rules only.
func (h *AuthHandler) PasswordPolicy(w http.ResponseWriter, r *http.Request) {
	p := h.guard.Policy()
	rules := policyRules{
		MinLength:     p.MinLength,
		MaxLength:     p.MaxLength,
		RequireUpper:  p.RequireUpper,
		RequireLower:  p.RequireLower,
		RequireDigit:  p.RequireDigit,
		RequireSymbol: p.RequireSymbol,
	}
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
		return
	}

	var req policyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	v := p.Validate(req.Password)
	if v.Errors == nil {
		v.Errors = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"isValid": v.IsValid,
		"errors":  v.Errors,
		"rules":   rules,
	})
}

// writeAuthError writes the public message for err together with the state
// the caller is left in.
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, status auth.Status, err error) {
	code := http.StatusInternalServerError
	var policyErr *auth.PolicyError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrRateLimited):
		code = http.StatusUnauthorized
	case errors.Is(err, auth.ErrNoAdmin), errors.Is(err, auth.ErrBootstrapClosed):
		code = http.StatusConflict
	case errors.Is(err, auth.ErrPasswordMismatch), errors.Is(err, auth.ErrInvalidEmail), errors.As(err, &policyErr):
		code = http.StatusBadRequest
	default:
		h.logger.Error("authentication error", "error", err)
	}

	body := map[string]any{
		"success": false,
		"error":   auth.PublicMessage(err),
		"state":   status.State,
	}
	if policyErr != nil {
		body["errors"] = policyErr.Errors
	}
	writeJSON(w, code, body)
}
