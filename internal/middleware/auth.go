// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication, rate
// limiting and request hardening.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/agencyworks/siteworks/internal/auth"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyAdmin holds the auth.Identity of the signed-in admin.
const ContextKeyAdmin ContextKey = "admin"

// ErrorBody is the JSON error envelope written by middleware.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	State   string `json:"state,omitempty"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, body ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// RequireAdmin re-validates the admin session on every request. Requests
// without a live session, or whose account no longer exists, get 401 with
// the guard state so the client knows whether to show setup or login.
func RequireAdmin(guard *auth.Guard, sess auth.Session, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			status, err := guard.Check(r.Context(), sess)
			if err != nil {
				logger.Error("session check failed", "error", err, "path", r.URL.Path)
				WriteError(w, http.StatusInternalServerError, ErrorBody{Error: "Session check failed"})
				return
			}
			if status.State != auth.StateAuthenticated {
				WriteError(w, http.StatusUnauthorized, ErrorBody{
					Error: "Authentication required",
					State: string(status.State),
				})
				return
			}

			id := auth.Identity{ID: sess.AdminID(r.Context()), Email: status.Email}
			ctx := context.WithValue(r.Context(), ContextKeyAdmin, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdmin returns the admin stored by RequireAdmin.
func GetAdmin(r *http.Request) (auth.Identity, bool) {
	id, ok := r.Context().Value(ContextKeyAdmin).(auth.Identity)
	return id, ok
}
