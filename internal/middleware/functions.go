// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// FunctionKeyAuth requires "Authorization: Bearer <key>" matching the
// configured anonymous key. An empty key rejects every request.
func FunctionKeyAuth(key string) func(http.Handler) http.Handler {
	want := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteError(w, http.StatusUnauthorized, ErrorBody{
					Error:   "Unauthorized",
					Details: "Missing or malformed Authorization header",
				})
				return
			}
			if len(want) == 0 || subtle.ConstantTimeCompare([]byte(token), want) != 1 {
				slog.Warn("function call with invalid key", "path", r.URL.Path, "ip", getClientIP(r))
				WriteError(w, http.StatusUnauthorized, ErrorBody{
					Error:   "Unauthorized",
					Details: "Invalid API key",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
