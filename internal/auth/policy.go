// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PasswordPolicy lists the rules a new admin password must satisfy.
type PasswordPolicy struct {
	MinLength     int
	MaxLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPasswordPolicy returns the policy used for admin accounts.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:     12,
		MaxLength:     128,
		RequireUpper:  true,
		RequireLower:  true,
		RequireDigit:  true,
		RequireSymbol: true,
	}
}

// Validation is the outcome of checking a password against a policy.
// IsValid is true exactly when Errors is empty.
type Validation struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// Validate checks password against every rule and reports all failures.
func (p PasswordPolicy) Validate(password string) Validation {
	errs := make([]string, 0)

	n := utf8.RuneCountInString(password)
	if p.MinLength > 0 && n < p.MinLength {
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters long", p.MinLength))
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		errs = append(errs, fmt.Sprintf("Password must be at most %d characters long", p.MaxLength))
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if p.RequireUpper && !upper {
		errs = append(errs, "Password must contain an uppercase letter")
	}
	if p.RequireLower && !lower {
		errs = append(errs, "Password must contain a lowercase letter")
	}
	if p.RequireDigit && !digit {
		errs = append(errs, "Password must contain a number")
	}
	if p.RequireSymbol && !symbol {
		errs = append(errs, "Password must contain a special character")
	}

	return Validation{IsValid: len(errs) == 0, Errors: errs}
}

// PolicyError is returned when a password fails the policy.
type PolicyError struct {
	Errors []string
}

func (e *PolicyError) Error() string {
	return "password does not meet requirements: " + strings.Join(e.Errors, "; ")
}
