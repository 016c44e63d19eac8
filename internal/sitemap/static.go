// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package sitemap

import "github.com/agencyworks/siteworks/internal/seo"

// StaticPage is a fixed marketing page listed in the full-site sitemap.
type StaticPage struct {
	Path       string
	Priority   float64
	ChangeFreq seo.ChangeFreq
}

// DefaultStaticPages is the marketing page catalog, in sitemap order.
var DefaultStaticPages = []StaticPage{
	{Path: "/", Priority: 1.0, ChangeFreq: seo.ChangeFreqWeekly},
	{Path: "/services", Priority: 0.9, ChangeFreq: seo.ChangeFreqMonthly},
	{Path: "/services/web-design", Priority: 0.8, ChangeFreq: seo.ChangeFreqMonthly},
	{Path: "/services/web-development", Priority: 0.8, ChangeFreq: seo.ChangeFreqMonthly},
	{Path: "/services/seo", Priority: 0.8, ChangeFreq: seo.ChangeFreqMonthly},
	{Path: "/services/branding", Priority: 0.8, ChangeFreq: seo.ChangeFreqMonthly},
	{Path: "/portfolio", Priority: 0.8, ChangeFreq: seo.ChangeFreqWeekly},
	{Path: "/case-studies", Priority: 0.8, ChangeFreq: seo.ChangeFreqWeekly},
	{Path: "/blog", Priority: 0.8, ChangeFreq: seo.ChangeFreqDaily},
	{Path: "/about", Priority: 0.7, ChangeFreq: seo.ChangeFreqMonthly},
	{Path: "/pricing", Priority: 0.7, ChangeFreq: seo.ChangeFreqMonthly},
	{Path: "/contact", Priority: 0.7, ChangeFreq: seo.ChangeFreqYearly},
	{Path: "/privacy-policy", Priority: 0.3, ChangeFreq: seo.ChangeFreqYearly},
	{Path: "/terms-of-service", Priority: 0.3, ChangeFreq: seo.ChangeFreqYearly},
}
