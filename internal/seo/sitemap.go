// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds sitemap, sitemap index and robots.txt documents.
package seo

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// XMLNamespace is the sitemap XML namespace.
const XMLNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// DateFormat is the layout used for <lastmod> values.
const DateFormat = "2006-01-02"

// ChangeFreq represents the change frequency of a URL.
type ChangeFreq string

// Valid change frequency values.
const (
	ChangeFreqAlways  ChangeFreq = "always"
	ChangeFreqHourly  ChangeFreq = "hourly"
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
	ChangeFreqYearly  ChangeFreq = "yearly"
	ChangeFreqNever   ChangeFreq = "never"
)

// Sentinel errors returned when an entry cannot be added to a sitemap.
var (
	ErrEmptyLocation     = errors.New("sitemap entry has no location")
	ErrInvalidChangeFreq = errors.New("invalid change frequency")
	ErrInvalidPriority   = errors.New("priority must be between 0.0 and 1.0")
)

// Valid reports whether f is one of the protocol's change frequencies.
// The empty value is valid and means "not assigned".
func (f ChangeFreq) Valid() bool {
	switch f {
	case "", ChangeFreqAlways, ChangeFreqHourly, ChangeFreqDaily, ChangeFreqWeekly,
		ChangeFreqMonthly, ChangeFreqYearly, ChangeFreqNever:
		return true
	}
	return false
}

// ParseChangeFreq converts a case-insensitive string into a ChangeFreq.
func ParseChangeFreq(s string) (ChangeFreq, error) {
	f := ChangeFreq(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidChangeFreq, s)
	}
	return f, nil
}

// Priority returns a pointer to p for use in Entry literals.
func Priority(p float64) *float64 {
	return &p
}

// FormatDate renders t as a sitemap date in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// Entry is a single URL to be written to a sitemap. Optional fields are
// omitted from the document when nil or empty.
type Entry struct {
	Location        string
	LastModified    *time.Time
	ChangeFrequency ChangeFreq
	Priority        *float64
}

// SitemapURL represents a single URL entry in the sitemap.
type SitemapURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
}

// Sitemap represents the complete sitemap document.
type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapBuilder accumulates entries in insertion order and renders a <urlset>.
type SitemapBuilder struct {
	siteURL string
	urls    []SitemapURL
}

// NewSitemapBuilder creates a new sitemap builder. Paths added with AddPath
// are resolved against siteURL.
func NewSitemapBuilder(siteURL string) *SitemapBuilder {
	return &SitemapBuilder{
		siteURL: strings.TrimSuffix(siteURL, "/"),
		urls:    make([]SitemapURL, 0),
	}
}

// SiteURL returns the normalized base URL of the builder.
func (b *SitemapBuilder) SiteURL() string {
	return b.siteURL
}

// Len returns the number of entries added so far.
func (b *SitemapBuilder) Len() int {
	return len(b.urls)
}

// Add validates e and appends it to the sitemap.
func (b *SitemapBuilder) Add(e Entry) error {
	if e.Location == "" {
		return ErrEmptyLocation
	}
	if !e.ChangeFrequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidChangeFreq, e.ChangeFrequency)
	}

	url := SitemapURL{
		Loc:        e.Location,
		ChangeFreq: e.ChangeFrequency,
	}
	if e.Priority != nil {
		p := *e.Priority
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidPriority, p)
		}
		url.Priority = strconv.FormatFloat(p, 'f', 1, 64)
	}
	if e.LastModified != nil && !e.LastModified.IsZero() {
		url.LastMod = FormatDate(*e.LastModified)
	}

	b.urls = append(b.urls, url)
	return nil
}

// AddPath adds an entry whose location is the site URL joined with path.
func (b *SitemapBuilder) AddPath(path string, lastMod *time.Time, freq ChangeFreq, priority *float64) error {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return b.Add(Entry{
		Location:        b.siteURL + path,
		LastModified:    lastMod,
		ChangeFrequency: freq,
		Priority:        priority,
	})
}

// Build generates the sitemap XML.
func (b *SitemapBuilder) Build() ([]byte, error) {
	sitemap := Sitemap{
		XMLNS: XMLNamespace,
		URLs:  b.urls,
	}

	output := []byte(xml.Header)
	xmlBytes, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(output, xmlBytes...), nil
}
