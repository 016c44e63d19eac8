// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewSitemapBuilder(t *testing.T) {
	builder := NewSitemapBuilder("https://example.com/")
	if builder == nil {
		t.Fatal("NewSitemapBuilder() returned nil")
	}
	if builder.siteURL != "https://example.com" {
		t.Errorf("siteURL = %q, want %q", builder.siteURL, "https://example.com")
	}
	if len(builder.urls) != 0 {
		t.Errorf("urls length = %d, want 0", len(builder.urls))
	}
}

func TestSitemapBuilderAddPath(t *testing.T) {
	builder := NewSitemapBuilder("https://example.com")
	updated := time.Date(2025, 1, 15, 22, 30, 0, 0, time.UTC)

	if err := builder.AddPath("/blog/hello", &updated, ChangeFreqWeekly, Priority(0.7)); err != nil {
		t.Fatalf("AddPath() error = %v", err)
	}

	if len(builder.urls) != 1 {
		t.Fatalf("urls length = %d, want 1", len(builder.urls))
	}
	url := builder.urls[0]
	if url.Loc != "https://example.com/blog/hello" {
		t.Errorf("Loc = %q, want %q", url.Loc, "https://example.com/blog/hello")
	}
	if url.LastMod != "2025-01-15" {
		t.Errorf("LastMod = %q, want %q", url.LastMod, "2025-01-15")
	}
	if url.ChangeFreq != ChangeFreqWeekly {
		t.Errorf("ChangeFreq = %q, want %q", url.ChangeFreq, ChangeFreqWeekly)
	}
	if url.Priority != "0.7" {
		t.Errorf("Priority = %q, want %q", url.Priority, "0.7")
	}
}

func TestSitemapBuilderAddPathWithoutSlash(t *testing.T) {
	builder := NewSitemapBuilder("https://example.com")
	if err := builder.AddPath("about", nil, "", nil); err != nil {
		t.Fatalf("AddPath() error = %v", err)
	}
	if builder.urls[0].Loc != "https://example.com/about" {
		t.Errorf("Loc = %q", builder.urls[0].Loc)
	}
}

func TestSitemapBuilderOptionalFields(t *testing.T) {
	builder := NewSitemapBuilder("https://example.com")
	if err := builder.Add(Entry{Location: "https://example.com/contact"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	out, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	doc := string(out)

	if !strings.Contains(doc, "<loc>https://example.com/contact</loc>") {
		t.Error("Build() should contain loc")
	}
	for _, tag := range []string{"<lastmod>", "<changefreq>", "<priority>"} {
		if strings.Contains(doc, tag) {
			t.Errorf("Build() should omit %s when unset", tag)
		}
	}
}

func TestSitemapBuilderPriorityFormatting(t *testing.T) {
	tests := []struct {
		priority float64
		want     string
	}{
		{1, "1.0"},
		{0, "0.0"},
		{0.5, "0.5"},
		{0.76, "0.8"},
		{0.64, "0.6"},
	}

	for _, tt := range tests {
		builder := NewSitemapBuilder("https://example.com")
		if err := builder.AddPath("/", nil, "", Priority(tt.priority)); err != nil {
			t.Fatalf("AddPath(%v) error = %v", tt.priority, err)
		}
		if got := builder.urls[0].Priority; got != tt.want {
			t.Errorf("Priority(%v) = %q, want %q", tt.priority, got, tt.want)
		}
	}
}

func TestSitemapBuilderRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  error
	}{
		{"empty location", Entry{}, ErrEmptyLocation},
		{"priority above one", Entry{Location: "https://x", Priority: Priority(1.5)}, ErrInvalidPriority},
		{"negative priority", Entry{Location: "https://x", Priority: Priority(-0.1)}, ErrInvalidPriority},
		{"unknown change frequency", Entry{Location: "https://x", ChangeFrequency: "sometimes"}, ErrInvalidChangeFreq},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewSitemapBuilder("https://example.com")
			err := builder.Add(tt.entry)
			if !errors.Is(err, tt.want) {
				t.Errorf("Add() error = %v, want %v", err, tt.want)
			}
			if builder.Len() != 0 {
				t.Errorf("Len() = %d, want 0", builder.Len())
			}
		})
	}
}

func TestSitemapBuilderEscapesLocations(t *testing.T) {
	builder := NewSitemapBuilder("https://example.com")
	if err := builder.AddPath("/search?a=1&b=<2>", nil, "", nil); err != nil {
		t.Fatalf("AddPath() error = %v", err)
	}

	out, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(string(out), "a=1&amp;b=&lt;2&gt;") {
		t.Errorf("Build() did not escape location:\n%s", out)
	}

	var parsed Sitemap
	if err := xml.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("output is not well-formed: %v", err)
	}
	if parsed.URLs[0].Loc != "https://example.com/search?a=1&b=<2>" {
		t.Errorf("parsed Loc = %q", parsed.URLs[0].Loc)
	}
}

func TestSitemapBuilderPreservesOrder(t *testing.T) {
	builder := NewSitemapBuilder("https://example.com")
	paths := []string{"/", "/services", "/blog/b", "/blog/a"}
	for _, p := range paths {
		if err := builder.AddPath(p, nil, "", nil); err != nil {
			t.Fatalf("AddPath(%q) error = %v", p, err)
		}
	}

	out, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	var parsed Sitemap
	if err := xml.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(parsed.URLs) != len(paths) {
		t.Fatalf("got %d urls, want %d", len(parsed.URLs), len(paths))
	}
	for i, p := range paths {
		if want := "https://example.com" + p; parsed.URLs[i].Loc != want {
			t.Errorf("URLs[%d].Loc = %q, want %q", i, parsed.URLs[i].Loc, want)
		}
	}
}

func TestSitemapBuilderBuildHeader(t *testing.T) {
	builder := NewSitemapBuilder("https://example.com")
	out, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	doc := string(out)
	if !strings.HasPrefix(doc, "<?xml") {
		t.Error("Build() should start with XML declaration")
	}
	if !strings.Contains(doc, `<urlset xmlns="`+XMLNamespace+`">`) {
		t.Errorf("Build() missing urlset namespace:\n%s", doc)
	}
}

func TestLastModUsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	local := time.Date(2025, 3, 2, 5, 0, 0, 0, loc)

	builder := NewSitemapBuilder("https://example.com")
	if err := builder.AddPath("/", &local, "", nil); err != nil {
		t.Fatal(err)
	}
	if got := builder.urls[0].LastMod; got != "2025-03-01" {
		t.Errorf("LastMod = %q, want %q", got, "2025-03-01")
	}
}

func TestParseChangeFreq(t *testing.T) {
	tests := []struct {
		in      string
		want    ChangeFreq
		wantErr bool
	}{
		{"weekly", ChangeFreqWeekly, false},
		{" Monthly ", ChangeFreqMonthly, false},
		{"", "", false},
		{"fortnightly", "", true},
	}

	for _, tt := range tests {
		got, err := ParseChangeFreq(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseChangeFreq(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseChangeFreq(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
