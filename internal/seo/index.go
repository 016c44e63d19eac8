// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"encoding/xml"
	"time"
)

// IndexRef is a <sitemap> element of a sitemap index.
type IndexRef struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Index represents a <sitemapindex> document.
type Index struct {
	XMLName  xml.Name   `xml:"sitemapindex"`
	XMLNS    string     `xml:"xmlns,attr"`
	Sitemaps []IndexRef `xml:"sitemap"`
}

// IndexBuilder builds a sitemap index from sitemap URLs.
type IndexBuilder struct {
	refs []IndexRef
}

// NewIndexBuilder creates an empty index builder.
func NewIndexBuilder() *IndexBuilder {
	return &IndexBuilder{refs: make([]IndexRef, 0, 2)}
}

// Add appends a sitemap reference. A zero lastMod omits <lastmod>.
func (b *IndexBuilder) Add(loc string, lastMod time.Time) error {
	if loc == "" {
		return ErrEmptyLocation
	}
	ref := IndexRef{Loc: loc}
	if !lastMod.IsZero() {
		ref.LastMod = FormatDate(lastMod)
	}
	b.refs = append(b.refs, ref)
	return nil
}

// Len returns the number of referenced sitemaps.
func (b *IndexBuilder) Len() int {
	return len(b.refs)
}

// Build generates the sitemap index XML.
func (b *IndexBuilder) Build() ([]byte, error) {
	index := Index{
		XMLNS:    XMLNamespace,
		Sitemaps: b.refs,
	}

	output := []byte(xml.Header)
	xmlBytes, err := xml.MarshalIndent(index, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(output, xmlBytes...), nil
}
