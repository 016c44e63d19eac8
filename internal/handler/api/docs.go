package api

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
)

//go:embed docs.html
var embeddedDocs embed.FS

// DocsHandler handles API documentation rendering.
type DocsHandler struct {
	siteName   string
	template   *template.Template
	templateFS fs.FS
	mu         sync.RWMutex
	isDev      bool
}

// DocsConfig holds configuration for the docs handler.
type DocsConfig struct {
	SiteName string
	// TemplateFS overrides the embedded template. It must contain docs.html.
	TemplateFS fs.FS
	IsDev      bool
}

// NewDocsHandler creates a new documentation handler.
func NewDocsHandler(cfg DocsConfig) (*DocsHandler, error) {
	if cfg.TemplateFS == nil {
		cfg.TemplateFS = embeddedDocs
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "Siteworks"
	}
	h := &DocsHandler{
		siteName:   cfg.SiteName,
		templateFS: cfg.TemplateFS,
		isDev:      cfg.IsDev,
	}

	if err := h.parseTemplate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *DocsHandler) parseTemplate() error {
	tmpl, err := template.ParseFS(h.templateFS, "docs.html")
	if err != nil {
		return err
	}
	h.template = tmpl
	return nil
}

type docsData struct {
	SiteName string
	BaseURL  string
}

// ServeDocs serves the API documentation page.
func (h *DocsHandler) ServeDocs(w http.ResponseWriter, r *http.Request) {
	// Reparse on each request in development for hot reload.
	if h.isDev {
		h.mu.Lock()
		if err := h.parseTemplate(); err != nil {
			h.mu.Unlock()
			http.Error(w, "Failed to parse template: "+err.Error(), http.StatusInternalServerError)
			return
		}
		h.mu.Unlock()
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwdProto := r.Header.Get("X-Forwarded-Proto"); fwdProto != "" {
		scheme = fwdProto
	}

	h.mu.RLock()
	tmpl := h.template
	h.mu.RUnlock()

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, docsData{SiteName: h.siteName, BaseURL: scheme + "://" + r.Host}); err != nil {
		http.Error(w, "Failed to render template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = buf.WriteTo(w)
}
