// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package notifier tells search engines that a sitemap has changed.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agencyworks/siteworks/internal/util"
)

// Request defaults.
const (
	DefaultTimeout = 10 * time.Second
	UserAgent      = "siteworks-sitemap-notifier/1.0"
	maxDrainLen    = 4 * 1024
)

// DefaultEngines are pinged when a request names none.
var DefaultEngines = []string{"google", "bing"}

// DefaultEndpoints maps engine names to their ping endpoint. The sitemap URL
// is appended as the "sitemap" query parameter.
var DefaultEndpoints = map[string]string{
	"google": "https://www.google.com/ping",
	"bing":   "https://www.bing.com/ping",
}

// ErrMissingSitemapURL is returned when no sitemap URL is given.
var ErrMissingSitemapURL = errors.New("sitemapUrl is required")

// EngineResult is the outcome of pinging one engine.
type EngineResult struct {
	Success    bool   `json:"success"`
	Status     int    `json:"status,omitempty"`
	StatusText string `json:"statusText,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Result aggregates the outcome of a notification run.
type Result struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Results map[string]EngineResult `json:"results"`
}

// Config configures a Notifier.
type Config struct {
	// Endpoints overrides DefaultEndpoints.
	Endpoints map[string]string
	// Timeout bounds each engine request. Zero means DefaultTimeout.
	Timeout time.Duration
	// Client overrides the HTTP client.
	Client *http.Client
	// BlockPrivateNetworks refuses connections to private and reserved
	// addresses. Ignored when Client is set.
	BlockPrivateNetworks bool
}

// Notifier pings search engines one at a time.
type Notifier struct {
	endpoints map[string]string
	timeout   time.Duration
	client    *http.Client
	logger    *slog.Logger
}

// New creates a Notifier.
func New(cfg Config, logger *slog.Logger) *Notifier {
	if cfg.Endpoints == nil {
		cfg.Endpoints = DefaultEndpoints
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Client == nil {
		transport := &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		}
		if cfg.BlockPrivateNetworks {
			transport.DialContext = util.SSRFSafeDialContext(&net.Dialer{Timeout: 5 * time.Second})
		}
		cfg.Client = &http.Client{Transport: transport}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		endpoints: cfg.Endpoints,
		timeout:   cfg.Timeout,
		client:    cfg.Client,
		logger:    logger,
	}
}

// Ping notifies each engine about sitemapURL. Engines are contacted
// sequentially and a failure on one never stops the others. An empty engines
// list means DefaultEngines.
func (n *Notifier) Ping(ctx context.Context, sitemapURL string, engines []string) (*Result, error) {
	sitemapURL = strings.TrimSpace(sitemapURL)
	if sitemapURL == "" {
		return nil, ErrMissingSitemapURL
	}
	if len(engines) == 0 {
		engines = DefaultEngines
	}

	res := &Result{
		Success: true,
		Results: make(map[string]EngineResult, len(engines)),
	}
	ok := 0
	for _, raw := range engines {
		engine := strings.ToLower(strings.TrimSpace(raw))
		if _, done := res.Results[engine]; done {
			continue
		}
		r := n.pingEngine(ctx, engine, sitemapURL)
		res.Results[engine] = r
		if r.Success {
			ok++
		} else {
			res.Success = false
		}
	}

	if res.Success {
		res.Message = "Sitemap submitted to all search engines"
	} else {
		res.Message = fmt.Sprintf("Sitemap submitted to %d of %d search engines", ok, len(res.Results))
	}

	n.logger.Info("search engines notified",
		"sitemap_url", sitemapURL,
		"engines", len(res.Results),
		"succeeded", ok)
	return res, nil
}

func (n *Notifier) pingEngine(ctx context.Context, engine, sitemapURL string) EngineResult {
	endpoint, ok := n.endpoints[engine]
	if !ok {
		return EngineResult{Error: fmt.Sprintf("unsupported search engine: %s", engine)}
	}

	reqCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	pingURL := endpoint + "?sitemap=" + url.QueryEscape(sitemapURL)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pingURL, nil)
	if err != nil {
		return EngineResult{Error: fmt.Sprintf("creating request: %v", err)}
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("search engine ping failed", "engine", engine, "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return EngineResult{Error: fmt.Sprintf("request timed out after %s", n.timeout)}
		}
		return EngineResult{Error: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainLen))

	result := EngineResult{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
	}
	if !result.Success {
		n.logger.Warn("search engine rejected ping", "engine", engine, "status", resp.StatusCode)
	}
	return result
}
