// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/agencyworks/siteworks/internal/auth"
	"github.com/agencyworks/siteworks/internal/cache"
	"github.com/agencyworks/siteworks/internal/config"
	"github.com/agencyworks/siteworks/internal/handler"
	"github.com/agencyworks/siteworks/internal/handler/api"
	"github.com/agencyworks/siteworks/internal/hosted"
	"github.com/agencyworks/siteworks/internal/logging"
	"github.com/agencyworks/siteworks/internal/middleware"
	"github.com/agencyworks/siteworks/internal/notifier"
	"github.com/agencyworks/siteworks/internal/objectstore"
	"github.com/agencyworks/siteworks/internal/scheduler"
	"github.com/agencyworks/siteworks/internal/seo"
	"github.com/agencyworks/siteworks/internal/service"
	"github.com/agencyworks/siteworks/internal/session"
	"github.com/agencyworks/siteworks/internal/sitemap"
	"github.com/agencyworks/siteworks/internal/store"
	"github.com/agencyworks/siteworks/internal/version"
	"github.com/agencyworks/siteworks/internal/webhook"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// Login attempts and function calls are limited per client IP on top of
// the per-account lockout.
const (
	loginRateLimit     = 0.5
	loginRateBurst     = 10
	functionsRateLimit = 2
	functionsRateBurst = 20
	requestTimeout     = 60 * time.Second
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Siteworks - agency site backend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEWORKS_SESSION_SECRET       Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEWORKS_DB_PATH              SQLite database path (default: ./data/siteworks.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEWORKS_SERVER_PORT          Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEWORKS_ENV                  Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEWORKS_BASE_URL             Public site origin\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEWORKS_BACKEND              local|supabase (default: local)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEWORKS_FUNCTIONS_ANON_KEY   Bearer key for /functions/v1\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEWORKS_REDIS_URL            Redis URL for shared login attempt counters (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEWORKS_SITEMAP_SCHEDULE     Cron expression for sitemap regeneration (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("siteworks %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := &version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	queries := store.New(db)
	events := service.NewEventService(db)
	var mailer service.Mailer = service.NewLogMailer(logger)
	if cfg.UseMailWebhook() {
		dispatcher := webhook.NewDispatcher(webhook.Config{
			Targets: []webhook.Target{{
				URL:    cfg.MailWebhookURL,
				Secret: cfg.MailWebhookSecret,
				Events: []string{webhook.EventMailSend},
			}},
			BlockPrivateNetworks: !cfg.IsDevelopment(),
		}, events, logger)
		dispatcher.Start(ctx)
		defer dispatcher.Stop()
		mailer = webhook.NewMailer(dispatcher)
		slog.Info("outgoing mail delivered through webhook", "url", cfg.MailWebhookURL)
	}

	// Backend: accounts, content and object storage
	var (
		backend      auth.Backend
		contentStore service.ContentStore
		objects      objectstore.Store
	)
	if cfg.UseSupabase() {
		client, err := hosted.New(hosted.Config{URL: cfg.SupabaseURL, Key: cfg.SupabaseKey})
		if err != nil {
			return fmt.Errorf("initializing supabase client: %w", err)
		}
		backend = hosted.NewAuthenticator(client, logger)
		contentStore = hosted.NewContent(client)
		objects = hosted.NewObjectStore(client, cfg.StorageBucket)
		slog.Info("backend initialized", "backend", config.BackendSupabase, "url", cfg.SupabaseURL)
	} else {
		backend = auth.NewLocalBackend(queries, service.ResetMailer{Mailer: mailer}, logger, auth.LocalConfig{
			ResetURL: cfg.BaseURL + "/admin/reset-password",
		})
		contentStore = queries
		local, err := objectstore.NewLocalStore(cfg.StorageDir, cfg.StorageBucket, cfg.BaseURL+"/storage/"+cfg.StorageBucket)
		if err != nil {
			return fmt.Errorf("initializing object store: %w", err)
		}
		objects = local
		slog.Info("backend initialized", "backend", config.BackendLocal, "storage", cfg.StorageDir)
	}

	if cfg.UseCache() {
		var documentCache cache.Cache
		if cfg.UseRedis() {
			redisCache, err := cache.NewRedisCache(ctx, cache.RedisOptions{
				URL:        cfg.RedisURL,
				Prefix:     cfg.CachePrefix,
				DefaultTTL: cfg.CacheTTL,
			})
			if err != nil {
				slog.Warn("redis unavailable, caching sitemaps in memory", "error", err)
			} else {
				documentCache = redisCache
			}
		}
		if documentCache == nil {
			documentCache = cache.NewMemoryCache(cache.MemoryOptions{
				DefaultTTL:      cfg.CacheTTL,
				MaxItems:        cfg.CacheMaxItems,
				CleanupInterval: time.Minute,
			})
		}
		defer func() { _ = documentCache.Close() }()
		objects = cache.NewCachedStore(objects, documentCache, cfg.CacheTTL, logger)
		slog.Info("object cache enabled", "ttl", cfg.CacheTTL)
	}

	if cfg.UsePostgres() {
		pg, err := store.OpenPostgres(ctx, cfg.PostgresDSN, store.DefaultDBConfig())
		if err != nil {
			return fmt.Errorf("connecting to content database: %w", err)
		}
		defer func() { _ = pg.Close() }()
		contentStore = store.NewPostgres(pg)
		slog.Info("content database connected", "driver", "pgx")
	}

	// Login attempt counters
	var attempts auth.AttemptStore
	if cfg.UseRedis() {
		redisAttempts, err := auth.NewRedisAttemptStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			slog.Warn("redis unavailable, using database for login attempts", "error", err)
			attempts = auth.NewSQLAttemptStore(queries)
		} else {
			defer func() { _ = redisAttempts.Close() }()
			attempts = redisAttempts
			slog.Info("login attempts shared through redis")
		}
	} else {
		attempts = auth.NewSQLAttemptStore(queries)
	}

	policy := auth.DefaultPasswordPolicy()
	policy.MinLength = cfg.PasswordMinLength
	throttle := auth.NewThrottle(attempts, auth.DefaultMaxAttempts, auth.DefaultAttemptWindow)
	guard := auth.NewGuard(backend, throttle, logger, auth.GuardConfig{Policy: policy})

	sessionManager := session.New(db, cfg.IsDevelopment())
	adminSession := session.NewAdmin(sessionManager)
	slog.Info("session manager initialized")

	content := service.NewContentService(contentStore, logger)
	contacts := service.NewContactService(queries, mailer, cfg.ContactNotifyEmail, logger)

	generator := sitemap.NewGenerator(content, objects, logger, sitemap.Config{DefaultBaseURL: cfg.BaseURL})
	pinger := notifier.New(notifier.Config{
		Timeout:              cfg.PingTimeout,
		BlockPrivateNetworks: true,
	}, logger)

	sched := scheduler.New(generator, pinger, events, scheduler.Config{
		SitemapSchedule:     cfg.SitemapSchedule,
		PingAfterRegenerate: cfg.PingOnSchedule,
		EventRetention:      cfg.EventRetention,
		Attempts:            throttle,
	}, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Handlers
	functionsHandler := handler.NewFunctionsHandler(generator, pinger, contacts, events, logger)
	authHandler := handler.NewAuthHandler(guard, adminSession, events, logger)
	sitemapHandler := handler.NewSitemapHandler(generator, pinger, seo.RobotsConfig{SiteURL: cfg.BaseURL}, events, logger)
	eventsHandler := handler.NewEventsHandler(events, contacts, logger)
	jobsHandler := handler.NewJobsHandler(sched.Registry(), events, logger)
	healthHandler := handler.NewHealthHandler(handler.HealthConfig{
		DB:      db,
		Store:   objects,
		Guard:   guard,
		Session: adminSession,
		DataDir: dataDir,
		Version: versionInfo,
	})
	apiHandler := api.NewHandler(content, events, logger)
	docsHandler, err := api.NewDocsHandler(api.DocsConfig{IsDev: cfg.IsDevelopment()})
	if err != nil {
		return fmt.Errorf("initializing api docs: %w", err)
	}

	loginLimiter := middleware.NewIPRateLimiter("login", loginRateLimit, loginRateBurst)
	functionsLimiter := middleware.NewIPRateLimiter("functions", functionsRateLimit, functionsRateBurst)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))

	// Health checks; the session is loaded so signed-in admins see details
	r.Group(func(r chi.Router) {
		r.Use(sessionManager.LoadAndSave)
		r.Get("/health", healthHandler.Health)
		r.Get("/health/live", healthHandler.Liveness)
		r.Get("/health/ready", healthHandler.Readiness)
	})

	// Public documents
	r.Get("/robots.txt", sitemapHandler.Robots)
	r.Group(func(r chi.Router) {
		r.Use(middleware.CompressOnRequest("compress"))
		r.Get("/"+sitemap.KeySite, sitemapHandler.Document(sitemap.KindSite))
		r.Get("/"+sitemap.KeyBlog, sitemapHandler.Document(sitemap.KindBlog))
		r.Get("/"+sitemap.KeyIndex, sitemapHandler.Document(sitemap.KindIndex))
	})
	if !cfg.UseSupabase() {
		storageFS := http.Dir(cfg.StorageDir)
		r.Handle("/storage/*", http.StripPrefix("/storage/", http.FileServer(storageFS)))
	}

	// Edge functions called by the public site
	r.Route("/functions/v1", func(r chi.Router) {
		r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.FunctionsAllowedOrigins}))
		r.Use(functionsLimiter.Middleware())
		r.Use(middleware.FunctionKeyAuth(cfg.FunctionsAnonKey))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CompressOnRequest("compress"))
			r.Get("/generate-sitemap", functionsHandler.GenerateSitemap)
			r.Get("/generate-blog-sitemap", functionsHandler.GenerateBlogSitemap)
			r.Get("/generate-sitemap-index", functionsHandler.GenerateSitemapIndex)
		})
		r.Post("/ping-search-engines", functionsHandler.PingSearchEngines)
		r.Post("/send-contact-email", functionsHandler.SendContactEmail)
	})

	// Public content API
	r.Get("/api/docs", docsHandler.ServeDocs)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", apiHandler.Status)
		r.Get("/posts", apiHandler.ListPosts)
		r.Get("/posts/{slug}", apiHandler.GetPostBySlug)
		r.Get("/projects", apiHandler.ListProjects)
		r.Get("/projects/{slug}", apiHandler.GetProjectBySlug)
	})

	// Admin API
	r.Route("/admin/api", func(r chi.Router) {
		r.Use(sessionManager.LoadAndSave)
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.BaseURL, cfg.IsDevelopment())))

		r.Get("/session", authHandler.Session)
		r.Post("/password-policy", authHandler.PasswordPolicy)
		r.Group(func(r chi.Router) {
			r.Use(loginLimiter.Middleware(http.MethodPost))
			r.Post("/setup", authHandler.Setup)
			r.Post("/login", authHandler.Login)
			r.Post("/password-reset", authHandler.RequestPasswordReset)
			r.Post("/password-reset/confirm", authHandler.ConfirmPasswordReset)
		})
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(guard, adminSession, logger))

			r.Get("/posts", apiHandler.AdminListPosts)
			r.Post("/posts", apiHandler.CreatePost)
			r.Get("/posts/{id}", apiHandler.AdminGetPost)
			r.Put("/posts/{id}", apiHandler.UpdatePost)
			r.Delete("/posts/{id}", apiHandler.DeletePost)

			r.Post("/projects", apiHandler.CreateProject)
			r.Put("/projects/{id}", apiHandler.UpdateProject)
			r.Delete("/projects/{id}", apiHandler.DeleteProject)

			r.Get("/sitemaps", sitemapHandler.History)
			r.Post("/sitemaps/ping", sitemapHandler.Ping)
			r.Post("/sitemaps/{kind}", sitemapHandler.Regenerate)

			r.Get("/events", eventsHandler.List)
			r.Get("/contacts", eventsHandler.Contacts)

			r.Get("/jobs", jobsHandler.List)
			r.Put("/jobs/{name}", jobsHandler.UpdateSchedule)
			r.Post("/jobs/{name}/run", jobsHandler.Run)
		})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      90 * time.Second, // Sitemap regeneration can take a while
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
