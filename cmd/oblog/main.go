// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
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

	"github.com/joho/godotenv"

	"github.com/olegiv/oblog/internal/activity"
	"github.com/olegiv/oblog/internal/analytics"
	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/config"
	"github.com/olegiv/oblog/internal/geoip"
	"github.com/olegiv/oblog/internal/handler"
	"github.com/olegiv/oblog/internal/hooks"
	"github.com/olegiv/oblog/internal/logging"
	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/scheduler"
	"github.com/olegiv/oblog/internal/session"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "oBlog - blog backend with analytics and audit trail\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_SESSION_SECRET        Session and CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_DB_PATH               SQLite database path (default: ./data/oblog.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_DB_DRIVER             sqlite (pure Go) or sqlite3 (cgo) (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_SERVER_PORT           Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_ENV                   development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_LOG_LEVEL             debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_LOG_FORMAT            text|json (default: text)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_REDIS_URL             Redis URL for the dashboard cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_DASHBOARD_CACHE_TTL   Dashboard cache TTL in seconds, 0 disables\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OBLOG_GEOIP_DB_PATH         GeoLite2-Country.mmdb path (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		v := version.Current()
		_, _ = fmt.Printf("oblog %s (built: %s)\n", v, v.BuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	m := metrics.New()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat, m)
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	logger.Info("initializing database", "path", cfg.DBPath, "driver", cfg.DBDriver)
	dbCfg := store.DefaultDBConfig()
	dbCfg.Driver = cfg.DBDriver
	db, err := store.NewDBWithConfig(cfg.DBPath, dbCfg)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}()

	logger.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db, store.SeedConfig{
			AdminEmail:    cfg.AdminEmail,
			AdminPassword: cfg.AdminPassword,
			SamplePosts:   cfg.IsDevelopment(),
		}); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}
	logger.Info("database ready")

	queries := store.New(db)
	reg := hooks.NewRegistry(logger)
	activity.Subscribe(reg, activity.NewLogger(queries, logger, m))

	reporterOpts := []analytics.ReporterOption{analytics.WithMetrics(m)}

	if ttl := cfg.DashboardCacheDuration(); ttl > 0 {
		cacheCfg := cache.Config{Type: "memory", Prefix: cfg.CachePrefix, DefaultTTL: ttl}
		if cfg.UseRedisCache() {
			cacheCfg.Type = "redis"
			cacheCfg.RedisURL = cfg.RedisURL
		}
		c, err := cache.New(cacheCfg)
		if err != nil {
			return fmt.Errorf("initializing dashboard cache: %w", err)
		}
		defer func() { _ = c.Close() }()
		reporterOpts = append(reporterOpts, analytics.WithDashboardCache(c, ttl))
		logger.Info("dashboard cache enabled", "backend", cacheCfg.Type, "ttl", ttl)
	}

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn("GeoIP disabled", "error", err)
	}
	if geo != nil {
		defer func() { _ = geo.Close() }()
		reporterOpts = append(reporterOpts, analytics.WithCountryResolver(geo))
		logger.Info("GeoIP lookups enabled", "path", cfg.GeoIPDBPath)
	}

	reporter := analytics.NewReporter(queries, reporterOpts...)
	reporter.InvalidateOnMutation(reg)

	jobs := scheduler.New(logger)
	if err := jobs.Add("db_optimize", "@hourly", func(ctx context.Context) error {
		return store.Optimize(ctx, db)
	}); err != nil {
		return err
	}
	if cfg.DashboardCacheDuration() > 0 {
		if err := jobs.Add("dashboard_warmup", "@every 5m", func(ctx context.Context) error {
			_, err := reporter.Dashboard(ctx, analytics.DateRange{})
			return err
		}); err != nil {
			return err
		}
	}
	jobs.Start()
	defer jobs.Stop()

	sessionManager := session.New(db, cfg.IsDevelopment())

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Stop()

	router := handler.NewRouter(handler.RouterConfig{
		DB:              db,
		Logger:          logger,
		Metrics:         m,
		Hooks:           reg,
		Sessions:        sessionManager,
		LoginProtection: loginProtection,
		TrackLimiter:    middleware.NewIPRateLimiter("track", cfg.TrackRateLimit, cfg.TrackBurst),
		Tracker:         analytics.NewTracker(queries, logger, m),
		Reporter:        reporter,
		Activity:        activity.NewReporter(queries),
		CSRF:            middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment()),
		Security:        middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment()),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", version.Current().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
