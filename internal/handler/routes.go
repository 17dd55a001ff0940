// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/oblog/internal/activity"
	"github.com/olegiv/oblog/internal/analytics"
	"github.com/olegiv/oblog/internal/hooks"
	"github.com/olegiv/oblog/internal/logging"
	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/store"
)

// Route patterns.
const (
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"

	RouteTrack         = "/api/analytics/track"
	RoutePosts         = "/api/posts"
	RouteAuth          = "/api/auth"
	RouteAnalytics     = "/api/analytics"
	RouteAdmin         = "/api/admin"
	RouteParamID       = "/{id}"
	RouteParamSlug     = "/{slug}"
	RouteActivityLog   = "/activity-logs"
	RouteActivityCSV   = "/activity-logs/export.csv"
	RouteActivityStats = "/activity-stats"
)

// RouterConfig holds everything NewRouter wires together.
type RouterConfig struct {
	DB              *sql.DB
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	Hooks           *hooks.Registry
	Sessions        *scs.SessionManager
	LoginProtection *middleware.LoginProtection
	TrackLimiter    *middleware.IPRateLimiter
	Tracker         *analytics.Tracker
	Reporter        *analytics.Reporter
	Activity        *activity.Reporter
	CSRF            middleware.CSRFConfig
	Security        middleware.SecurityHeadersConfig
}

// crudHandlers defines the standard CRUD handler methods.
type crudHandlers struct {
	List   http.HandlerFunc
	Get    http.HandlerFunc
	Create http.HandlerFunc
	Update http.HandlerFunc
	Delete http.HandlerFunc
}

// registerCRUD registers standard CRUD routes for a resource.
// Routes: GET /, POST /, GET /{id}, PUT /{id}, DELETE /{id}
func registerCRUD(r chi.Router, base string, h crudHandlers) {
	r.Get(base, h.List)
	r.Post(base, h.Create)
	r.Get(base+RouteParamID, h.Get)
	r.Put(base+RouteParamID, h.Update)
	r.Delete(base+RouteParamID, h.Delete)
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	analyticsHandler := NewAnalyticsHandler(cfg.Tracker, cfg.Reporter, logger, cfg.Metrics)
	activityHandler := NewActivityHandler(cfg.Activity, logger, cfg.Metrics)
	postsHandler := NewPostsHandler(cfg.DB, cfg.Tracker, cfg.Hooks, logger)
	commentsHandler := NewCommentsHandler(cfg.DB, cfg.Tracker, cfg.Hooks, logger)
	authHandler := NewAuthHandler(cfg.DB, cfg.Sessions, cfg.LoginProtection, cfg.Hooks, logger)
	healthHandler := NewHealthHandler(cfg.DB)

	security := cfg.Security
	security.ExcludePaths = append(security.ExcludePaths, RouteMetrics)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.CleanPath)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.SecurityHeaders(security))
	r.Use(cfg.Sessions.LoadAndSave)
	r.Use(middleware.LoadUser(cfg.Sessions, store.New(cfg.DB)))
	r.Use(middleware.SkipCSRF(RouteTrack))
	r.Use(middleware.CSRF(cfg.CSRF))

	r.Get(RouteHealth, healthHandler.Health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, RouteMetrics, cfg.Metrics.Handler())
	}

	r.Route(RoutePosts, func(r chi.Router) {
		r.Get("/", postsHandler.ListPublished)
		r.Get(RouteParamSlug, postsHandler.GetBySlug)
		r.Get(RouteParamID+"/comments", commentsHandler.ListByPost)
		r.Post(RouteParamID+"/comments", commentsHandler.Create)
	})

	r.Route(RouteAuth, func(r chi.Router) {
		login := http.Handler(http.HandlerFunc(authHandler.Login))
		if cfg.LoginProtection != nil {
			login = cfg.LoginProtection.Middleware(login)
		}
		r.Method(http.MethodPost, "/login", login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/check", authHandler.Check)
	})

	r.Route(RouteAnalytics, func(r chi.Router) {
		track := http.Handler(http.HandlerFunc(analyticsHandler.Track))
		if cfg.TrackLimiter != nil {
			track = cfg.TrackLimiter.Middleware(track)
		}
		r.Method(http.MethodPost, "/track", track)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/dashboard", analyticsHandler.Dashboard)
			r.Get("/post"+RouteParamID, analyticsHandler.PostStats)
			r.Get("/post"+RouteParamID+"/report.pdf", analyticsHandler.PostReportPDF)
			r.Get(RouteActivityLog, activityHandler.List)
			r.Get(RouteActivityStats, activityHandler.Stats)
		})
	})

	r.Route(RouteAdmin, func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get(RouteActivityLog, activityHandler.List)
		r.Get(RouteActivityCSV, activityHandler.ExportCSV)
		r.Get(RouteActivityStats, activityHandler.Stats)

		registerCRUD(r, "/posts", crudHandlers{
			List:   postsHandler.AdminList,
			Get:    postsHandler.AdminGet,
			Create: postsHandler.Create,
			Update: postsHandler.Update,
			Delete: postsHandler.Delete,
		})

		r.Get("/comments", commentsHandler.AdminList)
		r.Delete("/comments"+RouteParamID, commentsHandler.Delete)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	})

	return r
}
