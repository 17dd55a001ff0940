// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/oblog/internal/activity"
	"github.com/olegiv/oblog/internal/analytics"
	"github.com/olegiv/oblog/internal/auth"
	"github.com/olegiv/oblog/internal/hooks"
	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/session"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/testutil"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "correct horse battery staple"
	testUserAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	sessionCookieName = "oblog_session"
)

type testEnv struct {
	db      *sql.DB
	queries *store.Queries
	metrics *metrics.Metrics
	router  http.Handler
	admin   store.User
}

type envConfig struct {
	auditWriter  activity.Writer
	trackLimiter *middleware.IPRateLimiter
	loginConfig  middleware.LoginProtectionConfig
}

type envOption func(*envConfig)

func withAuditWriter(w activity.Writer) envOption {
	return func(c *envConfig) { c.auditWriter = w }
}

func withTrackLimiter(rl *middleware.IPRateLimiter) envOption {
	return func(c *envConfig) { c.trackLimiter = rl }
}

func withLoginConfig(cfg middleware.LoginProtectionConfig) envOption {
	return func(c *envConfig) { c.loginConfig = cfg }
}

// newTestEnv wires the full router over a migrated temp database with one
// admin account.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	q := store.New(db)
	ec := envConfig{
		auditWriter: q,
		loginConfig: middleware.LoginProtectionConfig{IPRateLimit: 100, IPBurst: 100},
	}
	for _, opt := range opts {
		opt(&ec)
	}

	logger := testutil.TestLoggerSilent()
	m := metrics.New()
	reg := hooks.NewRegistry(logger)
	activity.Subscribe(reg, activity.NewLogger(ec.auditWriter, logger, m))

	lp := middleware.NewLoginProtection(ec.loginConfig)
	t.Cleanup(lp.Stop)

	router := NewRouter(RouterConfig{
		DB:              db,
		Logger:          logger,
		Metrics:         m,
		Hooks:           reg,
		Sessions:        session.New(db, true),
		LoginProtection: lp,
		TrackLimiter:    ec.trackLimiter,
		Tracker:         analytics.NewTracker(q, logger, m),
		Reporter:        analytics.NewReporter(q, analytics.WithMetrics(m)),
		Activity:        activity.NewReporter(q),
		CSRF:            middleware.DefaultCSRFConfig([]byte("0123456789abcdef0123456789abcdef"), true),
		Security:        middleware.DefaultSecurityHeadersConfig(true),
	})

	hash, err := auth.HashPassword(testAdminPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin, err := q.CreateUser(context.Background(), store.CreateUserParams{
		Email:        testAdminEmail,
		PasswordHash: hash,
		Role:         middleware.RoleAdmin,
		CreatedAt:    store.FormatTime(time.Now()),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	return &testEnv{db: db, queries: q, metrics: m, router: router, admin: admin}
}

// do sends a request through the router. body may be nil, a raw string or
// a value to encode as JSON.
func (e *testEnv) do(t *testing.T, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", testUserAgent)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// login signs the admin in and returns the session cookie.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/auth/login", LoginInput{
		Email:    testAdminEmail,
		Password: testAdminPassword,
	})
	assertStatus(t, w.Code, http.StatusOK)

	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

// auditEntries returns every audit row, newest first.
func (e *testEnv) auditEntries(t *testing.T) []store.ActivityLog {
	t.Helper()

	rows, err := e.queries.ListActivityLogs(context.Background(), nil, 100, 0)
	if err != nil {
		t.Fatalf("ListActivityLogs: %v", err)
	}
	return rows
}

func (e *testEnv) countEvents(t *testing.T, eventType string) int64 {
	t.Helper()

	n, err := e.queries.CountEventsByType(context.Background(), eventType, store.TimeRange{})
	if err != nil {
		t.Fatalf("CountEventsByType: %v", err)
	}
	return n
}

func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("status = %d; want %d", got, want)
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	decodeBody(t, w, &body)
	return body
}
