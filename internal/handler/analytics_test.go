// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/oblog/internal/analytics"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/testutil"
)

func TestTrack_StoresEvent(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/analytics/track", map[string]any{
		"eventType":      "video_play",
		"postId":         "12",
		"sessionId":      "s-1",
		"additionalData": map[string]any{"videoId": "abc"},
	})
	assertStatus(t, w.Code, http.StatusOK)

	var resp map[string]bool
	decodeBody(t, w, &resp)
	if !resp["success"] {
		t.Errorf("success = false; body %s", w.Body.String())
	}

	if got := env.countEvents(t, "video_play"); got != 1 {
		t.Errorf("video_play events = %d; want 1", got)
	}
}

func TestTrack_AnonymousWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/analytics/track", `{"eventType":"page_visit"}`)
	assertStatus(t, w.Code, http.StatusOK)

	if got := env.countEvents(t, "page_visit"); got != 1 {
		t.Errorf("page_visit events = %d; want 1", got)
	}
}

func TestTrack_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing event type", `{"postId": 1}`},
		{"blank event type", `{"eventType": "   "}`},
		{"oversized event type", `{"eventType": "` + strings.Repeat("x", 51) + `"}`},
		{"array body", `[1, 2]`},
		{"not json", `eventType=post_view`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(t, http.MethodPost, "/api/analytics/track", tt.body)
			assertStatus(t, w.Code, http.StatusBadRequest)

			if body := decodeError(t, w); body.Error.Code != "bad_request" {
				t.Errorf("error code = %q; want bad_request", body.Error.Code)
			}
		})
	}
}

func TestTrack_RateLimited(t *testing.T) {
	env := newTestEnv(t, withTrackLimiter(middleware.NewIPRateLimiter("track", 0.001, 2)))

	for i := 0; i < 2; i++ {
		w := env.do(t, http.MethodPost, "/api/analytics/track", `{"eventType":"heartbeat"}`)
		assertStatus(t, w.Code, http.StatusOK)
	}

	w := env.do(t, http.MethodPost, "/api/analytics/track", `{"eventType":"heartbeat"}`)
	assertStatus(t, w.Code, http.StatusTooManyRequests)
	if got := env.countEvents(t, "heartbeat"); got != 2 {
		t.Errorf("heartbeat events = %d; want 2", got)
	}
}

func TestAnalyticsRoutes_RequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{
		"/api/analytics/dashboard",
		"/api/analytics/post/1",
		"/api/analytics/post/1/report.pdf",
		"/api/analytics/activity-logs",
		"/api/admin/activity-logs",
		"/api/admin/activity-stats",
		"/api/admin/posts",
	} {
		t.Run(target, func(t *testing.T) {
			w := env.do(t, http.MethodGet, target, nil)
			assertStatus(t, w.Code, http.StatusUnauthorized)
			if body := decodeError(t, w); body.Error.Code != "unauthorized" {
				t.Errorf("error code = %q; want unauthorized", body.Error.Code)
			}
		})
	}
}

func TestDashboard_DefaultWindowIsZeroFilled(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	post := testutil.CreatePost(t, env.db, "Charted", "charted", "https://youtu.be/x")
	testutil.CreateEvent(t, env.db, "post_view", post.ID, time.Now(), "")

	w := env.do(t, http.MethodGet, "/api/analytics/dashboard", nil, cookie)
	assertStatus(t, w.Code, http.StatusOK)

	var d analytics.Dashboard
	decodeBody(t, w, &d)

	if d.TotalVisits != 1 {
		t.Errorf("totalVisits = %d; want 1", d.TotalVisits)
	}
	if len(d.DailyAnalytics) != analytics.DefaultWindowDays {
		t.Fatalf("dailyAnalytics has %d days; want %d", len(d.DailyAnalytics), analytics.DefaultWindowDays)
	}
	var sum int64
	for _, day := range d.DailyAnalytics {
		sum += day.Visits
	}
	if sum != 1 {
		t.Errorf("visits across series = %d; want 1", sum)
	}
	if len(d.MostWatched) != 1 || d.MostWatched[0].PlayCount != 0 {
		t.Errorf("mostWatched = %+v; want the video post with 0 plays", d.MostWatched)
	}
}

func TestDashboard_ExplicitRange(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	post := testutil.CreatePost(t, env.db, "Ranged", "ranged", "")
	testutil.CreateEvent(t, env.db, "post_view", post.ID, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), "")
	testutil.CreateEvent(t, env.db, "post_view", post.ID, time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC), "")

	w := env.do(t, http.MethodGet, "/api/analytics/dashboard?startDate=2026-03-01&endDate=2026-03-07", nil, cookie)
	assertStatus(t, w.Code, http.StatusOK)

	var d analytics.Dashboard
	decodeBody(t, w, &d)

	if d.TotalVisits != 1 {
		t.Errorf("totalVisits = %d; want 1", d.TotalVisits)
	}
	if len(d.DailyAnalytics) != 7 {
		t.Fatalf("dailyAnalytics has %d days; want 7", len(d.DailyAnalytics))
	}
	if d.DailyAnalytics[1].Date != "2026-03-02" || d.DailyAnalytics[1].Visits != 1 {
		t.Errorf("day 2 = %+v; want 2026-03-02 with 1 visit", d.DailyAnalytics[1])
	}
}

func TestDashboard_InvalidRange(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	for _, query := range []string{
		"startDate=2026-03-10&endDate=2026-03-01",
		"startDate=yesterday&endDate=2026-03-01",
		"startDate=2020-01-01&endDate=2026-01-01",
	} {
		t.Run(query, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/analytics/dashboard?"+query, nil, cookie)
			assertStatus(t, w.Code, http.StatusBadRequest)
		})
	}
}

func TestPostStats(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	post := testutil.CreatePost(t, env.db, "Stats", "stats", "")
	testutil.CreateEvent(t, env.db, "post_view", post.ID, time.Now(), "")
	testutil.CreateEvent(t, env.db, "post_view", post.ID, time.Now(), "")

	t.Run("found", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/analytics/post/"+strconv.FormatInt(post.ID, 10), nil, cookie)
		assertStatus(t, w.Code, http.StatusOK)

		var stats analytics.PostStats
		decodeBody(t, w, &stats)
		if stats.TotalViews != 2 {
			t.Errorf("totalViews = %d; want 2", stats.TotalViews)
		}
		if len(stats.HourlyViews) != 24 {
			t.Errorf("hourlyViews has %d buckets; want 24", len(stats.HourlyViews))
		}
		if len(stats.RecentActivity) != 2 {
			t.Errorf("recentActivity has %d events; want 2", len(stats.RecentActivity))
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/analytics/post/abc", nil, cookie)
		assertStatus(t, w.Code, http.StatusBadRequest)
	})

	t.Run("missing post", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/analytics/post/9999", nil, cookie)
		assertStatus(t, w.Code, http.StatusNotFound)
		if body := decodeError(t, w); body.Error.Code != "not_found" {
			t.Errorf("error code = %q; want not_found", body.Error.Code)
		}
	})
}

func TestPostReportPDF(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	post := testutil.CreatePost(t, env.db, "Quarterly Numbers", "quarterly-numbers", "")
	testutil.CreateEvent(t, env.db, "post_view", post.ID, time.Now(), "")

	w := env.do(t, http.MethodGet, "/api/analytics/post/"+strconv.FormatInt(post.ID, 10)+"/report.pdf", nil, cookie)
	assertStatus(t, w.Code, http.StatusOK)

	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q; want application/pdf", ct)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, "post-stats-quarterly-numbers-") {
		t.Errorf("Content-Disposition = %q; want an attachment named after the slug", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Errorf("body does not start with %%PDF")
	}

	w = env.do(t, http.MethodGet, "/api/analytics/post/9999/report.pdf", nil, cookie)
	assertStatus(t, w.Code, http.StatusNotFound)
}
