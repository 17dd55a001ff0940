// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/hooks"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
	tu "github.com/olegiv/oblog/internal/testutil"
)

type fixedCountry string

func (c fixedCountry) Country(string) string { return string(c) }

func TestPostStats_SingleViewToday(t *testing.T) {
	db, cleanup := tu.TestDB(t)
	defer cleanup()

	now := time.Date(2026, 6, 10, 14, 25, 0, 0, time.UTC)
	pinClock(t, now)

	for i, slug := range []string{"one", "two", "three", "four", "five"} {
		p := tu.CreatePost(t, db, "Post "+slug, slug, "")
		require.Equal(t, int64(i+1), p.ID)
	}

	q := store.New(db)
	_, err := NewTracker(q, tu.TestLoggerSilent(), nil).Track(context.Background(),
		TrackInput{EventType: "post_view", PostID: int64p(5)},
		model.RequestInfo{IPAddress: "203.0.113.54", UserAgent: uaEdge},
	)
	require.NoError(t, err)

	stats, err := NewReporter(q).PostStats(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.Post.ID)
	assert.Equal(t, int64(1), stats.TotalViews)
	assert.Equal(t, int64(0), stats.VideoPlays)

	require.Len(t, stats.HourlyViews, 24)
	for _, h := range stats.HourlyViews {
		if h.Hour == 14 {
			assert.Equal(t, int64(1), h.Views)
		} else {
			assert.Equal(t, int64(0), h.Views, "hour %d", h.Hour)
		}
	}

	require.Len(t, stats.DailyViews, DefaultWindowDays)
	last := stats.DailyViews[len(stats.DailyViews)-1]
	assert.Equal(t, DailyViews{Date: "2026-06-10", Views: 1}, last)
	for _, d := range stats.DailyViews[:len(stats.DailyViews)-1] {
		assert.Equal(t, int64(0), d.Views)
	}

	assert.Equal(t, []BrowserCount{{Browser: BrowserEdge, Count: 1}}, stats.BrowserStats)

	require.Len(t, stats.RecentActivity, 1)
	assert.Equal(t, "203.0.***.***", stats.RecentActivity[0].IPAddress)
	assert.Equal(t, BrowserEdge, stats.RecentActivity[0].Browser)
	assert.Equal(t, "desktop", stats.RecentActivity[0].Device)
}

func TestPostStats_NotFound(t *testing.T) {
	db, cleanup := tu.TestDB(t)
	defer cleanup()

	_, err := NewReporter(store.New(db)).PostStats(context.Background(), 404)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostStats_BreakdownAndRecent(t *testing.T) {
	db, cleanup := tu.TestDB(t)
	defer cleanup()

	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	pinClock(t, now)

	p := tu.CreatePost(t, db, "Video", "video", "https://youtu.be/abc")
	q := store.New(db)
	ctx := context.Background()

	agents := []string{uaChrome, uaChrome, uaFirefox, "", "curl/8.0"}
	for i, ua := range agents {
		_, err := q.CreateEvent(ctx, store.CreateEventParams{
			EventType:      "post_view",
			PostID:         sql.NullInt64{Int64: p.ID, Valid: true},
			UserAgent:      sql.NullString{String: ua, Valid: ua != ""},
			IpAddress:      sql.NullString{String: "198.51.100.7", Valid: true},
			Timestamp:      store.FormatTime(now.Add(-time.Duration(i) * time.Hour)),
			AdditionalData: "{}",
		})
		require.NoError(t, err)
	}
	tu.CreateEvent(t, db, "video_play", p.ID, now, "")
	tu.CreateEvent(t, db, "video_play", p.ID, now.Add(-time.Minute), "")

	stats, err := NewReporter(q, WithCountryResolver(fixedCountry("NL"))).PostStats(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.VideoPlays)
	assert.Equal(t, []BrowserCount{
		{Browser: BrowserChrome, Count: 2},
		{Browser: BrowserFirefox, Count: 1},
		{Browser: BrowserOther, Count: 1},
		{Browser: BrowserUnknown, Count: 1},
	}, stats.BrowserStats)

	require.Len(t, stats.RecentActivity, 7)
	for i := 1; i < len(stats.RecentActivity); i++ {
		assert.False(t, stats.RecentActivity[i].Timestamp.After(stats.RecentActivity[i-1].Timestamp))
	}
	assert.Equal(t, "NL", stats.RecentActivity[0].Country)
	assert.Equal(t, "https://youtu.be/abc", *stats.Post.YoutubeURL)
}

func TestDashboard_DefaultWindow(t *testing.T) {
	db, cleanup := tu.TestDB(t)
	defer cleanup()

	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	pinClock(t, now)

	text := tu.CreatePost(t, db, "Text", "text", "")
	video := tu.CreatePost(t, db, "Video", "video", "https://youtu.be/v")
	quiet := tu.CreatePost(t, db, "Quiet video", "quiet", "https://youtu.be/q")

	tu.CreateEvent(t, db, "post_view", text.ID, now, "")
	tu.CreateEvent(t, db, "post_view", video.ID, now.AddDate(0, 0, -3), "")
	tu.CreateEvent(t, db, "post_view", video.ID, now.AddDate(0, -6, 0), "") // outside the chart, still counted
	tu.CreateEvent(t, db, "video_play", video.ID, now, "")
	tu.CreateEvent(t, db, "time_on_page", text.ID, now, `{"timeSpent":30}`)
	tu.CreateEvent(t, db, "time_on_page", video.ID, now, `{"timeSpent":15}`)

	d, err := NewReporter(store.New(db)).Dashboard(context.Background(), DateRange{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), d.TotalVisits)
	assert.Len(t, d.MostViewed, 3)
	require.Len(t, d.MostWatched, 2)
	assert.Equal(t, PostPlays{ID: video.ID, Title: "Video", PlayCount: 1}, d.MostWatched[0])
	assert.Equal(t, PostPlays{ID: quiet.ID, Title: "Quiet video", PlayCount: 0}, d.MostWatched[1])

	require.Len(t, d.DailyAnalytics, DefaultWindowDays)
	var charted int64
	for _, day := range d.DailyAnalytics {
		charted += day.Visits
	}
	assert.Equal(t, int64(2), charted)
	assert.Equal(t, DailyVisits{Date: "2026-06-10", Visits: 1}, d.DailyAnalytics[DefaultWindowDays-1])
	assert.Equal(t, DailyVisits{Date: "2026-06-07", Visits: 1}, d.DailyAnalytics[DefaultWindowDays-4])

	// (30 + 15) / 2 rounds half away from zero
	assert.Equal(t, int64(23), d.AvgTimeSpent)
}

func TestDashboard_ExplicitRange(t *testing.T) {
	db, cleanup := tu.TestDB(t)
	defer cleanup()

	p := tu.CreatePost(t, db, "Post", "post", "")
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	tu.CreateEvent(t, db, "post_view", p.ID, base, "")
	tu.CreateEvent(t, db, "post_view", p.ID, base.AddDate(0, 0, 2).Add(14*time.Hour), "") // Jan 12 23:00
	tu.CreateEvent(t, db, "post_view", p.ID, base.AddDate(0, 0, 5), "")

	rng, err := ParseDateRange("2026-01-10", "2026-01-12")
	require.NoError(t, err)

	d, err := NewReporter(store.New(db)).Dashboard(context.Background(), rng)
	require.NoError(t, err)

	assert.Equal(t, int64(2), d.TotalVisits)
	assert.Equal(t, []DailyVisits{
		{Date: "2026-01-10", Visits: 1},
		{Date: "2026-01-11", Visits: 0},
		{Date: "2026-01-12", Visits: 1},
	}, d.DailyAnalytics)
	assert.Equal(t, int64(0), d.AvgTimeSpent)
}

func TestDashboard_Cache(t *testing.T) {
	db, cleanup := tu.TestDB(t)
	defer cleanup()

	mc := cache.NewMemoryCache(time.Minute, 0)
	defer func() { _ = mc.Close() }()

	p := tu.CreatePost(t, db, "Post", "post", "")
	r := NewReporter(store.New(db), WithDashboardCache(mc, time.Minute))
	ctx := context.Background()

	first, err := r.Dashboard(ctx, DateRange{})
	require.NoError(t, err)
	assert.Zero(t, first.TotalVisits)

	tu.CreateEvent(t, db, "post_view", p.ID, time.Now(), "")

	cached, err := r.Dashboard(ctx, DateRange{})
	require.NoError(t, err)
	assert.Zero(t, cached.TotalVisits, "second call should be served from cache")

	reg := hooks.NewRegistry(tu.TestLoggerSilent())
	r.InvalidateOnMutation(reg)
	reg.Emit(ctx, hooks.MutationCommitted, model.Mutation{Action: model.ActionUpdate, EntityType: model.EntityPost})

	fresh, err := r.Dashboard(ctx, DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.TotalVisits)
}

func TestDashboard_InvalidationSurvivesCanceledRequest(t *testing.T) {
	db, cleanup := tu.TestDB(t)
	defer cleanup()

	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(cache.RedisOptions{
		URL:        "redis://" + mr.Addr() + "/0",
		Prefix:     "oblog:",
		DefaultTTL: time.Minute,
	})
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	p := tu.CreatePost(t, db, "Post", "post", "")
	r := NewReporter(store.New(db), WithDashboardCache(rc, time.Minute))
	ctx := context.Background()

	_, err = r.Dashboard(ctx, DateRange{})
	require.NoError(t, err)
	tu.CreateEvent(t, db, "post_view", p.ID, time.Now(), "")

	reg := hooks.NewRegistry(tu.TestLoggerSilent())
	r.InvalidateOnMutation(reg)

	// the client went away right after the write committed
	reqCtx, cancel := context.WithCancel(ctx)
	cancel()
	reg.Emit(reqCtx, hooks.MutationCommitted, model.Mutation{Action: model.ActionDelete, EntityType: model.EntityPost})

	fresh, err := r.Dashboard(ctx, DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.TotalVisits)
}

type failingReader struct {
	Reader
}

func (failingReader) CountEventsByType(context.Context, string, store.TimeRange) (int64, error) {
	return 0, errors.New("no such table: analytics")
}

func TestDashboard_QueryFailureFailsView(t *testing.T) {
	_, err := NewReporter(failingReader{}).Dashboard(context.Background(), DateRange{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPostNotFound)
}
