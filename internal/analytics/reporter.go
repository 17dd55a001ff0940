// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/hooks"
	"github.com/olegiv/oblog/internal/metrics"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
)

// Report sizes.
const (
	TopPostsLimit       = 10
	RecentActivityLimit = 20
)

// ErrPostNotFound is returned by PostStats for an unknown post id.
var ErrPostNotFound = errors.New("post not found")

// Reader is the store dependency of Reporter.
type Reader interface {
	CountEventsByType(ctx context.Context, eventType string, tr store.TimeRange) (int64, error)
	CountPostEvents(ctx context.Context, postID int64, eventType string) (int64, error)
	DailyEventCounts(ctx context.Context, eventType string, postID int64, tr store.TimeRange) ([]store.DateCount, error)
	HourlyEventCounts(ctx context.Context, postID int64, eventType string) ([]store.HourCount, error)
	UserAgentCounts(ctx context.Context, postID int64, eventType string) ([]store.UserAgentCount, error)
	ListRecentPostEvents(ctx context.Context, postID int64, limit int) ([]store.AnalyticsEvent, error)
	AverageTimeOnPage(ctx context.Context, tr store.TimeRange) (float64, error)
	ListMostViewedPosts(ctx context.Context, limit int) ([]store.PostViews, error)
	ListMostWatchedPosts(ctx context.Context, limit int) ([]store.PostPlays, error)
	GetPostByID(ctx context.Context, id int64) (store.Post, error)
	CountCommentsByPost(ctx context.Context, postID int64) (int64, error)
}

// CountryResolver maps an IP address to a country code. It returns "" when
// unknown.
type CountryResolver interface {
	Country(ip string) string
}

// Reporter computes read-only analytics views. Every view is rebuilt from
// the store on each call unless dashboard caching is enabled.
type Reporter struct {
	store     Reader
	geo       CountryResolver
	cache     cache.Cacher
	dashboard *cache.Typed[Dashboard]
	metrics   *metrics.Metrics
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithCountryResolver enables country lookups for recent activity.
func WithCountryResolver(geo CountryResolver) ReporterOption {
	return func(r *Reporter) { r.geo = geo }
}

// WithDashboardCache memoizes dashboard views in c for ttl. A non-positive
// ttl leaves caching off.
func WithDashboardCache(c cache.Cacher, ttl time.Duration) ReporterOption {
	return func(r *Reporter) {
		if c == nil || ttl <= 0 {
			return
		}
		r.cache = c
		r.dashboard = cache.NewTyped[Dashboard](c, ttl)
	}
}

// WithMetrics counts generated reports in m.
func WithMetrics(m *metrics.Metrics) ReporterOption {
	return func(r *Reporter) { r.metrics = m }
}

// NewReporter creates a Reporter.
func NewReporter(rd Reader, opts ...ReporterOption) *Reporter {
	r := &Reporter{store: rd}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PostViews is a post ranked by its view counter.
type PostViews struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Views int64  `json:"views"`
}

// PostPlays is a video post ranked by video plays.
type PostPlays struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	PlayCount int64  `json:"play_count"`
}

// DailyVisits is one day of the dashboard series.
type DailyVisits struct {
	Date   string `json:"date"`
	Visits int64  `json:"visits"`
}

// Dashboard is the site-wide analytics summary.
type Dashboard struct {
	TotalVisits    int64         `json:"totalVisits"`
	MostViewed     []PostViews   `json:"mostViewed"`
	MostWatched    []PostPlays   `json:"mostWatched"`
	DailyAnalytics []DailyVisits `json:"dailyAnalytics"`
	AvgTimeSpent   int64         `json:"avgTimeSpent"`
}

const dashboardKeyPrefix = "dashboard:"

// Dashboard builds the summary for rng. A zero rng counts visits and time
// spent over all history and charts the trailing DefaultWindowDays.
func (r *Reporter) Dashboard(ctx context.Context, rng DateRange) (Dashboard, error) {
	if r.dashboard == nil {
		return r.buildDashboard(ctx, rng)
	}

	key := dashboardKeyPrefix + rangeKey(rng, timeNow())
	return r.dashboard.GetOrSet(ctx, key, func() (Dashboard, error) {
		return r.buildDashboard(ctx, rng)
	})
}

// rangeKey identifies a dashboard request. The default window moves with
// the date, so its key carries today's date.
func rangeKey(rng DateRange, now time.Time) string {
	if rng.IsZero() {
		return "default:" + now.UTC().Format(store.DateLayout)
	}
	return store.FormatTime(rng.Start) + "|" + store.FormatTime(rng.End)
}

func (r *Reporter) buildDashboard(ctx context.Context, rng DateRange) (Dashboard, error) {
	tr := rng.timeRange()

	total, err := r.store.CountEventsByType(ctx, string(model.EventPostView), tr)
	if err != nil {
		return Dashboard{}, fmt.Errorf("counting visits: %w", err)
	}

	viewed, err := r.store.ListMostViewedPosts(ctx, TopPostsLimit)
	if err != nil {
		return Dashboard{}, fmt.Errorf("listing most viewed posts: %w", err)
	}

	watched, err := r.store.ListMostWatchedPosts(ctx, TopPostsLimit)
	if err != nil {
		return Dashboard{}, fmt.Errorf("listing most watched posts: %w", err)
	}

	window := rng
	if window.IsZero() {
		window = trailingWindow(timeNow(), DefaultWindowDays)
	}
	daily, err := r.store.DailyEventCounts(ctx, string(model.EventPostView), 0, window.timeRange())
	if err != nil {
		return Dashboard{}, fmt.Errorf("counting daily visits: %w", err)
	}

	avg, err := r.store.AverageTimeOnPage(ctx, tr)
	if err != nil {
		return Dashboard{}, fmt.Errorf("averaging time on page: %w", err)
	}

	d := Dashboard{
		TotalVisits:    total,
		MostViewed:     make([]PostViews, 0, len(viewed)),
		MostWatched:    make([]PostPlays, 0, len(watched)),
		DailyAnalytics: make([]DailyVisits, 0, DefaultWindowDays),
		AvgTimeSpent:   int64(math.Round(avg)),
	}
	for _, p := range viewed {
		d.MostViewed = append(d.MostViewed, PostViews{ID: p.ID, Title: p.Title, Views: p.Views})
	}
	for _, p := range watched {
		d.MostWatched = append(d.MostWatched, PostPlays{ID: p.ID, Title: p.Title, PlayCount: p.PlayCount})
	}
	for _, day := range fillDays(window, daily) {
		d.DailyAnalytics = append(d.DailyAnalytics, DailyVisits{Date: day.Date, Visits: day.Count})
	}

	r.metrics.ReportGenerated(metrics.ReportDashboard)
	return d, nil
}

// InvalidateOnMutation drops cached dashboards whenever an admin write
// commits, so rankings reflect edits before the TTL expires. The delete
// outlives the request that triggered it.
func (r *Reporter) InvalidateOnMutation(reg *hooks.Registry) {
	if r.cache == nil {
		return
	}
	reg.Register(hooks.MutationCommitted, hooks.Handler{
		Name:     "analytics.dashboard_cache",
		Priority: 10,
		Fn: func(ctx context.Context, _ any) error {
			return r.cache.DeleteByPrefix(context.WithoutCancel(ctx), dashboardKeyPrefix)
		},
	})
}

// PostSummary is the post record embedded in PostStats.
type PostSummary struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Content    string    `json:"content"`
	YoutubeURL *string   `json:"youtube_url"`
	Published  bool      `json:"published"`
	Views      int64     `json:"views"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DailyViews is one day of a post's series.
type DailyViews struct {
	Date  string `json:"date"`
	Views int64  `json:"views"`
}

// HourlyViews is one hour-of-day bucket.
type HourlyViews struct {
	Hour  int   `json:"hour"`
	Views int64 `json:"views"`
}

// BrowserCount is the number of views from one browser family.
type BrowserCount struct {
	Browser string `json:"browser"`
	Count   int64  `json:"count"`
}

// RecentEvent is a raw event prepared for display. The IP is masked.
type RecentEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	Device    string    `json:"device"`
	Country   string    `json:"country,omitempty"`
}

// PostStats is the per-post analytics view.
type PostStats struct {
	Post           PostSummary    `json:"post"`
	TotalViews     int64          `json:"totalViews"`
	VideoPlays     int64          `json:"videoPlays"`
	CommentsCount  int64          `json:"commentsCount"`
	DailyViews     []DailyViews   `json:"dailyViews"`
	HourlyViews    []HourlyViews  `json:"hourlyViews"`
	BrowserStats   []BrowserCount `json:"browserStats"`
	RecentActivity []RecentEvent  `json:"recentActivity"`
}

// PostStats builds the statistics view of one post.
func (r *Reporter) PostStats(ctx context.Context, postID int64) (PostStats, error) {
	post, err := r.store.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PostStats{}, ErrPostNotFound
		}
		return PostStats{}, fmt.Errorf("loading post %d: %w", postID, err)
	}

	views, err := r.store.CountPostEvents(ctx, postID, string(model.EventPostView))
	if err != nil {
		return PostStats{}, fmt.Errorf("counting views: %w", err)
	}

	plays, err := r.store.CountPostEvents(ctx, postID, string(model.EventVideoPlay))
	if err != nil {
		return PostStats{}, fmt.Errorf("counting video plays: %w", err)
	}

	comments, err := r.store.CountCommentsByPost(ctx, postID)
	if err != nil {
		return PostStats{}, fmt.Errorf("counting comments: %w", err)
	}

	window := trailingWindow(timeNow(), DefaultWindowDays)
	daily, err := r.store.DailyEventCounts(ctx, string(model.EventPostView), postID, window.timeRange())
	if err != nil {
		return PostStats{}, fmt.Errorf("counting daily views: %w", err)
	}

	hourly, err := r.store.HourlyEventCounts(ctx, postID, string(model.EventPostView))
	if err != nil {
		return PostStats{}, fmt.Errorf("counting hourly views: %w", err)
	}

	agents, err := r.store.UserAgentCounts(ctx, postID, string(model.EventPostView))
	if err != nil {
		return PostStats{}, fmt.Errorf("counting user agents: %w", err)
	}

	recent, err := r.store.ListRecentPostEvents(ctx, postID, RecentActivityLimit)
	if err != nil {
		return PostStats{}, fmt.Errorf("listing recent events: %w", err)
	}

	stats := PostStats{
		Post:           summarize(post),
		TotalViews:     views,
		VideoPlays:     plays,
		CommentsCount:  comments,
		DailyViews:     make([]DailyViews, 0, DefaultWindowDays),
		HourlyViews:    make([]HourlyViews, 0, 24),
		BrowserStats:   browserBreakdown(agents),
		RecentActivity: make([]RecentEvent, 0, len(recent)),
	}
	for _, d := range fillDays(window, daily) {
		stats.DailyViews = append(stats.DailyViews, DailyViews{Date: d.Date, Views: d.Count})
	}
	for _, h := range fillHours(hourly) {
		stats.HourlyViews = append(stats.HourlyViews, HourlyViews{Hour: h.Hour, Views: h.Count})
	}
	for _, ev := range recent {
		stats.RecentActivity = append(stats.RecentActivity, r.recentEvent(ev))
	}

	r.metrics.ReportGenerated(metrics.ReportPostStats)
	return stats, nil
}

func summarize(p store.Post) PostSummary {
	s := PostSummary{
		ID:        p.ID,
		Title:     p.Title,
		Slug:      p.Slug,
		Content:   p.Content,
		Published: p.Published,
		Views:     p.Views,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
	if p.YoutubeUrl.Valid {
		s.YoutubeURL = &p.YoutubeUrl.String
	}
	return s
}

// browserBreakdown folds raw user agent counts into browser families,
// largest first, ties by name.
func browserBreakdown(rows []store.UserAgentCount) []BrowserCount {
	totals := make(map[string]int64)
	for _, row := range rows {
		totals[ClassifyBrowser(row.UserAgent.String)] += row.Count
	}

	out := make([]BrowserCount, 0, len(totals))
	for name, n := range totals {
		out = append(out, BrowserCount{Browser: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Browser < out[j].Browser
	})
	return out
}

func (r *Reporter) recentEvent(ev store.AnalyticsEvent) RecentEvent {
	ua := ev.UserAgent.String
	agent := DescribeAgent(ua)
	out := RecentEvent{
		EventType: ev.EventType,
		Timestamp: ev.Timestamp.UTC(),
		SessionID: ev.SessionID.String,
		UserAgent: ua,
		IPAddress: MaskIP(ev.IpAddress.String),
		Browser:   ClassifyBrowser(ua),
		OS:        agent.OS,
		Device:    agent.Device,
	}
	if r.geo != nil && ev.IpAddress.Valid {
		out.Country = r.geo.Country(ev.IpAddress.String)
	}
	return out
}
